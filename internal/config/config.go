package config

import (
	"os"
	"strconv"
	"time"

	"github.com/go-yaml/yaml"
	"github.com/pkg/errors"

	"github.com/totegamma/metacatalog/internal/domain"
	"github.com/totegamma/metacatalog/schemas"
)

type Config struct {
	NodeInfo NodeInfo `yaml:"nodeInfo"`
	Server   Server   `yaml:"server"`
	Catalog  Catalog  `yaml:"catalog"`
}

type NodeInfo struct {
	FQDN      string `yaml:"fqdn"`
	NodeID    string `yaml:"nodeId"`
	SiteID    string `yaml:"siteId"`
	SiteName  string `yaml:"siteName"`
	JwtSecret string `yaml:"jwtSecret"`
}

type Server struct {
	Listen           string   `yaml:"listen"`
	PostgresDsn      string   `yaml:"postgresDsn"`
	RedisAddr        string   `yaml:"redisAddr"`
	RedisDB          int      `yaml:"redisDB"`
	MemcachedAddr    string   `yaml:"memcachedAddr"`
	EnableTrace      bool     `yaml:"enableTrace"`
	TraceEndpoint    string   `yaml:"traceEndpoint"`
	IntranetNetworks []string `yaml:"intranetNetworks"`
	XsltprocPath     string   `yaml:"xsltprocPath"`
}

type Catalog struct {
	Protocol                string           `yaml:"protocol"`
	Host                    string           `yaml:"host"`
	Port                    int              `yaml:"port"`
	BaseURL                 string           `yaml:"baseUrl"`
	DataDir                 string           `yaml:"dataDir"`
	SchemaDir               string           `yaml:"schemaDir"`
	ThesaurusDir            string           `yaml:"thesaurusDir"`
	Autofixing              *bool            `yaml:"autofixing"`
	ImportRestrictions      []string         `yaml:"importRestrictions"`
	AllowReferencedDeletion bool             `yaml:"allowReferencedDeletion"`
	IndexWorkers            int              `yaml:"indexWorkers"`
	ReconcilePageSize       int              `yaml:"reconcilePageSize"`
	QueueDrainInterval      time.Duration    `yaml:"queueDrainInterval"`
	QueueDrainBatch         int              `yaml:"queueDrainBatch"`
	TransformTimeout        time.Duration    `yaml:"transformTimeout"`
	Schemas                 []schemas.Schema `yaml:"schemas"`
}

func Load(path string) (Config, error) {

	file, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer file.Close()

	var config Config
	err = yaml.NewDecoder(file).Decode(&config)
	if err != nil {
		return Config{}, err
	}

	if config.NodeInfo.JwtSecret == "" {
		return Config{}, errors.New("nodeInfo.jwtSecret is required")
	}

	config.applyDefaults()
	return config, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Listen == "" {
		c.Server.Listen = ":8000"
	}
	if c.Server.XsltprocPath == "" {
		c.Server.XsltprocPath = "xsltproc"
	}
	if c.NodeInfo.NodeID == "" {
		c.NodeInfo.NodeID = "srv"
	}
	if c.Catalog.Protocol == "" {
		c.Catalog.Protocol = "http"
	}
	if c.Catalog.Host == "" {
		c.Catalog.Host = c.NodeInfo.FQDN
	}
	if c.Catalog.Port == 0 {
		c.Catalog.Port = 80
	}
	if c.Catalog.Autofixing == nil {
		enabled := true
		c.Catalog.Autofixing = &enabled
	}
	if c.Catalog.QueueDrainInterval == 0 {
		c.Catalog.QueueDrainInterval = 10 * time.Second
	}
	if c.Catalog.QueueDrainBatch == 0 {
		c.Catalog.QueueDrainBatch = 500
	}
	if c.Catalog.TransformTimeout == 0 {
		c.Catalog.TransformTimeout = 30 * time.Second
	}
}

// Settings is the base settings snapshot. Rows of the settings table are
// applied over it at runtime.
func (c Config) Settings() domain.Settings {
	s := domain.Settings{
		AutofixingEnabled:        c.Catalog.Autofixing == nil || *c.Catalog.Autofixing,
		ImportRestrictionSchemas: c.Catalog.ImportRestrictions,
		AllowReferencedDeletion:  c.Catalog.AllowReferencedDeletion,
		SiteID:                   c.NodeInfo.SiteID,
		NodeID:                   c.NodeInfo.NodeID,
		ServerProtocol:           c.Catalog.Protocol,
		ServerHost:               c.Catalog.Host,
		ServerPort:               strconv.Itoa(c.Catalog.Port),
		BaseURL:                  c.Catalog.BaseURL,
		DataDir:                  c.Catalog.DataDir,
		Values: map[string]string{
			"system/site/name":   c.NodeInfo.SiteName,
			"system/site/siteId": c.NodeInfo.SiteID,
		},
	}
	s.SiteURL = s.ServerURL() + s.BaseURL + "/srv/"
	s.NodeURL = s.ServerURL() + s.BaseURL + "/" + s.NodeID + "/"
	return s
}
