package repository

import (
	"context"
	"maps"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/totegamma/metacatalog/internal/domain"
	"github.com/totegamma/metacatalog/internal/infra/database/models"
)

// Setting keys understood by the catalog.
const (
	SettingAutofixing         = "system/autofixing/enable"
	SettingImportRestrict     = "metadata/import/restrict"
	SettingReferencedDeletion = "system/xlinkResolver/referencedDeletionAllowed"
	SettingSiteID             = "system/site/siteId"
	SettingServerProtocol     = "system/server/protocol"
	SettingServerHost         = "system/server/host"
	SettingServerPort         = "system/server/port"
)

// SettingsRepository layers the settings table over the configured defaults.
type SettingsRepository struct {
	db   *gorm.DB
	base domain.Settings
}

func NewSettingsRepository(db *gorm.DB, base domain.Settings) *SettingsRepository {
	return &SettingsRepository{db: db, base: base}
}

func (r *SettingsRepository) Snapshot(ctx context.Context) (domain.Settings, error) {
	var rows []models.Setting
	if err := r.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return domain.Settings{}, err
	}
	values := make(map[string]string, len(rows))
	for _, row := range rows {
		values[row.Name] = row.Value
	}
	return ApplySettings(r.base, values), nil
}

func (r *SettingsRepository) Set(ctx context.Context, name, value string) error {
	return r.db.WithContext(ctx).Save(&models.Setting{Name: name, Value: value}).Error
}

// ApplySettings returns a copy of base with values applied over it.
func ApplySettings(base domain.Settings, values map[string]string) domain.Settings {
	s := base
	s.Values = maps.Clone(base.Values)
	if s.Values == nil {
		s.Values = make(map[string]string, len(values))
	}
	maps.Copy(s.Values, values)
	s.ImportRestrictionSchemas = append([]string(nil), base.ImportRestrictionSchemas...)

	if v, ok := values[SettingAutofixing]; ok {
		if b, err := strconv.ParseBool(v); err == nil {
			s.AutofixingEnabled = b
		}
	}
	if v, ok := values[SettingReferencedDeletion]; ok {
		if b, err := strconv.ParseBool(v); err == nil {
			s.AllowReferencedDeletion = b
		}
	}
	if v, ok := values[SettingImportRestrict]; ok {
		s.ImportRestrictionSchemas = nil
		for _, schema := range strings.Split(v, ",") {
			if schema = strings.TrimSpace(schema); schema != "" {
				s.ImportRestrictionSchemas = append(s.ImportRestrictionSchemas, schema)
			}
		}
	}
	if v := values[SettingSiteID]; v != "" {
		s.SiteID = v
	}
	if v := values[SettingServerProtocol]; v != "" {
		s.ServerProtocol = v
	}
	if v := values[SettingServerHost]; v != "" {
		s.ServerHost = v
	}
	if v := values[SettingServerPort]; v != "" {
		s.ServerPort = v
	}
	return s
}
