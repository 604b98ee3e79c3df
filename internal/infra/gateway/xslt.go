package gateway

import (
	"bytes"
	"context"
	"encoding/hex"
	"log/slog"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
	"github.com/zeebo/xxh3"
	"go.opentelemetry.io/otel"

	"github.com/totegamma/metacatalog/internal/metrics"
)

var tracer = otel.Tracer("gateway")

// XsltprocEngine applies stylesheets by running xsltproc. Results are kept in
// memory keyed by the stylesheet, the input and the parameters.
type XsltprocEngine struct {
	command string
	timeout time.Duration
	cache   *cache.Cache
	metrics *metrics.Metrics
}

func NewXsltprocEngine(command string, timeout time.Duration, m *metrics.Metrics) *XsltprocEngine {
	if command == "" {
		command = "xsltproc"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &XsltprocEngine{
		command: command,
		timeout: timeout,
		cache:   cache.New(10*time.Minute, 15*time.Minute),
		metrics: m,
	}
}

func (e *XsltprocEngine) Apply(ctx context.Context, stylesheet string, input string, params map[string]string) (string, error) {
	ctx, span := tracer.Start(ctx, "Xslt.Gateway.Apply")
	defer span.End()

	key := cacheKey(stylesheet, input, params)
	if cached, found := e.cache.Get(key); found {
		e.metrics.TransformCacheHit()
		return cached.(string), nil
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	args := []string{"--nonet"}
	for _, k := range sortedKeys(params) {
		args = append(args, "--stringparam", k, params[k])
	}
	args = append(args, stylesheet, "-")

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.command, args...)
	cmd.Stdin = strings.NewReader(input)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		span.RecordError(err)
		slog.ErrorContext(
			ctx, "stylesheet application failed",
			slog.String("stylesheet", stylesheet),
			slog.String("stderr", stderr.String()),
			slog.String("error", err.Error()),
			slog.String("module", "xslt"),
		)
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return "", errors.Wrap(err, "xsltproc")
		}
		return "", errors.Wrap(err, msg)
	}

	out := stdout.String()
	e.cache.Set(key, out, cache.DefaultExpiration)
	return out, nil
}

func sortedKeys(params map[string]string) []string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func cacheKey(stylesheet, input string, params map[string]string) string {
	h := xxh3.New()
	h.WriteString(stylesheet)
	h.WriteString("\x00")
	h.WriteString(input)
	for _, k := range sortedKeys(params) {
		h.WriteString("\x00")
		h.WriteString(k)
		h.WriteString("=")
		h.WriteString(params[k])
	}
	sum := h.Sum128().Bytes()
	return hex.EncodeToString(sum[:])
}
