package quota

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/j-veylop/ai-quota-bar/internal/config"
	"github.com/j-veylop/ai-quota-bar/internal/logger"
	"github.com/j-veylop/ai-quota-bar/internal/models"
)

const (
	defaultTimeout = 15 * time.Second
	maxBodyBytes   = 1 << 20
)

var defaultHeaders = map[string]string{
	"Accept":          "application/json, text/plain, */*",
	"Accept-Language": "en-US,en;q=0.9",
}

// HTTPProvider polls a JSON endpoint described by a provider config. The
// response is treated as opaque; limits are located with gjson paths.
type HTTPProvider struct {
	client *http.Client
	getenv func(string) string
	cfg    config.ProviderConfig
}

// NewHTTPProvider creates a provider. A nil client uses one with the
// configured timeout.
func NewHTTPProvider(cfg config.ProviderConfig, client *http.Client) *HTTPProvider {
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	return &HTTPProvider{client: client, getenv: os.Getenv, cfg: cfg}
}

// Key returns the provider key.
func (p *HTTPProvider) Key() string {
	return p.cfg.Key
}

// Name returns the display name, falling back to the key.
func (p *HTTPProvider) Name() string {
	if p.cfg.Name != "" {
		return p.cfg.Name
	}
	return p.cfg.Key
}

// Fetch requests the endpoint and extracts each configured limit.
func (p *HTTPProvider) Fetch(ctx context.Context) (*models.ProviderUsage, error) {
	req, err := p.newRequest(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: request failed: %w", p.cfg.Key, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%s: reading response: %w", p.cfg.Key, err)
	}
	logger.Debug("provider response", "provider", p.cfg.Key, "status", resp.StatusCode, "bytes", len(body))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Provider: p.cfg.Key, Code: resp.StatusCode}
	}

	rows, err := ParseLimits(body, p.cfg.Limits)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.cfg.Key, err)
	}

	return &models.ProviderUsage{
		FetchedAt:   time.Now(),
		Provider:    p.Name(),
		ProviderKey: p.cfg.Key,
		Rows:        rows,
	}, nil
}

func (p *HTTPProvider) newRequest(ctx context.Context) (*http.Request, error) {
	method := p.cfg.Method
	if method == "" {
		method = http.MethodGet
	}
	req, err := http.NewRequestWithContext(ctx, method, p.cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: creating request: %w", p.cfg.Key, err)
	}

	for k, v := range defaultHeaders {
		req.Header.Set(k, v)
	}
	for k, v := range p.cfg.Headers {
		req.Header.Set(k, v)
	}

	if p.cfg.Auth.Env == "" {
		return req, nil
	}
	secret := strings.TrimSpace(p.getenv(p.cfg.Auth.Env))
	if secret == "" {
		return nil, fmt.Errorf("%s: %s not set: %w", p.cfg.Key, p.cfg.Auth.Env, ErrMissingCredentials)
	}
	switch p.cfg.Auth.Type {
	case "cookie":
		req.Header.Set("Cookie", secret)
	default:
		req.Header.Set("Authorization", "Bearer "+secret)
	}
	return req, nil
}

// ParseLimits extracts a row per limit from body. Limits whose paths are
// absent are skipped; at least one limit must be present.
func ParseLimits(body []byte, limits []config.LimitConfig) ([]models.LimitRow, error) {
	if !gjson.ValidBytes(body) {
		return nil, ErrInvalidBody
	}
	doc := gjson.ParseBytes(body)

	rows := make([]models.LimitRow, 0, len(limits))
	for _, l := range limits {
		pct, ok := limitPct(doc, l)
		if !ok {
			continue
		}
		row := models.LimitRow{Label: l.Label, Pct: pct}
		if l.ResetPath != "" {
			row.ResetAt = parseReset(doc.Get(l.ResetPath))
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, ErrNoLimits
	}
	return rows, nil
}

func limitPct(doc gjson.Result, l config.LimitConfig) (int, bool) {
	if l.PctPath != "" {
		v := doc.Get(l.PctPath)
		if !v.Exists() || v.Type == gjson.Null {
			return 0, false
		}
		return models.ClampPct(int(math.Round(v.Float()))), true
	}

	used, limit := doc.Get(l.UsedPath), doc.Get(l.LimitPath)
	if !used.Exists() || !limit.Exists() || limit.Float() <= 0 {
		return 0, false
	}
	return models.ClampPct(int(math.Round(used.Float() / limit.Float() * 100))), true
}

// parseReset accepts unix seconds, unix milliseconds, or an ISO-8601 string
// with or without a zone (UTC assumed).
func parseReset(v gjson.Result) time.Time {
	switch v.Type {
	case gjson.Number:
		n := v.Float()
		if n <= 0 {
			return time.Time{}
		}
		if n > 1e12 {
			return time.UnixMilli(int64(n)).UTC()
		}
		sec, frac := math.Modf(n)
		return time.Unix(int64(sec), int64(frac*1e9)).UTC()
	case gjson.String:
		s := v.String()
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999", "2006-01-02 15:04:05"} {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC()
			}
		}
	}
	return time.Time{}
}
