package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Getenv looks up one variable. An empty result counts as unset.
type Getenv func(key string) string

// Load reads configuration from the process environment, applies defaults
// and validates the result.
func Load() (*Config, error) {
	return LoadFrom(os.Getenv)
}

// LoadFrom is Load with a caller-supplied lookup. Every malformed or missing
// variable is reported, not just the first.
func LoadFrom(getenv Getenv) (*Config, error) {
	cfg := &Config{}

	var errs []error
	eachField(reflect.ValueOf(cfg).Elem(), func(f reflect.StructField, dst reflect.Value) {
		if err := fill(f, dst, getenv); err != nil {
			errs = append(errs, err)
		}
	})
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// eachField calls fn for every settable leaf field carrying an env tag,
// descending into nested config sections.
func eachField(v reflect.Value, fn func(reflect.StructField, reflect.Value)) {
	t := v.Type()
	for i := range t.NumField() {
		f, dst := t.Field(i), v.Field(i)
		switch {
		case !dst.CanSet():
		case f.Type.Kind() == reflect.Struct:
			eachField(dst, fn)
		case f.Tag.Get("env") != "":
			fn(f, dst)
		}
	}
}

// fill resolves one field: the env name, then each envAlt name in order,
// then the default.
func fill(f reflect.StructField, dst reflect.Value, getenv Getenv) error {
	name := f.Tag.Get("env")
	raw := getenv(name)
	if alts := f.Tag.Get("envAlt"); raw == "" && alts != "" {
		for _, alt := range strings.Split(alts, ",") {
			if raw = getenv(strings.TrimSpace(alt)); raw != "" {
				break
			}
		}
	}
	if raw == "" {
		if f.Tag.Get("required") == "true" {
			return fmt.Errorf("%s is required", name)
		}
		raw = f.Tag.Get("default")
	}
	if raw == "" {
		return nil
	}

	parsed, err := parseAs(dst.Type(), raw)
	if err != nil {
		return fmt.Errorf("%s=%q: %w", name, raw, err)
	}
	dst.Set(parsed.Convert(dst.Type()))
	return nil
}

var durationType = reflect.TypeOf(time.Duration(0))

// parseAs turns raw into a value assignable (after conversion) to t.
func parseAs(t reflect.Type, raw string) (reflect.Value, error) {
	if t == durationType {
		d, err := time.ParseDuration(raw)
		return reflect.ValueOf(d), err
	}

	switch t.Kind() {
	case reflect.String:
		return reflect.ValueOf(raw), nil
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		return reflect.ValueOf(b), err
	case reflect.Int, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, t.Bits())
		return reflect.ValueOf(n), err
	case reflect.Float64:
		x, err := strconv.ParseFloat(raw, 64)
		return reflect.ValueOf(x), err
	case reflect.Slice:
		if t.Elem().Kind() == reflect.String {
			return reflect.ValueOf(splitList(raw)), nil
		}
	}
	return reflect.Value{}, fmt.Errorf("unsupported field type %s", t)
}

// splitList splits a comma-separated value, dropping blanks.
func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	// Server validation
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT (%d) must be 1-65535", c.Server.Port))
	}
	if c.Server.ReadTimeout < 0 {
		errs = append(errs, "SERVER_READ_TIMEOUT must be non-negative")
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	}
	if c.Server.MaxUploadSize <= 0 {
		errs = append(errs, "SERVER_MAX_UPLOAD_SIZE must be positive")
	}

	// Database validation, only when a database is configured
	if c.Database.Enabled() {
		if c.Database.MaxConns <= 0 {
			errs = append(errs, "DB_MAX_CONNS must be positive")
		}
		if c.Database.MinConns < 0 {
			errs = append(errs, "DB_MIN_CONNS must be non-negative")
		}
		if c.Database.MaxConns < c.Database.MinConns {
			errs = append(errs, fmt.Sprintf("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)",
				c.Database.MaxConns, c.Database.MinConns))
		}
		if c.Database.MaxRows <= 0 {
			errs = append(errs, "DB_MAX_ROWS must be positive")
		}
	}

	// Cleaning validation
	switch strings.ToLower(c.Cleaning.DedupKeep) {
	case "first", "last", "none":
	default:
		errs = append(errs, fmt.Sprintf("CLEAN_DEDUP_KEEP (%q) must be one of: first, last, none", c.Cleaning.DedupKeep))
	}
	switch strings.ToLower(c.Cleaning.OutlierMethod) {
	case "iqr", "zscore":
	default:
		errs = append(errs, fmt.Sprintf("CLEAN_OUTLIER_METHOD (%q) must be one of: iqr, zscore", c.Cleaning.OutlierMethod))
	}
	if c.Cleaning.OutlierThreshold < 0 {
		errs = append(errs, "CLEAN_OUTLIER_THRESHOLD must be non-negative")
	}
	if c.Cleaning.MaxConcurrentRuns <= 0 {
		errs = append(errs, "CLEAN_MAX_CONCURRENT_RUNS must be positive")
	}
	if c.Cleaning.RunMaxWait <= 0 {
		errs = append(errs, "CLEAN_RUN_MAX_WAIT must be positive")
	}
	if c.Cleaning.RunRetention <= 0 {
		errs = append(errs, "CLEAN_RUN_RETENTION must be positive")
	}
	if c.Cleaning.PreviewRows <= 0 {
		errs = append(errs, "CLEAN_PREVIEW_ROWS must be positive")
	}

	// Advisor validation
	switch strings.ToLower(c.Advisor.Provider) {
	case "none", "heuristic":
	case "gemini":
		if c.Advisor.APIKey == "" {
			errs = append(errs, "ADVISOR_PROVIDER is gemini but GOOGLE_API_KEY is empty")
		}
		if c.Advisor.Model == "" {
			errs = append(errs, "ADVISOR_MODEL is required for gemini")
		}
	default:
		errs = append(errs, fmt.Sprintf("ADVISOR_PROVIDER (%q) must be one of: none, heuristic, gemini", c.Advisor.Provider))
	}
	if c.Advisor.Temperature < 0 || c.Advisor.Temperature > 2 {
		errs = append(errs, fmt.Sprintf("ADVISOR_TEMPERATURE (%g) must be 0-2", c.Advisor.Temperature))
	}
	if c.Advisor.Timeout <= 0 {
		errs = append(errs, "ADVISOR_TIMEOUT must be positive")
	}

	// Security validation
	if c.Security.RequireAPIKey && len(c.Security.APIKeys) == 0 {
		errs = append(errs, "REQUIRE_API_KEY is true but API_KEYS is empty; configure at least one API key or disable auth")
	}

	if c.Security.RateLimit < 0 {
		errs = append(errs, "RATE_LIMIT_PER_MINUTE must be non-negative")
	}

	// Logging validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// String returns a safe string representation of the config for logging.
// Sensitive values like database URLs and API keys are masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	fmt.Fprintf(&b, "Server: {Host: %q, Port: %d}, ", c.Server.Host, c.Server.Port)
	fmt.Fprintf(&b, "Database: {Enabled: %v, MaxConns: %d}, ", c.Database.Enabled(), c.Database.MaxConns)
	fmt.Fprintf(&b, "Cleaning: {DedupKeep: %q, RemoveOutliers: %v, OutlierMethod: %q, MaxConcurrentRuns: %d}, ",
		c.Cleaning.DedupKeep, c.Cleaning.RemoveOutliers, c.Cleaning.OutlierMethod, c.Cleaning.MaxConcurrentRuns)
	fmt.Fprintf(&b, "Advisor: {Provider: %q, Model: %q, APIKey: %s}, ", c.Advisor.Provider, c.Advisor.Model, mask(c.Advisor.APIKey))
	fmt.Fprintf(&b, "Logging: {Level: %q, Format: %q}", c.Logging.Level, c.Logging.Format)
	b.WriteString("}")
	return b.String()
}

func mask(secret string) string {
	if secret == "" {
		return "[UNSET]"
	}
	return "[MASKED]"
}
