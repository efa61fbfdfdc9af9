package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/loykin/zephyrrun"
	"github.com/loykin/zephyrrun/internal/constants"
	"github.com/loykin/zephyrrun/internal/credential"
	"github.com/loykin/zephyrrun/internal/store/postgresql"
	"github.com/loykin/zephyrrun/internal/util"
	"gopkg.in/yaml.v3"
)

type LoggingConfig struct {
	Level         string `mapstructure:"level" yaml:"level"`                   // error, warn, info, debug
	Format        string `mapstructure:"format" yaml:"format"`                 // text, json, color
	MaskSensitive *bool  `mapstructure:"mask_sensitive" yaml:"mask_sensitive"` // enable/disable sensitive data masking
	Color         *bool  `mapstructure:"color" yaml:"color"`
}

type ClientConfig struct {
	Insecure      bool   `mapstructure:"insecure" yaml:"insecure"`
	MinTLSVersion string `mapstructure:"min_tls_version" yaml:"min_tls_version"`
	MaxTLSVersion string `mapstructure:"max_tls_version" yaml:"max_tls_version"`
	// Timeout is a duration string such as "30s".
	Timeout   string `mapstructure:"timeout" yaml:"timeout"`
	UserAgent string `mapstructure:"user_agent" yaml:"user_agent"`
}

type SQLiteHistoryConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

type HistoryConfig struct {
	Disabled bool                `mapstructure:"disabled" yaml:"disabled"`
	Type     string              `mapstructure:"type" yaml:"type"` // sqlite (default) or postgresql
	Table    string              `mapstructure:"table" yaml:"table"`
	SQLite   SQLiteHistoryConfig `mapstructure:"sqlite" yaml:"sqlite"`
	Postgres postgresql.Config   `mapstructure:"postgres" yaml:"postgres"`
}

type ServeConfig struct {
	Addr             string `mapstructure:"addr" yaml:"addr"`
	JWTSecret        string `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	JWTSecretFromEnv string `mapstructure:"jwt_secret_from_env" yaml:"jwt_secret_from_env"`
	JWTIssuer        string `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	JWTAudience      string `mapstructure:"jwt_audience" yaml:"jwt_audience"`
}

type ConfigDoc struct {
	BaseURL  string `mapstructure:"base_url" yaml:"base_url"`
	Identity string `mapstructure:"identity" yaml:"identity"`
	// Exactly one secret source is used, in this order: secret, secret_from_env,
	// secret_from_keyring. Secret itself may be a "keyring:" or "env:" reference.
	Secret            string `mapstructure:"secret" yaml:"secret"`
	SecretFromEnv     string `mapstructure:"secret_from_env" yaml:"secret_from_env"`
	SecretFromKeyring string `mapstructure:"secret_from_keyring" yaml:"secret_from_keyring"`
	// Scheme is the preferred scheme recorded on the credentials.
	Scheme string `mapstructure:"scheme" yaml:"scheme"`
	// Order overrides the negotiation order, e.g. [session, basic].
	Order      []string                          `mapstructure:"order" yaml:"order"`
	Strategies map[string]map[string]interface{} `mapstructure:"strategies" yaml:"strategies"`

	Client  ClientConfig  `mapstructure:"client" yaml:"client"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	History HistoryConfig `mapstructure:"history" yaml:"history"`
	Serve   ServeConfig   `mapstructure:"serve" yaml:"serve"`
}

func (c *ConfigDoc) Load(path string) error {
	clean := filepath.Clean(path)
	if info, statErr := os.Stat(clean); statErr != nil || !info.Mode().IsRegular() {
		if statErr != nil {
			return statErr
		}
		return fmt.Errorf("not a regular file: %s", clean)
	}
	// #nosec G304 -- config path is provided intentionally by the user/CI; cleaned and validated above
	f, err := os.Open(clean)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	return yaml.NewDecoder(f).Decode(c)
}

// ResolveSecret returns the secret from the first configured source.
func (c *ConfigDoc) ResolveSecret() (string, error) {
	if c.Secret != "" {
		return credential.Resolve(c.Secret)
	}
	if name, ok := util.TrimEmptyCheck(c.SecretFromEnv); ok {
		return credential.Resolve("env:" + name)
	}
	if key, ok := util.TrimEmptyCheck(c.SecretFromKeyring); ok {
		return credential.Get(key)
	}
	if c.BaseURL != "" && c.Identity != "" {
		// Fall back to the entry `zephyrrun login --save` writes.
		if v, err := credential.Get(credential.KeyFor(c.BaseURL, c.Identity)); err == nil {
			return v, nil
		}
	}
	return "", fmt.Errorf("no secret configured (set secret, secret_from_env or secret_from_keyring)")
}

func (c *ConfigDoc) Credentials() (zephyrrun.Credentials, error) {
	secret, err := c.ResolveSecret()
	if err != nil {
		return zephyrrun.Credentials{}, err
	}
	var scheme zephyrrun.Scheme
	if s, ok := util.TrimEmptyCheck(c.Scheme); ok {
		if scheme, err = zephyrrun.ParseScheme(s); err != nil {
			return zephyrrun.Credentials{}, err
		}
	}
	return zephyrrun.NewCredentials(c.Identity, secret, scheme)
}

func (c *ConfigDoc) order() ([]zephyrrun.Scheme, error) {
	var out []zephyrrun.Scheme
	for _, s := range c.Order {
		sc, err := zephyrrun.ParseScheme(s)
		if err != nil {
			return nil, fmt.Errorf("order: %w", err)
		}
		out = append(out, sc)
	}
	return out, nil
}

// ClientOptions builds client options. history may be nil.
func (c *ConfigDoc) ClientOptions(logger *zephyrrun.Logger, history *zephyrrun.Store) (zephyrrun.Options, error) {
	base, ok := util.TrimEmptyCheck(c.BaseURL)
	if !ok {
		return zephyrrun.Options{}, fmt.Errorf("base_url is required")
	}
	creds, err := c.Credentials()
	if err != nil {
		return zephyrrun.Options{}, err
	}
	order, err := c.order()
	if err != nil {
		return zephyrrun.Options{}, err
	}
	var timeout time.Duration
	if s, ok := util.TrimEmptyCheck(c.Client.Timeout); ok {
		if timeout, err = time.ParseDuration(s); err != nil {
			return zephyrrun.Options{}, fmt.Errorf("client.timeout: %w", err)
		}
	}
	var strategies map[zephyrrun.Scheme]map[string]interface{}
	for name, opts := range c.Strategies {
		sc, err := zephyrrun.ParseScheme(name)
		if err != nil {
			return zephyrrun.Options{}, fmt.Errorf("strategies: %w", err)
		}
		if strategies == nil {
			strategies = map[zephyrrun.Scheme]map[string]interface{}{}
		}
		strategies[sc] = opts
	}
	return zephyrrun.Options{
		BaseURL:         base,
		Credentials:     creds,
		Order:           order,
		StrategyOptions: strategies,
		Insecure:        c.Client.Insecure,
		MinTLSVersion:   c.Client.MinTLSVersion,
		MaxTLSVersion:   c.Client.MaxTLSVersion,
		Timeout:         timeout,
		UserAgent:       c.Client.UserAgent,
		Logger:          logger,
		History:         history,
	}, nil
}

// StoreConfig returns the history store config, nil when history is disabled.
func (c *ConfigDoc) StoreConfig() *zephyrrun.StoreConfig {
	h := c.History
	if h.Disabled {
		return nil
	}
	cfg := &zephyrrun.StoreConfig{Table: h.Table}
	switch util.TrimAndLower(h.Type) {
	case "postgres", "postgresql", "pg":
		pg := h.Postgres
		cfg.Driver = zephyrrun.DriverPostgresql
		cfg.DriverConfig = &pg
	default:
		path := util.TrimWithDefault(h.SQLite.Path, constants.DefaultHistoryDBFile)
		cfg.Driver = zephyrrun.DriverSqlite
		cfg.DriverConfig = &zephyrrun.SqliteConfig{Path: path}
	}
	return cfg
}

// JWTSecret returns the relay secret, empty when the relay runs without auth.
func (c *ConfigDoc) JWTSecret() string {
	if c.Serve.JWTSecret != "" {
		return c.Serve.JWTSecret
	}
	if name, ok := util.TrimEmptyCheck(c.Serve.JWTSecretFromEnv); ok {
		return os.Getenv(name)
	}
	return ""
}

// SetupLogging configures the global logger based on config settings
func (c *ConfigDoc) SetupLogging() (*zephyrrun.Logger, error) {
	level := zephyrrun.LogLevelInfo
	if s := util.TrimAndLower(c.Logging.Level); s != "" {
		var valid bool
		if level, valid = zephyrrun.ParseLogLevel(s); !valid {
			return nil, fmt.Errorf("invalid logging level: %s (valid: error, warn, info, debug)", c.Logging.Level)
		}
	}

	format := util.TrimAndLower(c.Logging.Format)
	useColor := false
	if c.Logging.Color != nil {
		useColor = *c.Logging.Color
	} else if format == "color" || format == "colour" {
		useColor = true
	}

	var logger *zephyrrun.Logger
	switch format {
	case "json":
		logger = zephyrrun.NewJSONLogger(level)
	case "color", "colour":
		logger = zephyrrun.NewColorLogger(level)
	case "text", "":
		if useColor {
			logger = zephyrrun.NewColorLogger(level)
		} else {
			logger = zephyrrun.NewLogger(level)
		}
	default:
		return nil, fmt.Errorf("invalid logging format: %s (valid: text, json, color)", c.Logging.Format)
	}

	maskingEnabled := true
	if c.Logging.MaskSensitive != nil {
		maskingEnabled = *c.Logging.MaskSensitive
	}
	logger.EnableMasking(maskingEnabled)
	zephyrrun.SetDefaultLogger(logger)

	logger.Debug("logging configured",
		"level", util.TrimWithDefault(util.TrimAndLower(c.Logging.Level), "info"),
		"format", format,
		"color", useColor,
		"mask_sensitive", maskingEnabled)
	return logger, nil
}
