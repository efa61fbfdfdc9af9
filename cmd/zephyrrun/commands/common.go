package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/loykin/zephyrrun"
	"github.com/loykin/zephyrrun/cmd/zephyrrun/config"
	"github.com/spf13/viper"
)

const DefaultConfigPath = "./zephyrrun.yaml"

// loadConfig reads the config file named by --config (optional) and applies the
// flag/environment overrides bound in viper.
func loadConfig() (*config.ConfigDoc, error) {
	v := viper.GetViper()
	doc := &config.ConfigDoc{}
	if p := strings.TrimSpace(v.GetString("config")); p != "" {
		// A missing default file is fine: everything can come from flags and environment.
		if err := doc.Load(p); err != nil && !(p == DefaultConfigPath && errors.Is(err, fs.ErrNotExist)) {
			return nil, fmt.Errorf("load config %s: %w", p, err)
		}
	}
	if s := v.GetString("base_url"); s != "" {
		doc.BaseURL = s
	}
	if s := v.GetString("identity"); s != "" {
		doc.Identity = s
	}
	if s := v.GetString("secret"); s != "" {
		doc.Secret = s
	}
	if s := v.GetString("scheme"); s != "" {
		doc.Scheme = s
	}
	if order := v.GetStringSlice("order"); len(order) > 0 {
		doc.Order = order
	}
	if v.GetBool("no_history") {
		doc.History.Disabled = true
	}
	return doc, nil
}

// session bundles what every remote command needs. close releases the history store.
type session struct {
	doc    *config.ConfigDoc
	client *zephyrrun.Client
	logger *zephyrrun.Logger
}

func (s *session) close() { _ = s.client.Close() }

func openSession(ctx context.Context, withHistory bool) (*session, error) {
	doc, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := doc.SetupLogging()
	if err != nil {
		return nil, err
	}
	var history *zephyrrun.Store
	if sc := doc.StoreConfig(); withHistory && sc != nil {
		if history, err = zephyrrun.OpenStore(ctx, *sc); err != nil {
			return nil, err
		}
	}
	opts, err := doc.ClientOptions(logger, history)
	if err != nil {
		_ = history.Close()
		return nil, err
	}
	c, err := zephyrrun.NewClient(opts)
	if err != nil {
		_ = history.Close()
		return nil, err
	}
	return &session{doc: doc, client: c, logger: logger}, nil
}

func optionalComment(flag string, set bool) *string {
	if !set {
		return nil
	}
	return &flag
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
