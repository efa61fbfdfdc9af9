package auth

import (
	"fmt"
	"sync"

	"github.com/go-viper/mapstructure/v2"
	"github.com/loykin/zephyrrun/internal/auth/basic"
	"github.com/loykin/zephyrrun/internal/auth/bearer"
	"github.com/loykin/zephyrrun/internal/auth/form"
	"github.com/loykin/zephyrrun/internal/session"
)

// Factory builds a Strategy from a loosely-typed option map (usually a config file section).
type Factory func(opts map[string]interface{}) (Strategy, error)

var (
	mu        sync.RWMutex
	factories = map[session.Scheme]Factory{}
)

// Register installs or replaces the factory for a scheme.
func Register(scheme session.Scheme, f Factory) {
	if scheme == "" || f == nil {
		return
	}
	mu.Lock()
	factories[scheme] = f
	mu.Unlock()
}

// Build instantiates the strategy for scheme.
func Build(scheme session.Scheme, opts map[string]interface{}) (Strategy, error) {
	mu.RLock()
	f, ok := factories[scheme]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("auth: unsupported scheme %q", scheme)
	}
	return f(opts)
}

func decode(in map[string]interface{}, out interface{}) error {
	if len(in) == 0 {
		return nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(in)
}

func init() {
	Register(session.SchemeBasic, func(opts map[string]interface{}) (Strategy, error) {
		var c basic.Config
		if err := decode(opts, &c); err != nil {
			return nil, fmt.Errorf("auth: basic options: %w", err)
		}
		return basic.Strategy{C: c}, nil
	})
	Register(session.SchemeBearer, func(opts map[string]interface{}) (Strategy, error) {
		var c bearer.Config
		if err := decode(opts, &c); err != nil {
			return nil, fmt.Errorf("auth: bearer options: %w", err)
		}
		return bearer.Strategy{C: c}, nil
	})
	Register(session.SchemeSession, func(opts map[string]interface{}) (Strategy, error) {
		var c form.Config
		if err := decode(opts, &c); err != nil {
			return nil, fmt.Errorf("auth: session options: %w", err)
		}
		return form.Strategy{C: c}, nil
	})
}
