package zephyrrun

import (
	"github.com/loykin/zephyrrun/internal/auth/basic"
	"github.com/loykin/zephyrrun/internal/auth/bearer"
	"github.com/loykin/zephyrrun/internal/auth/form"
)

// Typed wrappers for the built-in strategy options. Each ToMap result can be placed in
// Options.StrategyOptions under its scheme.

// BasicAuthConfig mirrors the internal basic.Config.
// Header defaults to "Authorization" when empty.
type BasicAuthConfig basic.Config

func (c BasicAuthConfig) ToMap() map[string]interface{} { return basic.Config(c).ToMap() }

// BearerAuthConfig mirrors the internal bearer.Config. With TokenURL set the secret is
// exchanged through the OAuth2 password grant before use.
type BearerAuthConfig bearer.Config

func (c BearerAuthConfig) ToMap() map[string]interface{} { return bearer.Config(c).ToMap() }

// SessionAuthConfig mirrors the internal form.Config (cookie session login).
type SessionAuthConfig form.Config

func (c SessionAuthConfig) ToMap() map[string]interface{} { return form.Config(c).ToMap() }
