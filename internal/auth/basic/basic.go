package basic

import (
	"context"
	"encoding/base64"
	"strings"

	"github.com/loykin/zephyrrun/internal/auth/common"
	"github.com/loykin/zephyrrun/internal/httpc"
	"github.com/loykin/zephyrrun/internal/session"
)

// Config holds options for Basic authentication.
type Config struct {
	Header string `mapstructure:"header"`
}

// ToMap returns the option map for the basic strategy factory.
func (c Config) ToMap() map[string]interface{} {
	return map[string]interface{}{"header": c.Header}
}

// HeaderValue builds "Basic base64(identity:secret)".
func HeaderValue(identity, secret string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(identity+":"+secret))
}

// Strategy computes the header locally; verification is left to the negotiator.
type Strategy struct{ C Config }

func (Strategy) Scheme() session.Scheme { return session.SchemeBasic }

func (s Strategy) Attempt(_ context.Context, creds session.Credentials, st *session.State, _ httpc.Transport) common.Outcome {
	if strings.TrimSpace(creds.Identity()) == "" {
		return common.Soft(0, "basic: identity is empty")
	}
	st.SetHeader(common.HeaderOrDefault(s.C.Header), HeaderValue(creds.Identity(), creds.Secret()))
	return common.Succeeded("basic header computed")
}
