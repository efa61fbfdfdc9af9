package bearer

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/loykin/zephyrrun/internal/auth/common"
	"github.com/loykin/zephyrrun/internal/httpc"
	"github.com/loykin/zephyrrun/internal/session"
	"golang.org/x/oauth2"
)

// Config holds options for Bearer authentication. When TokenURL is set the secret is
// exchanged for an access token through the OAuth2 password grant first.
type Config struct {
	Header       string        `mapstructure:"header"`
	TokenURL     string        `mapstructure:"token_url"`
	ClientID     string        `mapstructure:"client_id"`
	ClientSecret string        `mapstructure:"client_secret"`
	Scopes       []string      `mapstructure:"scopes"`
	ExpirySkew   time.Duration `mapstructure:"expiry_skew"`
}

// ToMap returns the option map for the bearer strategy factory.
func (c Config) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"header":        c.Header,
		"token_url":     c.TokenURL,
		"client_id":     c.ClientID,
		"client_secret": c.ClientSecret,
	}
	if len(c.Scopes) > 0 {
		m["scopes"] = c.Scopes
	}
	return m
}

// Strategy presents "Bearer <token>".
type Strategy struct {
	C   Config
	Now func() time.Time
}

func (Strategy) Scheme() session.Scheme { return session.SchemeBearer }

func (s Strategy) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s Strategy) Attempt(ctx context.Context, creds session.Credentials, st *session.State, tr httpc.Transport) common.Outcome {
	token := strings.TrimSpace(creds.Secret())
	if strings.TrimSpace(s.C.TokenURL) != "" {
		tok, out, ok := s.exchange(ctx, creds, tr)
		if !ok {
			return out
		}
		token = tok
	}
	if token == "" {
		return common.Soft(0, "bearer: empty token")
	}
	if exp, ok := jwtExpiry(token); ok && !s.now().Before(exp.Add(-s.C.ExpirySkew)) {
		return common.Invalid(0, "bearer: token expired at "+exp.UTC().Format(time.RFC3339))
	}
	st.SetHeader(common.HeaderOrDefault(s.C.Header), "Bearer "+token)
	return common.Succeeded("bearer header computed")
}

// jwtExpiry reads exp from a JWT without verifying the signature. Opaque tokens
// (Jira personal access tokens) report ok=false.
func jwtExpiry(token string) (time.Time, bool) {
	if strings.Count(token, ".") != 2 {
		return time.Time{}, false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// exchange runs the password grant over the session transport.
func (s Strategy) exchange(ctx context.Context, creds session.Credentials, tr httpc.Transport) (string, common.Outcome, bool) {
	if creds.Identity() == "" || strings.TrimSpace(s.C.ClientID) == "" {
		return "", common.Soft(0, "bearer: client_id and identity are required for token exchange"), false
	}
	hc := &http.Client{Transport: httpc.AsRoundTripper(tr)}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, hc)
	cfg := &oauth2.Config{
		ClientID:     strings.TrimSpace(s.C.ClientID),
		ClientSecret: strings.TrimSpace(s.C.ClientSecret),
		Endpoint: oauth2.Endpoint{
			TokenURL:  strings.TrimSpace(s.C.TokenURL),
			AuthStyle: oauth2.AuthStyleInParams,
		},
		Scopes: s.C.Scopes,
	}
	tok, err := cfg.PasswordCredentialsToken(ctx, creds.Identity(), creds.Secret())
	if err != nil {
		var te *httpc.TransportError
		if errors.As(err, &te) {
			return "", common.Transport(te), false
		}
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil {
			code := re.Response.StatusCode
			if code == http.StatusBadRequest || code == http.StatusUnauthorized {
				return "", common.Invalid(code, "bearer: token exchange rejected: "+re.ErrorCode), false
			}
			return "", common.Soft(code, "bearer: token exchange failed"), false
		}
		return "", common.Soft(0, "bearer: token exchange failed: "+err.Error()), false
	}
	if tok == nil || strings.TrimSpace(tok.AccessToken) == "" {
		return "", common.Soft(0, "bearer: token endpoint returned no access token"), false
	}
	return tok.AccessToken, common.Outcome{}, true
}
