package common

import (
	"bytes"
	"net/http"
	"regexp"
	"strings"

	"github.com/loykin/zephyrrun/internal/constants"
	"github.com/loykin/zephyrrun/internal/httpc"
	"github.com/loykin/zephyrrun/internal/util"
)

// Markers used to read HTML served where JSON was expected. All comparisons are
// case-insensitive substring matches.
var (
	DefaultChallengeMarkers     = []string{"captcha", "AUTHENTICATION_DENIED"}
	DefaultAuthenticatedMarkers = []string{"logout", "log out", "ajs-remote-user-fullname"}
	DefaultLoginFormMarkers     = []string{`id="login-form"`, `name="os_password"`, `id="login-form-password"`}
)

var (
	metaTokenNameFirst = regexp.MustCompile(`(?is)<meta[^>]+name=["'](?:atlassian-token|ajs-atl-token|csrf-token|_csrf)["'][^>]*content=["']([^"']+)["']`)
	metaTokenContFirst = regexp.MustCompile(`(?is)<meta[^>]+content=["']([^"']+)["'][^>]*name=["'](?:atlassian-token|ajs-atl-token|csrf-token|_csrf)["']`)
	hiddenAtlToken     = regexp.MustCompile(`(?is)<input[^>]+name=["']atl_token["'][^>]*value=["']([^"']+)["']`)
	remoteUserMeta     = regexp.MustCompile(`(?is)<meta[^>]+name=["']ajs-remote-user["'][^>]*content=["']([^"']+)["']`)
)

// LooksLikeHTML is true for text/html responses and for bodies opening with markup.
func LooksLikeHTML(resp *httpc.Response) bool {
	if resp == nil {
		return false
	}
	if resp.ContentTypeIs("text/html") {
		return true
	}
	b := bytes.TrimSpace(resp.Body)
	return bytes.HasPrefix(b, []byte("<"))
}

// ExtractMetaToken finds an XSRF token embedded in a page: a meta tag in either attribute
// order, or a hidden atl_token input.
func ExtractMetaToken(body []byte) string {
	for _, re := range []*regexp.Regexp{metaTokenNameFirst, metaTokenContFirst, hiddenAtlToken} {
		if m := re.FindSubmatch(body); len(m) == 2 {
			return strings.TrimSpace(string(m[1]))
		}
	}
	return ""
}

// IsChallenge reports a bot challenge in headers or body.
func IsChallenge(resp *httpc.Response, markers []string) bool {
	if resp == nil {
		return false
	}
	if reason := resp.Header.Get(constants.HeaderSeraphReason); reason != "" {
		if util.ContainsAnyFold(reason, "AUTHENTICATION_DENIED", "captcha") {
			return true
		}
	}
	return util.ContainsAnyFold(string(resp.Body), markers...)
}

// IsAuthenticatedPage reports an HTML page served to a logged-in user: a logout affordance
// or a populated remote-user meta, and no login form.
func IsAuthenticatedPage(body []byte, markers []string) bool {
	s := string(body)
	if util.ContainsAnyFold(s, DefaultLoginFormMarkers...) {
		return false
	}
	if remoteUserMeta.Match(body) {
		return true
	}
	return util.ContainsAnyFold(s, markers...)
}

// IsLoginRedirect reports a 3xx pointing at a login surface.
func IsLoginRedirect(resp *httpc.Response) bool {
	if resp == nil || resp.StatusCode < 300 || resp.StatusCode >= 400 {
		return false
	}
	loc := resp.Header.Get("Location")
	return util.ContainsAnyFold(loc, "login", "permissionviolation")
}

// SeraphFailed reports Jira's explicit bad-credentials header.
func SeraphFailed(resp *httpc.Response) bool {
	return resp != nil && resp.StatusCode != http.StatusOK &&
		util.ContainsAnyFold(resp.Header.Get(constants.HeaderSeraphReason), "AUTHENTICATED_FAILED")
}
