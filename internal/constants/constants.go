package constants

import "time"

// Remote API surface, relative to the configured base URL.
const (
	LoginPagePath       = "/login.jsp"
	DashboardPath       = "/secure/Dashboard.jspa"
	SessionPath         = "/rest/auth/1/session"
	MyselfPath          = "/rest/api/2/myself"
	ProjectPathFmt      = "/rest/api/2/project/%s"
	CyclePath           = "/rest/zapi/latest/cycle"
	ExecutionPath       = "/rest/zapi/latest/execution"
	ExecuteOnePathFmt   = "/rest/zapi/latest/execution/%s/execute"
	ExecuteBulkPath     = "/rest/zapi/latest/execution/execute/bulk"
	ServerInfoPath      = "/rest/api/2/serverInfo"
	ZapiModuleInfoPath  = "/rest/zapi/latest/moduleInfo"
	ZapiStatusPath      = "/rest/zapi/latest/util/testExecutionStatus"
	ZapiCycleAltPath    = "/rest/zapi/1.0/cycle"
	ZapiExecAltPath     = "/rest/zapi/1.0/execution"
	SearchPath          = "/rest/api/2/search"
	SearchTestIssueJQL  = "issuetype=Test"
	DummyProjectID      = "1"
	DummyCycleID        = "-1"
	DummyMaxResults     = "1"
	DefaultIdentityName = "unknown"
)

// Cookie and header names involved in session negotiation.
const (
	HeaderAtlassianTok  = "X-Atlassian-Token"
	HeaderXSRF          = "X-XSRF-TOKEN"
	HeaderSeraphReason  = "X-Seraph-LoginReason"
	CookieXSRFAtlassian = "atlassian.xsrf.token"
	CookieXSRFGeneric   = "XSRF-TOKEN"
	NoCheck             = "no-check"
)

// Client defaults.
const (
	DefaultTimeout   = 30 * time.Second
	DefaultUserAgent = "zephyrrun"
)

// History store defaults.
const (
	DefaultHistoryTable   = "status_transitions"
	DefaultHistoryDBFile  = "zephyrrun.db"
	DefaultPostgresPort   = 5432
	DefaultPostgresSSL    = "disable"
	DefaultPostgresMaxOC  = 10
	DefaultPostgresMaxIdl = 2
	DefaultConnLifetime   = 5 * time.Minute
	DefaultConnIdleTime   = 1 * time.Minute
)

// Relay server defaults.
const (
	DefaultServeAddr = "127.0.0.1:8089"
	DefaultJWTSkew   = 5 * time.Second
)
