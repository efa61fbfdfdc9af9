// Package zephyrrun reports automated test results to Jira Zephyr (ZAPI): it negotiates a
// session with the deployment, finds the execution of a test in a cycle and moves it to a
// new status.
package zephyrrun

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/loykin/zephyrrun/internal/auth"
	"github.com/loykin/zephyrrun/internal/common"
	"github.com/loykin/zephyrrun/internal/httpc"
	"github.com/loykin/zephyrrun/internal/probe"
	"github.com/loykin/zephyrrun/internal/session"
	"github.com/loykin/zephyrrun/internal/store"
	"github.com/loykin/zephyrrun/internal/zephyr"
)

// Options configures a Client.
type Options struct {
	BaseURL     string
	Credentials Credentials
	// Order overrides the strategy order (default basic, bearer, session).
	Order []Scheme
	// StrategyOptions are per-scheme option maps, see BasicAuthConfig and friends.
	StrategyOptions map[Scheme]map[string]interface{}

	Insecure      bool
	MinTLSVersion string
	MaxTLSVersion string
	Timeout       time.Duration
	UserAgent     string

	Logger *Logger
	// Transport replaces the default HTTP transport.
	Transport Transport
	// History receives one record per status transition when set.
	History *Store
}

// Client holds one logical session. Calls must not overlap: every call depends on cookies
// and tokens produced by the previous one.
type Client struct {
	opts       Options
	logger     *common.Logger
	tr         httpc.Transport
	st         *session.State
	negotiator *auth.Negotiator
	zapi       *zephyr.Client
	history    *store.Store
}

// NewClient validates opts and prepares an unauthenticated client. No network call is made.
func NewClient(opts Options) (*Client, error) {
	logger := common.OrDefault(opts.Logger)
	st, err := session.New(opts.BaseURL)
	if err != nil {
		return nil, err
	}
	tr := opts.Transport
	if tr == nil {
		rt, err := httpc.NewTransport(httpc.Options{
			Insecure:      opts.Insecure,
			MinTLSVersion: opts.MinTLSVersion,
			MaxTLSVersion: opts.MaxTLSVersion,
			Timeout:       opts.Timeout,
			UserAgent:     opts.UserAgent,
			Logger:        logger,
		})
		if err != nil {
			return nil, err
		}
		tr = rt
	}
	n := auth.NewNegotiator(tr, logger)
	n.Options = opts.StrategyOptions
	return &Client{
		opts:       opts,
		logger:     logger.WithComponent("client"),
		tr:         tr,
		st:         st,
		negotiator: n,
		zapi:       zephyr.New(st, tr, logger),
		history:    opts.History,
	}, nil
}

// Login negotiates a session using the configured strategy order.
func (c *Client) Login(ctx context.Context) (*LoginResult, error) {
	res, err := c.negotiator.Authenticate(ctx, c.opts.Credentials, c.st, c.opts.Order)
	if err != nil {
		return nil, err
	}
	c.logger.Info("logged in", "scheme", string(res.Scheme), "identity", res.Identity)
	return res, nil
}

func (c *Client) Authenticated() bool { return c.st.Authenticated() }

// Identity is the display name confirmed by the deployment, empty before Login.
func (c *Client) Identity() string { return c.st.Identity() }

func (c *Client) ensureSession(ctx context.Context) error {
	if c.st.Authenticated() {
		return nil
	}
	_, err := c.Login(ctx)
	return err
}

// Probe lazily checks candidates (nil means the default catalogue) with the current session.
// It does not log in first: unauthenticated probing reports AuthRequired.
func (c *Client) Probe(ctx context.Context, candidates []Candidate) iter.Seq[EndpointStatus] {
	if candidates == nil {
		candidates = probe.Catalogue()
	}
	return probe.Probe(ctx, c.st, c.tr, candidates, c.logger)
}

func (c *Client) ResolveProjectID(ctx context.Context, key string) (string, error) {
	if err := c.ensureSession(ctx); err != nil {
		return "", err
	}
	return c.zapi.ResolveProjectID(ctx, key)
}

func (c *Client) ListCycles(ctx context.Context, projectID, versionID string) ([]Cycle, error) {
	if err := c.ensureSession(ctx); err != nil {
		return nil, err
	}
	return c.zapi.ListCycles(ctx, projectID, versionID)
}

func (c *Client) FindCycleByName(ctx context.Context, projectID, versionID, name string) (Cycle, bool, error) {
	if err := c.ensureSession(ctx); err != nil {
		return Cycle{}, false, err
	}
	return c.zapi.FindCycleByName(ctx, projectID, versionID, name)
}

func (c *Client) ListExecutions(ctx context.Context, cycleID, projectID, versionID string) ([]Execution, error) {
	if err := c.ensureSession(ctx); err != nil {
		return nil, err
	}
	return c.zapi.ListExecutions(ctx, cycleID, projectID, versionID)
}

// FindExecution returns the first execution of testKey in the cycle; found is false on a miss.
func (c *Client) FindExecution(ctx context.Context, testKey, cycleID, projectID string) (Execution, bool, error) {
	if err := c.ensureSession(ctx); err != nil {
		return Execution{}, false, err
	}
	return c.zapi.FindExecution(ctx, testKey, cycleID, projectID)
}

// SetStatus moves one execution. The status name is checked before anything is sent.
func (c *Client) SetStatus(ctx context.Context, executionID, status string, comment *string) (UpdatedExecution, error) {
	code, err := zephyr.ParseStatus(status)
	if err != nil {
		return UpdatedExecution{}, err
	}
	id := strings.TrimSpace(executionID)
	if id == "" {
		return UpdatedExecution{}, zephyr.ErrEmptyExecutionID
	}
	if err := c.ensureSession(ctx); err != nil {
		return UpdatedExecution{}, err
	}
	out, err := c.zapi.SetStatus(ctx, id, status, comment)
	c.record(ctx, store.ModeSingle, []string{id}, code, comment, out.StatusCode, out.Acknowledged, err)
	return out, err
}

// SetStatusBulk moves every listed execution in one request.
func (c *Client) SetStatusBulk(ctx context.Context, executionIDs []string, status string, comment *string) (BulkResult, error) {
	code, err := zephyr.ParseStatus(status)
	if err != nil {
		return BulkResult{}, err
	}
	blank := true
	for _, id := range executionIDs {
		if strings.TrimSpace(id) != "" {
			blank = false
			break
		}
	}
	if blank {
		return BulkResult{}, zephyr.ErrEmptyExecutionList
	}
	if err := c.ensureSession(ctx); err != nil {
		return BulkResult{}, err
	}
	out, err := c.zapi.SetStatusBulk(ctx, executionIDs, status, comment)
	ids := out.IDs
	if ids == nil {
		ids = executionIDs
	}
	c.record(ctx, store.ModeBulk, ids, code, comment, out.StatusCode, out.Acknowledged, err)
	return out, err
}

// record appends to the history store. A failed write is logged and does not fail the
// transition, which has already happened remotely.
func (c *Client) record(ctx context.Context, mode string, ids []string, code StatusCode, comment *string, remote int, ack bool, opErr error) {
	if c.history == nil {
		return
	}
	t := store.Transition{
		Mode:         mode,
		ExecutionIDs: ids,
		Status:       int(code),
		StatusName:   code.String(),
		Comment:      comment,
		Identity:     c.st.Identity(),
		RemoteStatus: remote,
		Acknowledged: ack,
	}
	if opErr != nil {
		t.Failed = true
		t.Error = opErr.Error()
		var re *zephyr.RemoteRejectedError
		if errors.As(opErr, &re) {
			t.RemoteStatus = re.StatusCode
		}
	}
	if _, err := c.history.Record(ctx, t); err != nil {
		c.logger.Warn("failed to record transition history", "error", err)
	}
}

// History lists recorded transitions, newest first. Without a store it returns nothing.
func (c *Client) History(ctx context.Context, f HistoryFilter) ([]Transition, error) {
	return c.history.List(ctx, f)
}

// OpenStore opens the transition history store.
func OpenStore(ctx context.Context, cfg StoreConfig) (*Store, error) {
	s, err := store.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open history store: %w", err)
	}
	return s, nil
}

// Close releases the history store, if any. The session itself holds no resources.
func (c *Client) Close() error {
	return c.history.Close()
}
