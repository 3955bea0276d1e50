// Package session orchestrates the credential lifecycle: login, logout,
// restoring a persisted session at startup, tearing down on authorization
// failure, and switching the active branch.
package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/tidwall/gjson"

	"github.com/parishdesk/console/internal/credential"
	"github.com/parishdesk/console/internal/errors"
	"github.com/parishdesk/console/internal/httputil"
	"github.com/parishdesk/console/internal/identity"
	"github.com/parishdesk/console/internal/logging"
	"github.com/parishdesk/console/internal/scope"
)

// State is the session lifecycle state.
type State int

const (
	Unauthenticated State = iota
	Authenticating
	Authenticated
	Expired
	LoggedOut
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	case Expired:
		return "expired"
	case LoggedOut:
		return "logged_out"
	default:
		return "unknown"
	}
}

// Notifier surfaces user-visible notices. The web shell renders them as
// toasts; tests record them.
type Notifier interface {
	SessionExpired()
	SignedOut()
	BranchChanged(branchID int)
}

// Navigator drives top-level navigation of the shell.
type Navigator interface {
	ToLogin()
	Reload()
}

// Config configures the controller.
type Config struct {
	// AuthURL is the absolute URL of the authentication endpoint.
	AuthURL     string
	Credentials credential.Store
	Scope       *scope.Register
	Notifier    Notifier
	Navigator   Navigator
	Logger      *logging.Logger
	Timeout     time.Duration
}

// Controller owns the session state machine:
// Unauthenticated -> Authenticating -> Authenticated -> (Expired | LoggedOut)
// -> Unauthenticated.
type Controller struct {
	mu       sync.Mutex
	state    State
	identity *identity.Identity

	creds      credential.Store
	scope      *scope.Register
	notifier   Notifier
	navigator  Navigator
	logger     *logging.Logger
	authURL    string
	httpClient *http.Client

	restoreOnce sync.Once
	ready       chan struct{}
}

// NewController creates a controller in the Unauthenticated state.
// The login call deliberately uses its own plain HTTP client: a rejected
// login also answers 401, and that must not trip the pipeline's session
// teardown.
func NewController(cfg Config) *Controller {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Controller{
		state:      Unauthenticated,
		creds:      cfg.Credentials,
		scope:      cfg.Scope,
		notifier:   cfg.Notifier,
		navigator:  cfg.Navigator,
		logger:     cfg.Logger,
		authURL:    cfg.AuthURL,
		httpClient: &http.Client{Timeout: timeout},
		ready:      make(chan struct{}),
	}
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Identity returns the derived identity, nil when not authenticated.
func (c *Controller) Identity() *identity.Identity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.identity
}

// Ready is closed once Restore has completed, success or failure. The route
// guard blocks on it so protected content never renders before the session
// state is known.
func (c *Controller) Ready() <-chan struct{} {
	return c.ready
}

// Login exchanges credentials for a token, persists it and derives the
// identity. On rejection nothing is mutated locally and the server's
// message is surfaced to the caller; retries are the caller's concern.
func (c *Controller) Login(ctx context.Context, email, password string) error {
	c.mu.Lock()
	if c.state == Authenticating {
		c.mu.Unlock()
		return errors.Internal("Login already in progress", nil)
	}
	prev := c.state
	c.state = Authenticating
	c.mu.Unlock()

	token, err := c.exchangeCredentials(ctx, email, password)
	if err != nil {
		c.setState(prev)
		return err
	}

	id, err := identity.Decode(token)
	if err != nil {
		c.setState(prev)
		return err
	}

	if err := c.creds.Save(token); err != nil {
		c.setState(prev)
		return errors.Internal("Failed to persist credential", err)
	}

	c.mu.Lock()
	c.identity = id
	c.state = Authenticated
	c.mu.Unlock()

	if c.scope != nil {
		c.scope.SetDefault(id.DefaultBranchID)
	}

	if c.logger != nil {
		c.logger.WithFields(map[string]interface{}{
			"email":  id.Email,
			"church": id.ChurchID,
		}).Info("signed in")
	}
	return nil
}

// exchangeCredentials posts to the auth endpoint and extracts the token
// field from the response body.
func (c *Controller) exchangeCredentials(ctx context.Context, email, password string) (string, error) {
	payload, err := json.Marshal(map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return "", fmt.Errorf("marshal login request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authURL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errors.Internal("Authentication service unreachable", err)
	}
	defer resp.Body.Close()

	body, _, err := httputil.ReadAllWithLimit(resp.Body, 64<<10)
	if err != nil {
		return "", fmt.Errorf("read login response: %w", err)
	}

	if resp.StatusCode >= 400 {
		msg := gjson.GetBytes(body, "message").String()
		if msg == "" {
			msg = gjson.GetBytes(body, "error.message").String()
		}
		return "", errors.InvalidCredentials(msg)
	}

	token := gjson.GetBytes(body, "token").String()
	if token == "" {
		return "", errors.Internal("Authentication response carried no token", nil)
	}
	return token, nil
}

// Logout clears the credential and identity. Calling it on an already
// signed-out session is a no-op, which keeps concurrent teardowns safe.
func (c *Controller) Logout(redirect bool) {
	c.mu.Lock()
	if c.state == Unauthenticated {
		c.mu.Unlock()
		return
	}
	c.state = LoggedOut
	c.identity = nil
	c.mu.Unlock()

	if err := c.creds.Clear(); err != nil && c.logger != nil {
		c.logger.WithError(err).Warn("failed to clear credential store")
	}

	c.setState(Unauthenticated)

	if c.notifier != nil {
		c.notifier.SignedOut()
	}
	if redirect && c.navigator != nil {
		c.navigator.ToLogin()
	}
}

// Restore rebuilds the session from the persisted token. It runs once; the
// Ready channel is closed when it finishes regardless of outcome. An
// undecodable token is cleaned up silently, without the signed-out notice a
// manual logout shows.
func (c *Controller) Restore(ctx context.Context) {
	c.restoreOnce.Do(func() {
		defer close(c.ready)

		token, ok := c.creds.Read()
		if !ok {
			return
		}

		id, err := identity.Decode(token)
		if err != nil {
			if c.logger != nil {
				c.logger.WithContext(ctx).WithError(err).Warn("persisted token is not decodable, clearing")
			}
			if clearErr := c.creds.Clear(); clearErr != nil && c.logger != nil {
				c.logger.WithError(clearErr).Warn("failed to clear credential store")
			}
			return
		}

		c.mu.Lock()
		c.identity = id
		c.state = Authenticated
		c.mu.Unlock()

		if c.scope != nil {
			c.scope.SetDefault(id.DefaultBranchID)
		}

		if c.logger != nil {
			c.logger.WithContext(ctx).WithFields(map[string]interface{}{
				"email": id.Email,
			}).Info("session restored")
		}
	})
}

// HandleAuthFailure is the pipeline's teardown callback. The first failure
// of a batch expires the session, clears the store, shows the
// session-expired notice and redirects; the rest are no-ops.
func (c *Controller) HandleAuthFailure() {
	c.mu.Lock()
	if c.state != Authenticated {
		c.mu.Unlock()
		return
	}
	c.state = Expired
	c.identity = nil
	c.mu.Unlock()

	if err := c.creds.Clear(); err != nil && c.logger != nil {
		c.logger.WithError(err).Warn("failed to clear credential store")
	}

	c.setState(Unauthenticated)

	if c.notifier != nil {
		c.notifier.SessionExpired()
	}
	if c.navigator != nil {
		c.navigator.ToLogin()
	}
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}
