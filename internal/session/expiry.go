package session

import (
	"github.com/robfig/cron/v3"

	"github.com/parishdesk/console/internal/identity"
)

// StartExpirySweeper periodically re-decodes the stored token and expires
// the session as soon as the token stops decoding (typically: its exp
// passed), instead of waiting for the next 401 from the API. The cron spec
// is e.g. "@every 1m". The returned cron is already started; callers stop
// it on shutdown.
func (c *Controller) StartExpirySweeper(spec string) (*cron.Cron, error) {
	runner := cron.New()
	_, err := runner.AddFunc(spec, c.sweepExpiry)
	if err != nil {
		return nil, err
	}
	runner.Start()
	return runner, nil
}

func (c *Controller) sweepExpiry() {
	if c.State() != Authenticated {
		return
	}
	token, ok := c.creds.Read()
	if !ok {
		c.HandleAuthFailure()
		return
	}
	if _, err := identity.Decode(token); err != nil {
		if c.logger != nil {
			c.logger.WithError(err).Info("stored token expired, tearing down session")
		}
		c.HandleAuthFailure()
	}
}
