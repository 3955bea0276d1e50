package session

import "github.com/parishdesk/console/internal/errors"

// SwitchBranch changes the active branch and forces a full reload so no
// view keeps data fetched under the old scope. Requests already in flight
// were scoped at send time; the reload discards their results.
//
// Switching on an anonymous session is caller misuse and is rejected.
func (c *Controller) SwitchBranch(branchID int) error {
	if c.State() != Authenticated {
		return errors.Unauthorized("Branch switch requires an authenticated session")
	}

	c.scope.Set(branchID)

	if c.logger != nil {
		c.logger.WithFields(map[string]interface{}{
			"branch": branchID,
		}).Info("active branch changed")
	}

	if c.notifier != nil {
		c.notifier.BranchChanged(branchID)
	}
	if c.navigator != nil {
		c.navigator.Reload()
	}
	return nil
}
