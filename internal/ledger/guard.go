package ledger

import "conti/internal/core"

// Authorize returns core.ErrForbidden unless actingUserID owns r.
func Authorize(actingUserID int64, r core.Record) error {
	if r.UserID != actingUserID {
		return core.ErrForbidden
	}
	return nil
}
