package checkout

import (
	"github.com/romana/rlog"

	"slopcel/model"
)

// LinkOrdersByEmail retroactively attaches orders to the authenticated user.
// Two passes: orders held by duplicate accounts sharing the same email, then
// unclaimed guest orders whose payer email matches. Returns the number of
// orders linked; failures are logged and reported as zero so the caller's
// session is never broken by a linking problem.
func (ctx *HandlerContext) LinkOrdersByEmail(userId, email string) int {
	if userId == "" || email == "" {
		return 0
	}
	linked := int64(0)

	duplicateOwners := ctx.db.Model(&model.Profile{}).Select("id").
		Where("LOWER(email) = LOWER(?) AND id <> ?", email, userId)
	result := ctx.db.Model(&model.Order{}).
		Where("user_id IN (?)", duplicateOwners).
		Update("user_id", userId)
	if result.Error != nil {
		rlog.Errorf("Re-pointing duplicate-account orders for %s failed: %s", userId, result.Error.Error())
	} else {
		linked += result.RowsAffected
	}

	result = ctx.db.Model(&model.Order{}).
		Where("user_id IS NULL AND LOWER(payer_email) = LOWER(?)", email).
		Update("user_id", userId)
	if result.Error != nil {
		rlog.Errorf("Claiming guest orders for %s failed: %s", userId, result.Error.Error())
	} else {
		linked += result.RowsAffected
	}

	if linked > 0 {
		rlog.Infof("Linked %d orders to user %s", linked, userId)
	}
	return int(linked)
}
