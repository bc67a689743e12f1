package checkout

import (
	"errors"

	"github.com/romana/rlog"
	"gorm.io/gorm"

	"slopcel/constants"
	"slopcel/model"
)

// resolveUser picks the owner for an order, in strict priority order: the
// live authenticated session, then the identity recorded in checkout
// metadata, then a case-insensitive match on the payer's email. Nil means a
// guest order, linkable later.
func (ctx *HandlerContext) resolveUser(sessionUserId, metadataUserId, payerEmail string) *string {
	if sessionUserId != "" {
		return &sessionUserId
	}
	if metadataUserId != "" && metadataUserId != constants.GUEST_USER_SENTINEL {
		return &metadataUserId
	}
	if payerEmail != "" {
		profile := model.Profile{}
		errDb := ctx.db.Where("LOWER(email) = LOWER(?)", payerEmail).First(&profile).Error
		if errDb == nil {
			return &profile.ID
		}
		if !errors.Is(errDb, gorm.ErrRecordNotFound) {
			rlog.Errorf("User lookup by email failed: %s", errDb.Error())
		}
	}
	return nil
}
