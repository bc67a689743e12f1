package checkout

import (
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/romana/rlog"
	"gorm.io/gorm"

	"slopcel/constants"
	"slopcel/custom/provider"
	"slopcel/custom/tier"
	"slopcel/model"
)

// ErrPaymentNotSucceeded is returned by Reconcile when the provider does not
// confirm the payment as succeeded. No order is fabricated in that case.
var ErrPaymentNotSucceeded = errors.New(constants.PAYMENT_NOT_SUCCEEDED)

// findOrder looks an order up by provider payment id first, then by session
// id. A session row can predate the payment id when the order was created
// optimistically at checkout time.
func (ctx *HandlerContext) findOrder(p provider.Payment) (*model.Order, error) {
	if p.PaymentId != "" {
		order := model.Order{}
		errDb := ctx.db.Where("provider = ? AND provider_payment_id = ?", p.Provider, p.PaymentId).First(&order).Error
		if errDb == nil {
			return &order, nil
		}
		if !errors.Is(errDb, gorm.ErrRecordNotFound) {
			return nil, errDb
		}
	}
	if p.SessionId != "" {
		order := model.Order{}
		errDb := ctx.db.Where("provider = ? AND provider_session_id = ?", p.Provider, p.SessionId).First(&order).Error
		if errDb == nil {
			return &order, nil
		}
		if !errors.Is(errDb, gorm.ErrRecordNotFound) {
			return nil, errDb
		}
	}
	return nil, nil
}

// Reconcile converges authoritative provider payment state into exactly one
// order row. Safe to call any number of times for the same payment, from any
// trigger (webhook, client capture, fallback poll), in any order: the first
// successful call settles the row and later calls find it and change nothing.
func (ctx *HandlerContext) Reconcile(p provider.Payment, sessionUserId string) (*model.Order, error) {
	if p.Status != provider.STATUS_SUCCEEDED {
		order, errDb := ctx.findOrder(p)
		if errDb != nil {
			return nil, errDb
		}
		if order != nil && order.Status == constants.ORDER_STATUS_PENDING {
			errDb = ctx.db.Model(&model.Order{}).Where("id = ?", order.ID).
				Update("status", constants.ORDER_STATUS_FAILED).Error
			if errDb != nil {
				return nil, errDb
			}
			order.Status = constants.ORDER_STATUS_FAILED
			rlog.Infof("Order %s marked failed (%s payment status %s)", order.ID, p.Provider, p.Status)
		}
		return order, ErrPaymentNotSucceeded
	}

	order, errDb := ctx.findOrder(p)
	if errDb != nil {
		return nil, errDb
	}
	if order == nil {
		order, errDb = ctx.createCompletedOrder(p, sessionUserId)
	} else {
		errDb = ctx.completeExistingOrder(order, p, sessionUserId)
	}
	if errDb != nil {
		return nil, errDb
	}

	// Position allocation is deliberately non-fatal: a completed payment is
	// never rolled back because the leaderboard write failed. A failed order
	// that stayed failed earns nothing.
	if order.Status == constants.ORDER_STATUS_COMPLETED && order.HallOfFamePosition == nil {
		pos, errAlloc := ctx.allocator.AllocateNext(order.ID, order.Amount)
		if errAlloc != nil {
			rlog.Errorf("Position allocation failed for order %s (provider %s): %s", order.ID, p.Provider, errAlloc.Error())
		} else if pos != nil {
			order.HallOfFamePosition = pos
			rlog.Infof("Order %s assigned hall of fame position %d", order.ID, *pos)
		}
	}
	return order, nil
}

// completeExistingOrder fills in whatever the pending row is still missing
// and marks it completed. Fields already set are left untouched, which is
// what makes re-delivery a no-op.
func (ctx *HandlerContext) completeExistingOrder(order *model.Order, p provider.Payment, sessionUserId string) error {
	updates := map[string]interface{}{}
	if order.ProviderPaymentId == nil && p.PaymentId != "" {
		updates["provider_payment_id"] = p.PaymentId
	}
	if order.ProviderSessionId == nil && p.SessionId != "" {
		updates["provider_session_id"] = p.SessionId
	}
	if order.PayerEmail == nil && p.PayerEmail != "" {
		updates["payer_email"] = p.PayerEmail
	}
	if order.UserId == nil {
		if userId := ctx.resolveUser(sessionUserId, p.MetadataUserId, p.PayerEmail); userId != nil {
			updates["user_id"] = *userId
		}
	}
	// Only a pending order completes here. failed and completed are terminal
	// for the reconciler; a late success against a failed row backfills
	// references but never moves it out of failed.
	if order.Status == constants.ORDER_STATUS_PENDING {
		updates["status"] = constants.ORDER_STATUS_COMPLETED
	} else if order.Status == constants.ORDER_STATUS_FAILED {
		rlog.Infof("Order %s is failed; succeeded payment %s leaves it terminal", order.ID, p.PaymentId)
	}
	if len(updates) == 0 {
		return nil
	}

	errDb := ctx.db.Model(&model.Order{}).Where("id = ?", order.ID).Updates(updates).Error
	if errDb != nil {
		return errDb
	}
	if v, ok := updates["provider_payment_id"].(string); ok {
		order.ProviderPaymentId = &v
	}
	if v, ok := updates["provider_session_id"].(string); ok {
		order.ProviderSessionId = &v
	}
	if v, ok := updates["payer_email"].(string); ok {
		order.PayerEmail = &v
	}
	if v, ok := updates["user_id"].(string); ok {
		order.UserId = &v
	}
	if _, ok := updates["status"]; ok {
		order.Status = constants.ORDER_STATUS_COMPLETED
	}
	return nil
}

// createCompletedOrder is the lazy creation path: the provider confirms
// success but no row exists yet (webhook won the race against checkout-time
// creation, or the pending insert failed). A duplicate-insert race resolves
// to the existing row via the unique provider-id indexes.
func (ctx *HandlerContext) createCompletedOrder(p provider.Payment, sessionUserId string) (*model.Order, error) {
	tierName := p.Tier
	if tierName == "" {
		if t, ok := tier.ByAmount(p.Amount); ok {
			tierName = t.Name
		}
	}

	order := model.Order{
		ID:       uuid.NewString(),
		Provider: p.Provider,
		Amount:   p.Amount,
		Tier:     tierName,
		Status:   constants.ORDER_STATUS_COMPLETED,
		UserId:   ctx.resolveUser(sessionUserId, p.MetadataUserId, p.PayerEmail),
	}
	if p.PaymentId != "" {
		order.ProviderPaymentId = &p.PaymentId
	}
	if p.SessionId != "" {
		order.ProviderSessionId = &p.SessionId
	}
	if p.PayerEmail != "" {
		order.PayerEmail = &p.PayerEmail
	}

	errDb := ctx.db.Create(&order).Error
	if errDb != nil {
		if isUniqueViolation(errDb) {
			rlog.Infof("Duplicate order insert for %s %s/%s, converging on existing row", p.Provider, p.PaymentId, p.SessionId)
			existing, errFind := ctx.findOrder(p)
			if errFind != nil {
				return nil, errFind
			}
			if existing != nil {
				if errUpd := ctx.completeExistingOrder(existing, p, sessionUserId); errUpd != nil {
					return nil, errUpd
				}
				return existing, nil
			}
		}
		return nil, errDb
	}
	rlog.Infof("Order %s created as %s for %s payment %s", order.ID, order.Status, p.Provider, p.PaymentId)
	return &order, nil
}

func isUniqueViolation(err error) bool {
	pgErr := &pgconn.PgError{}
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
