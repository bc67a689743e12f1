package checkout

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/romana/rlog"
	"gorm.io/gorm"

	"slopcel/constants"
	"slopcel/custom/auth"
	"slopcel/custom/hof"
	"slopcel/custom/provider"
	"slopcel/custom/tier"
	"slopcel/model"
)

type HandlerContext struct {
	db        *gorm.DB
	adapters  map[string]provider.Adapter
	allocator *hof.Allocator
	siteUrl   string
}

type CreateCheckoutRequest struct {
	Tier     string `json:"tier"`
	Provider string `json:"provider"`
}

type CompleteCheckoutRequest struct {
	Provider  string `json:"provider"`
	PaymentId string `json:"payment_id"`
	SessionId string `json:"session_id"`
	// Capture asks the provider for a synchronous capture (PayPal return
	// page) instead of a plain status lookup.
	Capture bool `json:"capture"`
}

type OrderDetailsRequest struct {
	ProjectName     string `json:"project_name"`
	IdeaDescription string `json:"idea_description"`
}

func (ctx *HandlerContext) InitialHandlerContext(db *gorm.DB, adapters []provider.Adapter, allocator *hof.Allocator, siteUrl string) {
	ctx.db = db
	ctx.adapters = make(map[string]provider.Adapter, len(adapters))
	for _, a := range adapters {
		ctx.adapters[a.Name()] = a
	}
	ctx.allocator = allocator
	ctx.siteUrl = siteUrl
}

// CreateCheckout starts a provider checkout session and records an optimistic
// pending order. The pending insert is best effort: its failure never blocks
// returning the checkout URL.
func (ctx *HandlerContext) CreateCheckout(c *gin.Context) {
	req := CreateCheckoutRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	t, ok := tier.ByName(req.Tier)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": constants.UNKNOWN_TIER})
		return
	}
	adapter, ok := ctx.adapters[req.Provider]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": constants.UNKNOWN_PROVIDER})
		return
	}

	userId, userEmail, authed := auth.CurrentUser(c)
	metadataUserId := constants.GUEST_USER_SENTINEL
	if authed {
		metadataUserId = userId
	}

	spec := provider.CheckoutSpec{
		Tier:          t,
		UserId:        metadataUserId,
		CustomerEmail: userEmail,
		SuccessURL:    ctx.siteUrl + "/payment/success",
		CancelURL:     ctx.siteUrl + "/payment/cancelled",
	}
	session, err := adapter.CreateCheckout(c.Request.Context(), spec)
	if err != nil {
		rlog.Errorf("Create %s checkout for tier %s failed: %s", req.Provider, req.Tier, err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": constants.CREATE_CHECKOUT_FAILED})
		return
	}

	pending := model.Order{
		ID:                uuid.NewString(),
		Provider:          adapter.Name(),
		ProviderSessionId: &session.SessionId,
		Amount:            t.Amount,
		Tier:              t.Name,
		Status:            constants.ORDER_STATUS_PENDING,
	}
	if authed {
		pending.UserId = &userId
	}
	if userEmail != "" {
		pending.PayerEmail = &userEmail
	}
	if errDb := ctx.db.Create(&pending).Error; errDb != nil {
		rlog.Errorf("Pending order insert for %s session %s failed: %s", adapter.Name(), session.SessionId, errDb.Error())
	}

	c.JSON(http.StatusOK, gin.H{"checkoutUrl": session.Url, "sessionId": session.SessionId})
}

// SessionInfo gives the return page a normalized view of a checkout session
// so it can decide what to render.
func (ctx *HandlerContext) SessionInfo(c *gin.Context) {
	adapter, ok := ctx.adapters[c.Query("provider")]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": constants.UNKNOWN_PROVIDER})
		return
	}
	sessionId := c.Query("session_id")
	if sessionId == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": constants.MISSING_PAYMENT_REFERENCE})
		return
	}

	p, err := adapter.RetrieveSession(c.Request.Context(), sessionId)
	if err != nil {
		rlog.Errorf("Session lookup %s/%s failed: %s", adapter.Name(), sessionId, err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session lookup failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":        p.Status,
		"paymentId":     p.PaymentId,
		"customerEmail": p.PayerEmail,
		"amount":        p.Amount,
	})
}

// CompleteCheckout is the client-side trigger: capture confirmation or the
// fallback poll from the return page when no webhook has landed yet.
func (ctx *HandlerContext) CompleteCheckout(c *gin.Context) {
	req := CompleteCheckoutRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	adapter, ok := ctx.adapters[req.Provider]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": constants.UNKNOWN_PROVIDER})
		return
	}
	if req.PaymentId == "" && req.SessionId == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": constants.MISSING_PAYMENT_REFERENCE})
		return
	}

	var p provider.Payment
	var err error
	switch {
	case req.Capture:
		id := req.PaymentId
		if id == "" {
			id = req.SessionId
		}
		p, err = adapter.CapturePayment(c.Request.Context(), id)
	case req.PaymentId != "":
		p, err = adapter.RetrievePayment(c.Request.Context(), req.PaymentId)
	default:
		p, err = adapter.RetrieveSession(c.Request.Context(), req.SessionId)
	}
	if err != nil {
		rlog.Errorf("Payment lookup %s/%s%s failed: %s", req.Provider, req.PaymentId, req.SessionId, err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "payment lookup failed"})
		return
	}

	sessionUserId, _, _ := auth.CurrentUser(c)
	order, err := ctx.Reconcile(p, sessionUserId)
	if errors.Is(err, ErrPaymentNotSucceeded) {
		c.JSON(http.StatusBadRequest, gin.H{"error": constants.PAYMENT_NOT_SUCCEEDED, "status": p.Status})
		return
	}
	if err != nil {
		rlog.Errorf("Reconcile %s payment %s failed: %s", req.Provider, p.PaymentId, err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": constants.SAVE_ORDER_FAILED})
		return
	}
	c.JSON(http.StatusOK, order)
}

// Webhook receives provider push notifications. Provider identity comes from
// the route; the signature check is the only authentication.
func (ctx *HandlerContext) Webhook(c *gin.Context) {
	adapter, ok := ctx.adapters[c.Param("provider")]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": constants.UNKNOWN_PROVIDER})
		return
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	event, err := adapter.VerifyWebhook(c.Request, body)
	if errors.Is(err, provider.ErrUnhandledEvent) {
		c.JSON(http.StatusOK, gin.H{"received": true, "ignored": true})
		return
	}
	if err != nil {
		rlog.Errorf("%s webhook rejected: %s", adapter.Name(), err.Error())
		c.JSON(http.StatusUnauthorized, gin.H{"error": "webhook verification failed"})
		return
	}

	// Dedup on provider event id. A row exists only for deliveries that were
	// fully handled, so a redelivery after a failed attempt reprocesses
	// instead of being swallowed.
	if event.EventId != "" {
		seen := model.WebhookEvent{}
		errDb := ctx.db.Where("provider = ? AND provider_event_id = ?", adapter.Name(), event.EventId).First(&seen).Error
		if errDb == nil {
			rlog.Infof("%s webhook event %s already processed", adapter.Name(), event.EventId)
			c.JSON(http.StatusOK, gin.H{"received": true, "duplicate": true})
			return
		}
		if !errors.Is(errDb, gorm.ErrRecordNotFound) {
			rlog.Errorf("Webhook event dedup lookup failed: %s", errDb.Error())
		}
	}

	var p provider.Payment
	if event.SessionId != "" {
		p, err = adapter.RetrieveSession(c.Request.Context(), event.SessionId)
	} else {
		p, err = adapter.RetrievePayment(c.Request.Context(), event.PaymentId)
	}
	if err != nil {
		rlog.Errorf("%s webhook payment lookup failed for event %s: %s", adapter.Name(), event.EventId, err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "payment lookup failed"})
		return
	}

	order, err := ctx.Reconcile(p, "")
	if errors.Is(err, ErrPaymentNotSucceeded) {
		// A failed/pending payment is still a successfully handled delivery.
		ctx.recordWebhookEvent(adapter.Name(), event)
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}
	if err != nil {
		rlog.Errorf("Reconcile from %s webhook event %s failed: %s", adapter.Name(), event.EventId, err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": constants.SAVE_ORDER_FAILED})
		return
	}
	ctx.recordWebhookEvent(adapter.Name(), event)
	c.JSON(http.StatusOK, gin.H{"received": true, "orderId": order.ID})
}

// recordWebhookEvent marks a delivery as handled. A unique violation just
// means a concurrent delivery of the same event won the race; reconciliation
// is idempotent either way.
func (ctx *HandlerContext) recordWebhookEvent(providerName string, event provider.WebhookEvent) {
	if event.EventId == "" {
		return
	}
	record := model.WebhookEvent{
		Provider:        providerName,
		ProviderEventId: event.EventId,
		EventType:       event.EventType,
		SignatureValid:  true,
	}
	if errDb := ctx.db.Create(&record).Error; errDb != nil && !isUniqueViolation(errDb) {
		rlog.Errorf("Webhook event record insert failed: %s", errDb.Error())
	}
}

// LinkByEmail claims guest and duplicate-account orders for the current user.
func (ctx *HandlerContext) LinkByEmail(c *gin.Context) {
	userId, email, ok := auth.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": constants.UNAUTHENTICATED})
		return
	}

	// Keep the local profile mirror fresh; the email match in the resolver
	// and the linking passes both read it.
	profile := model.Profile{ID: userId, Email: email}
	if errDb := ctx.db.Where("id = ?", userId).FirstOrCreate(&profile).Error; errDb != nil {
		rlog.Errorf("Profile upsert for %s failed: %s", userId, errDb.Error())
	}

	linked := ctx.LinkOrdersByEmail(userId, email)
	message := "no orders to link"
	if linked > 0 {
		message = "orders linked"
	}
	c.JSON(http.StatusOK, gin.H{"linked": linked, "message": message})
}

// MyOrders lists the caller's orders, newest first.
func (ctx *HandlerContext) MyOrders(c *gin.Context) {
	userId, _, ok := auth.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": constants.UNAUTHENTICATED})
		return
	}
	orders := make([]model.Order, 0)
	if errDb := ctx.db.Where("user_id = ?", userId).Order("created_at DESC").Find(&orders).Error; errDb != nil {
		rlog.Error(errDb.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "order lookup failed"})
		return
	}
	c.JSON(http.StatusOK, orders)
}

// SubmitOrderDetails records the customer's project name and idea after a
// completed purchase; both are required before the order is buildable.
func (ctx *HandlerContext) SubmitOrderDetails(c *gin.Context) {
	userId, _, ok := auth.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": constants.UNAUTHENTICATED})
		return
	}
	req := OrderDetailsRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.ProjectName == "" || req.IdeaDescription == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "project_name and idea_description are required"})
		return
	}

	order := model.Order{}
	errDb := ctx.db.Where("id = ? AND user_id = ?", c.Param("id"), userId).First(&order).Error
	if errDb != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": constants.ORDER_NOT_FOUND})
		return
	}
	if order.Status != constants.ORDER_STATUS_COMPLETED {
		c.JSON(http.StatusBadRequest, gin.H{"error": "order is not completed"})
		return
	}

	errDb = ctx.db.Model(&model.Order{}).Where("id = ?", order.ID).Updates(map[string]interface{}{
		"project_name":     req.ProjectName,
		"idea_description": req.IdeaDescription,
	}).Error
	if errDb != nil {
		rlog.Error(errDb.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": constants.SAVE_ORDER_FAILED})
		return
	}
	order.ProjectName = &req.ProjectName
	order.IdeaDescription = &req.IdeaDescription
	c.JSON(http.StatusOK, order)
}

// Tiers returns the catalog with advisory availability flags for the UI.
func (ctx *HandlerContext) Tiers(c *gin.Context) {
	out := make([]gin.H, 0)
	for _, t := range tier.List() {
		available, err := ctx.allocator.IsTierAvailable(t.Amount)
		if err != nil {
			// Advisory data: degrade to "available" rather than failing.
			rlog.Errorf("Availability check for %s failed: %s", t.Name, err.Error())
			available = true
		}
		out = append(out, gin.H{
			"name":         t.Name,
			"display_name": t.DisplayName,
			"description":  t.Description,
			"amount":       t.Amount,
			"band":         t.Band,
			"available":    available,
		})
	}
	c.JSON(http.StatusOK, out)
}

// HallOfFame is the public board: completed orders holding a position.
func (ctx *HandlerContext) HallOfFame(c *gin.Context) {
	orders := make([]model.Order, 0)
	errDb := ctx.db.
		Where("status = ? AND hall_of_fame_position IS NOT NULL", constants.ORDER_STATUS_COMPLETED).
		Order("hall_of_fame_position").
		Find(&orders).Error
	if errDb != nil {
		rlog.Error(errDb.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "board lookup failed"})
		return
	}

	out := make([]gin.H, 0, len(orders))
	for _, order := range orders {
		entry := gin.H{
			"position": order.HallOfFamePosition,
			"tier":     order.Tier,
		}
		if order.ProjectName != nil {
			entry["project_name"] = *order.ProjectName
		}
		if order.ProjectId != nil {
			entry["project_id"] = *order.ProjectId
		}
		out = append(out, entry)
	}
	c.JSON(http.StatusOK, out)
}
