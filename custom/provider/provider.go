package provider

import (
	"context"
	"errors"
	"net/http"

	"slopcel/custom/tier"
)

// ErrUnhandledEvent marks webhook deliveries for event types the
// reconciliation flow does not act on. Receivers acknowledge and skip them.
var ErrUnhandledEvent = errors.New("unhandled webhook event type")

// Normalized payment status across providers.
const STATUS_SUCCEEDED = "succeeded"
const STATUS_PENDING = "pending"
const STATUS_FAILED = "failed"
const STATUS_CANCELED = "canceled"

type CheckoutSpec struct {
	Tier tier.Tier
	// UserId is the checkout-time identity, or the guest sentinel for
	// anonymous buyers. Recorded in provider metadata.
	UserId        string
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
}

type CheckoutSession struct {
	SessionId string
	Url       string
}

// Payment is the authoritative provider view of a payment, fetched directly
// from the provider. Client-supplied amounts and statuses are never trusted.
type Payment struct {
	Provider       string
	PaymentId      string
	SessionId      string
	Status         string
	Amount         int64
	PayerEmail     string
	MetadataUserId string
	Tier           string
}

// WebhookEvent identifies the payment a verified webhook delivery refers to.
// Reconciliation re-fetches payment state from the provider; the event only
// supplies correlation ids and dedup identity.
type WebhookEvent struct {
	EventId   string
	EventType string
	PaymentId string
	SessionId string
}

// Adapter is the per-provider I/O surface. One reconciliation algorithm runs
// against all implementations.
type Adapter interface {
	Name() string
	CreateCheckout(ctx context.Context, spec CheckoutSpec) (CheckoutSession, error)
	// RetrievePayment resolves payment state by provider payment id.
	RetrievePayment(ctx context.Context, paymentId string) (Payment, error)
	// RetrieveSession resolves payment state by checkout-session id.
	RetrieveSession(ctx context.Context, sessionId string) (Payment, error)
	// CapturePayment performs the provider's synchronous capture call from
	// the return page. Providers that capture automatically just retrieve.
	CapturePayment(ctx context.Context, id string) (Payment, error)
	// VerifyWebhook checks the delivery signature and extracts correlation
	// ids. Implementations may fall back to unverified parsing in non-live
	// mode; that fallback is logged.
	VerifyWebhook(r *http.Request, body []byte) (WebhookEvent, error)
}
