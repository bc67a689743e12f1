package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/romana/rlog"
	stripe "github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/paymentintent"
	"github.com/stripe/stripe-go/v79/webhook"

	"slopcel/constants"
	"slopcel/custom/util"
)

type StripeAdapter struct {
	webhookSecret string
	liveMode      bool
}

func NewStripeAdapter(cfg util.StripeConfig, liveMode bool) *StripeAdapter {
	stripe.Key = cfg.SecretKey
	return &StripeAdapter{
		webhookSecret: cfg.WebhookSecret,
		liveMode:      liveMode,
	}
}

func (a *StripeAdapter) Name() string {
	return constants.PROVIDER_STRIPE
}

func (a *StripeAdapter) CreateCheckout(ctx context.Context, spec CheckoutSpec) (CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(spec.SuccessURL + "?provider=stripe&session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:  stripe.String(spec.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String("usd"),
					UnitAmount: stripe.Int64(spec.Tier.Amount),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String("Slopcel " + spec.Tier.DisplayName),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		// Same metadata on the payment intent so webhook-side intent lookups
		// see the checkout-time identity too.
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: map[string]string{
				"user_id": spec.UserId,
				"tier":    spec.Tier.Name,
			},
		},
	}
	params.Context = ctx
	params.AddMetadata("user_id", spec.UserId)
	params.AddMetadata("tier", spec.Tier.Name)
	if spec.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(spec.CustomerEmail)
	}

	s, err := session.New(params)
	if err != nil {
		return CheckoutSession{}, err
	}
	return CheckoutSession{SessionId: s.ID, Url: s.URL}, nil
}

func (a *StripeAdapter) RetrievePayment(ctx context.Context, paymentId string) (Payment, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	params.AddExpand("latest_charge")
	pi, err := paymentintent.Get(paymentId, params)
	if err != nil {
		return Payment{}, err
	}

	status := STATUS_PENDING
	switch pi.Status {
	case stripe.PaymentIntentStatusSucceeded:
		status = STATUS_SUCCEEDED
	case stripe.PaymentIntentStatusCanceled:
		status = STATUS_CANCELED
	}

	return Payment{
		Provider:       constants.PROVIDER_STRIPE,
		PaymentId:      pi.ID,
		Status:         status,
		Amount:         pi.Amount,
		PayerEmail:     paymentIntentEmail(pi),
		MetadataUserId: pi.Metadata["user_id"],
		Tier:           pi.Metadata["tier"],
	}, nil
}

// paymentIntentEmail prefers the intent's receipt email and falls back to
// the charge billing details, which is where Checkout-originated intents
// carry the buyer's address.
func paymentIntentEmail(pi *stripe.PaymentIntent) string {
	if pi.ReceiptEmail != "" {
		return pi.ReceiptEmail
	}
	if pi.LatestCharge != nil && pi.LatestCharge.BillingDetails != nil {
		return pi.LatestCharge.BillingDetails.Email
	}
	return ""
}

func (a *StripeAdapter) RetrieveSession(ctx context.Context, sessionId string) (Payment, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	params.AddExpand("payment_intent")
	s, err := session.Get(sessionId, params)
	if err != nil {
		return Payment{}, err
	}

	status := STATUS_PENDING
	if s.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid {
		status = STATUS_SUCCEEDED
	} else if s.Status == stripe.CheckoutSessionStatusExpired {
		status = STATUS_CANCELED
	}

	p := Payment{
		Provider:       constants.PROVIDER_STRIPE,
		SessionId:      s.ID,
		Status:         status,
		Amount:         s.AmountTotal,
		MetadataUserId: s.Metadata["user_id"],
		Tier:           s.Metadata["tier"],
	}
	if s.PaymentIntent != nil {
		p.PaymentId = s.PaymentIntent.ID
	}
	if s.CustomerDetails != nil {
		p.PayerEmail = s.CustomerDetails.Email
	}
	return p, nil
}

// Stripe checkout captures automatically; the return-page confirmation is
// just a session lookup.
func (a *StripeAdapter) CapturePayment(ctx context.Context, id string) (Payment, error) {
	if strings.HasPrefix(id, "cs_") {
		return a.RetrieveSession(ctx, id)
	}
	return a.RetrievePayment(ctx, id)
}

func (a *StripeAdapter) VerifyWebhook(r *http.Request, body []byte) (WebhookEvent, error) {
	event, err := webhook.ConstructEvent(body, r.Header.Get("Stripe-Signature"), a.webhookSecret)
	if err != nil {
		if a.liveMode {
			return WebhookEvent{}, err
		}
		rlog.Warnf("Stripe webhook signature verification failed, accepting unverified (non-live mode): %s", err.Error())
		if errParse := json.Unmarshal(body, &event); errParse != nil {
			return WebhookEvent{}, errParse
		}
	}

	out := WebhookEvent{EventId: event.ID, EventType: string(event.Type)}
	switch {
	case strings.HasPrefix(out.EventType, "checkout.session."):
		var s stripe.CheckoutSession
		if errParse := json.Unmarshal(event.Data.Raw, &s); errParse != nil {
			return WebhookEvent{}, errParse
		}
		out.SessionId = s.ID
		if s.PaymentIntent != nil {
			out.PaymentId = s.PaymentIntent.ID
		}
	case strings.HasPrefix(out.EventType, "payment_intent."):
		var pi stripe.PaymentIntent
		if errParse := json.Unmarshal(event.Data.Raw, &pi); errParse != nil {
			return WebhookEvent{}, errParse
		}
		out.PaymentId = pi.ID
	default:
		return WebhookEvent{}, fmt.Errorf("%w: %s", ErrUnhandledEvent, out.EventType)
	}
	return out, nil
}
