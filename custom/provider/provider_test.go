package provider

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	stripe "github.com/stripe/stripe-go/v79"

	"slopcel/custom/util"
)

// Checkout-originated intents usually have no receipt email; the buyer's
// address lives on the charge billing details.
func TestPaymentIntentEmailFallsBackToCharge(t *testing.T) {
	pi := &stripe.PaymentIntent{ReceiptEmail: "receipt@test.com"}
	assert.Equal(t, "receipt@test.com", paymentIntentEmail(pi))

	pi = &stripe.PaymentIntent{
		LatestCharge: &stripe.Charge{
			BillingDetails: &stripe.ChargeBillingDetails{Email: "buyer@test.com"},
		},
	}
	assert.Equal(t, "buyer@test.com", paymentIntentEmail(pi))

	assert.Equal(t, "", paymentIntentEmail(&stripe.PaymentIntent{}))
	assert.Equal(t, "", paymentIntentEmail(&stripe.PaymentIntent{LatestCharge: &stripe.Charge{}}))
}

func TestCentsToValue(t *testing.T) {
	assert.Equal(t, "150.00", centsToValue(15000))
	assert.Equal(t, "75.00", centsToValue(7500))
	assert.Equal(t, "0.05", centsToValue(5))
	assert.Equal(t, "1.50", centsToValue(150))
}

func TestValueToCents(t *testing.T) {
	assert.Equal(t, int64(15000), valueToCents("150.00"))
	assert.Equal(t, int64(7500), valueToCents("75.00"))
	assert.Equal(t, int64(0), valueToCents("not a number"))
}

func TestPaypalStatusMapping(t *testing.T) {
	assert.Equal(t, STATUS_SUCCEEDED, paypalStatus("COMPLETED"))
	assert.Equal(t, STATUS_CANCELED, paypalStatus("VOIDED"))
	assert.Equal(t, STATUS_FAILED, paypalStatus("DECLINED"))
	assert.Equal(t, STATUS_PENDING, paypalStatus("APPROVED"))
	assert.Equal(t, STATUS_PENDING, paypalStatus("CREATED"))
}

func TestDodoStatusMapping(t *testing.T) {
	assert.Equal(t, STATUS_SUCCEEDED, dodoStatus("succeeded"))
	assert.Equal(t, STATUS_FAILED, dodoStatus("failed"))
	assert.Equal(t, STATUS_CANCELED, dodoStatus("cancelled"))
	assert.Equal(t, STATUS_PENDING, dodoStatus("processing"))
}

func TestDodoWebhookUnverifiedNonLive(t *testing.T) {
	adapter, err := NewDodoAdapter(util.DodoConfig{}, false)
	assert.Nil(t, err)

	body := []byte(`{"type":"payment.succeeded","data":{"payment_id":"pay_123"}}`)
	r := httptest.NewRequest(http.MethodPost, "/api/webhooks/dodo", nil)
	r.Header.Set("webhook-id", "msg_1")

	event, err := adapter.VerifyWebhook(r, body)
	assert.Nil(t, err)
	assert.Equal(t, "payment.succeeded", event.EventType)
	assert.Equal(t, "pay_123", event.PaymentId)
	assert.Equal(t, "msg_1", event.EventId)
}

func TestDodoWebhookLiveModeRequiresSecret(t *testing.T) {
	adapter, err := NewDodoAdapter(util.DodoConfig{}, true)
	assert.Nil(t, err)

	body := []byte(`{"type":"payment.succeeded","data":{"payment_id":"pay_123"}}`)
	r := httptest.NewRequest(http.MethodPost, "/api/webhooks/dodo", nil)

	_, err = adapter.VerifyWebhook(r, body)
	assert.Error(t, err)
}

func TestDodoWebhookMissingPaymentId(t *testing.T) {
	adapter, _ := NewDodoAdapter(util.DodoConfig{}, false)

	body := []byte(`{"type":"payment.succeeded","data":{}}`)
	r := httptest.NewRequest(http.MethodPost, "/api/webhooks/dodo", nil)

	_, err := adapter.VerifyWebhook(r, body)
	assert.Error(t, err)
}

func TestStripeWebhookUnverifiedNonLive(t *testing.T) {
	adapter := NewStripeAdapter(util.StripeConfig{}, false)

	body := []byte(`{"id":"evt_1","type":"checkout.session.completed","data":{"object":{"id":"cs_123","payment_intent":"pi_456"}}}`)
	r := httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", nil)

	event, err := adapter.VerifyWebhook(r, body)
	assert.Nil(t, err)
	assert.Equal(t, "evt_1", event.EventId)
	assert.Equal(t, "checkout.session.completed", event.EventType)
	assert.Equal(t, "cs_123", event.SessionId)
	assert.Equal(t, "pi_456", event.PaymentId)
}

func TestStripeWebhookPaymentIntentEvent(t *testing.T) {
	adapter := NewStripeAdapter(util.StripeConfig{}, false)

	body := []byte(`{"id":"evt_2","type":"payment_intent.payment_failed","data":{"object":{"id":"pi_789"}}}`)
	r := httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", nil)

	event, err := adapter.VerifyWebhook(r, body)
	assert.Nil(t, err)
	assert.Equal(t, "payment_intent.payment_failed", event.EventType)
	assert.Equal(t, "pi_789", event.PaymentId)
}

func TestStripeWebhookUnhandledEventType(t *testing.T) {
	adapter := NewStripeAdapter(util.StripeConfig{}, false)

	body := []byte(`{"id":"evt_3","type":"customer.created","data":{"object":{"id":"cus_1"}}}`)
	r := httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", nil)

	_, err := adapter.VerifyWebhook(r, body)
	assert.Error(t, err)
}

func TestStripeWebhookLiveModeRejectsBadSignature(t *testing.T) {
	adapter := NewStripeAdapter(util.StripeConfig{WebhookSecret: "whsec_test"}, true)

	body := []byte(`{"id":"evt_4","type":"checkout.session.completed","data":{"object":{"id":"cs_1"}}}`)
	r := httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", nil)
	r.Header.Set("Stripe-Signature", "t=1,v1=bad")

	_, err := adapter.VerifyWebhook(r, body)
	assert.Error(t, err)
}
