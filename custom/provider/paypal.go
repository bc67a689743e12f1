package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"

	"github.com/plutov/paypal/v4"
	"github.com/romana/rlog"

	"slopcel/constants"
	"slopcel/custom/util"
)

type PaypalAdapter struct {
	client    *paypal.Client
	webhookId string
	liveMode  bool
}

func NewPaypalAdapter(cfg util.PaypalConfig, liveMode bool) (*PaypalAdapter, error) {
	base := paypal.APIBaseSandBox
	if liveMode {
		base = paypal.APIBaseLive
	}
	client, err := paypal.NewClient(cfg.ClientId, cfg.Secret, base)
	if err != nil {
		return nil, err
	}
	return &PaypalAdapter{
		client:    client,
		webhookId: cfg.WebhookId,
		liveMode:  liveMode,
	}, nil
}

func (a *PaypalAdapter) Name() string {
	return constants.PROVIDER_PAYPAL
}

func (a *PaypalAdapter) CreateCheckout(ctx context.Context, spec CheckoutSpec) (CheckoutSession, error) {
	units := []paypal.PurchaseUnitRequest{
		{
			Amount: &paypal.PurchaseUnitAmount{
				Currency: "USD",
				Value:    centsToValue(spec.Tier.Amount),
			},
			Description: "Slopcel " + spec.Tier.DisplayName,
			CustomID:    spec.UserId,
		},
	}
	appCtx := &paypal.ApplicationContext{
		ReturnURL: spec.SuccessURL,
		CancelURL: spec.CancelURL,
	}
	order, err := a.client.CreateOrder(ctx, paypal.OrderIntentCapture, units, nil, appCtx)
	if err != nil {
		return CheckoutSession{}, err
	}
	approveUrl := ""
	for _, link := range order.Links {
		if link.Rel == "approve" {
			approveUrl = link.Href
		}
	}
	if approveUrl == "" {
		return CheckoutSession{}, errors.New("paypal order has no approve link")
	}
	return CheckoutSession{SessionId: order.ID, Url: approveUrl}, nil
}

// PayPal correlates on the order id for both session and payment lookups; the
// capture id only becomes known once the order completes.
func (a *PaypalAdapter) RetrieveSession(ctx context.Context, sessionId string) (Payment, error) {
	order, err := a.client.GetOrder(ctx, sessionId)
	if err != nil {
		return Payment{}, err
	}
	return a.paymentFromOrder(order), nil
}

func (a *PaypalAdapter) RetrievePayment(ctx context.Context, paymentId string) (Payment, error) {
	return a.RetrieveSession(ctx, paymentId)
}

// CapturePayment captures an approved order. An already-captured order is not
// an error: state is re-fetched and reconciliation proceeds as usual.
func (a *PaypalAdapter) CapturePayment(ctx context.Context, id string) (Payment, error) {
	res, err := a.client.CaptureOrder(ctx, id, paypal.CaptureOrderRequest{})
	if err != nil {
		rlog.Infof("PayPal capture for %s failed (%s), falling back to order lookup", id, err.Error())
		return a.RetrieveSession(ctx, id)
	}

	p := Payment{
		Provider:  constants.PROVIDER_PAYPAL,
		SessionId: res.ID,
		Status:    paypalStatus(res.Status),
	}
	if res.Payer != nil {
		p.PayerEmail = res.Payer.EmailAddress
	}
	for _, unit := range res.PurchaseUnits {
		if unit.Payments == nil {
			continue
		}
		for _, capture := range unit.Payments.Captures {
			p.PaymentId = capture.ID
			p.MetadataUserId = capture.CustomID
			if capture.Amount != nil {
				p.Amount = valueToCents(capture.Amount.Value)
			}
		}
	}
	return p, nil
}

func (a *PaypalAdapter) paymentFromOrder(order *paypal.Order) Payment {
	p := Payment{
		Provider:  constants.PROVIDER_PAYPAL,
		SessionId: order.ID,
		Status:    paypalStatus(string(order.Status)),
	}
	if order.Payer != nil {
		p.PayerEmail = order.Payer.EmailAddress
	}
	for _, unit := range order.PurchaseUnits {
		if unit.Amount != nil {
			p.Amount = valueToCents(unit.Amount.Value)
		}
		if p.MetadataUserId == "" {
			p.MetadataUserId = unit.CustomID
		}
		if unit.Payments != nil {
			for _, capture := range unit.Payments.Captures {
				p.PaymentId = capture.ID
			}
		}
	}
	return p
}

type paypalWebhookPayload struct {
	Id        string `json:"id"`
	EventType string `json:"event_type"`
	Resource  struct {
		Id                string `json:"id"`
		Status            string `json:"status"`
		CustomId          string `json:"custom_id"`
		SupplementaryData struct {
			RelatedIds struct {
				OrderId string `json:"order_id"`
			} `json:"related_ids"`
		} `json:"supplementary_data"`
	} `json:"resource"`
}

func (a *PaypalAdapter) VerifyWebhook(r *http.Request, body []byte) (WebhookEvent, error) {
	// VerifyWebhookSignature consumes the request body, which the handler
	// already read.
	r.Body = io.NopCloser(bytes.NewReader(body))
	res, err := a.client.VerifyWebhookSignature(r.Context(), r, a.webhookId)
	if err != nil || res.VerificationStatus != "SUCCESS" {
		if a.liveMode {
			if err == nil {
				err = errors.New("paypal webhook verification status " + res.VerificationStatus)
			}
			return WebhookEvent{}, err
		}
		rlog.Warn("PayPal webhook signature verification failed, accepting unverified (non-live mode)")
	}

	payload := paypalWebhookPayload{}
	if errParse := json.Unmarshal(body, &payload); errParse != nil {
		return WebhookEvent{}, errParse
	}

	out := WebhookEvent{EventId: payload.Id, EventType: payload.EventType}
	switch payload.EventType {
	case "PAYMENT.CAPTURE.COMPLETED", "PAYMENT.CAPTURE.DENIED", "PAYMENT.CAPTURE.REFUNDED":
		out.PaymentId = payload.Resource.Id
		out.SessionId = payload.Resource.SupplementaryData.RelatedIds.OrderId
	case "CHECKOUT.ORDER.APPROVED", "CHECKOUT.ORDER.COMPLETED":
		out.SessionId = payload.Resource.Id
	default:
		return WebhookEvent{}, fmt.Errorf("%w: %s", ErrUnhandledEvent, payload.EventType)
	}
	return out, nil
}

func paypalStatus(status string) string {
	switch status {
	case "COMPLETED":
		return STATUS_SUCCEEDED
	case "VOIDED":
		return STATUS_CANCELED
	case "DECLINED":
		return STATUS_FAILED
	}
	return STATUS_PENDING
}

func centsToValue(cents int64) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}

func valueToCents(value string) int64 {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}
	return int64(math.Round(f * 100))
}
