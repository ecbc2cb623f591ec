package handler

import (
	"io"
	"net/http"

	"github.com/careerlift/backend/internal/domain"
	"github.com/careerlift/backend/internal/service"
)

// SignatureHeader carries the HMAC signature of a webhook body.
const SignatureHeader = "X-Signature"

const maxWebhookBody = 64 << 10

type PaymentHandler struct {
	svc *service.SubscriptionService
}

func NewPaymentHandler(svc *service.SubscriptionService) *PaymentHandler {
	return &PaymentHandler{svc: svc}
}

// CreateCheckout handles POST /api/payment/checkout.
func (h *PaymentHandler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateCheckoutRequest
	if err := DecodeJSON(r, &req); err != nil {
		Error(w, err)
		return
	}

	resp, err := h.svc.CreateCheckout(r.Context(), Caller(r), &req)
	if err != nil {
		Error(w, err)
		return
	}

	Success(w, http.StatusOK, map[string]any{
		"paymentUrl": resp.PaymentURL,
		"orderId":    resp.OrderID,
	})
}

// Webhook handles POST /api/payment/webhook. The signature covers the raw
// body, so it is read before any decoding.
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		Error(w, domain.ErrBadRequest("failed to read body"))
		return
	}

	res, err := h.svc.HandleWebhook(r.Context(), body, r.Header.Get(SignatureHeader))
	if err != nil {
		Error(w, err)
		return
	}

	fields := map[string]any{
		"event":     res.Event,
		"handled":   res.Handled,
		"duplicate": res.Duplicate,
	}
	if res.SubscriptionID != "" {
		fields["subscriptionId"] = res.SubscriptionID
	}
	Success(w, http.StatusOK, fields)
}

// Simulate handles POST /api/admin/payment/simulate.
func (h *PaymentHandler) Simulate(w http.ResponseWriter, r *http.Request) {
	var req domain.SimulateCheckoutRequest
	if err := DecodeJSON(r, &req); err != nil {
		Error(w, err)
		return
	}

	sub, err := h.svc.Simulate(r.Context(), &req)
	if err != nil {
		Error(w, err)
		return
	}

	Success(w, http.StatusCreated, map[string]any{"subscription": sub})
}

// GetSubscription handles GET /api/payment/subscription. A caller without an
// active subscription gets a null subscription.
func (h *PaymentHandler) GetSubscription(w http.ResponseWriter, r *http.Request) {
	sub, err := h.svc.GetCurrentSubscription(r.Context(), Caller(r).ID)
	if err != nil {
		Error(w, err)
		return
	}
	Success(w, http.StatusOK, map[string]any{"subscription": sub})
}
