// internal/handlers/purchase_webhook_test.go
package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stripe/stripe-go/v74/webhook"

	"github.com/fabhub/fabhub-backend/internal/config"
	"github.com/fabhub/fabhub-backend/internal/services"
)

const webhookTestSecret = "whsec_test_secret"

func newWebhookRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Payment: config.PaymentConfig{StripeWebhookSecret: webhookTestSecret},
	}
	h := NewPurchaseHandler(&services.PurchaseService{}, &services.LicenseService{}, cfg)

	r := gin.New()
	r.POST("/v1/webhooks/stripe", h.StripeWebhook)
	return r
}

func signWebhookPayload(payload []byte, secret string, at time.Time) string {
	sig := webhook.ComputeSignature(at, payload, secret)
	return fmt.Sprintf("t=%d,v1=%x", at.Unix(), sig)
}

func TestStripeWebhookRejectsMissingSignature(t *testing.T) {
	r := newWebhookRouter()

	payload := []byte(`{"type":"payment_intent.succeeded"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/stripe", bytes.NewReader(payload))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStripeWebhookRejectsTamperedPayload(t *testing.T) {
	r := newWebhookRouter()

	signed := []byte(`{"type":"payment_intent.succeeded"}`)
	header := signWebhookPayload(signed, webhookTestSecret, time.Now())

	// Body differs from what was signed
	tampered := []byte(`{"type":"payment_intent.succeeded","data":{"object":{"id":"pi_evil"}}}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/stripe", bytes.NewReader(tampered))
	req.Header.Set("Stripe-Signature", header)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStripeWebhookRejectsWrongSecret(t *testing.T) {
	r := newWebhookRouter()

	payload := []byte(`{"type":"payment_intent.succeeded"}`)
	header := signWebhookPayload(payload, "whsec_other_secret", time.Now())

	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/stripe", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", header)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStripeWebhookAcksUnhandledEventTypes(t *testing.T) {
	r := newWebhookRouter()

	// Correctly signed, but an event type the platform does not act on
	payload := []byte(`{"id":"evt_1","type":"charge.refunded","data":{"object":{}}}`)
	header := signWebhookPayload(payload, webhookTestSecret, time.Now())

	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/stripe", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", header)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
