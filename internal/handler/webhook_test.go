package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/shopstack/inventory-api/internal/payment"
	"github.com/shopstack/inventory-api/internal/service"
)

func newWebhookRouter(secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := service.NewOrderService(nil, nil, nil, nil, nil, service.CheckoutURLs{}, nil)
	h := NewWebhookHandler(svc, secret, nil)
	r := gin.New()
	r.POST("/webhook", h.HandleEvent)
	return r
}

func postWebhook(r *gin.Engine, body, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	if signature != "" {
		req.Header.Set(payment.SignatureHeader, signature)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestWebhookHandler_MissingSignature(t *testing.T) {
	r := newWebhookRouter("whsec_test")
	w := postWebhook(r, `{"type":"checkout.session.completed"}`, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebhookHandler_InvalidSignature(t *testing.T) {
	r := newWebhookRouter("whsec_test")
	body := `{"type":"checkout.session.completed"}`
	sig := payment.Sign([]byte(body), "whsec_wrong", time.Now())
	w := postWebhook(r, body, sig)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebhookHandler_SignatureOverDifferentBody(t *testing.T) {
	r := newWebhookRouter("whsec_test")
	sig := payment.Sign([]byte(`{"total":100}`), "whsec_test", time.Now())
	w := postWebhook(r, `{"total":1}`, sig)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebhookHandler_ValidSignatureUnhandledType(t *testing.T) {
	r := newWebhookRouter("whsec_test")
	body := `{"id":"evt_1","type":"payment_intent.created"}`
	sig := payment.Sign([]byte(body), "whsec_test", time.Now())
	w := postWebhook(r, body, sig)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"received":true}`, w.Body.String())
}

func TestWebhookHandler_ValidSignatureUnparseableBody(t *testing.T) {
	r := newWebhookRouter("whsec_test")
	body := "not json at all"
	sig := payment.Sign([]byte(body), "whsec_test", time.Now())
	w := postWebhook(r, body, sig)

	// The signature proves the provider sent it; acknowledge so it is not
	// redelivered forever.
	assert.Equal(t, http.StatusOK, w.Code)
}
