package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// signPayload builds a signature the way the gateway does, so tests do not
// depend on the code under test for their expected values.
func signPayload(salt string, payload map[string]string) string {
	keys := make([]string, 0, len(payload))
	for k := range payload {
		if k == "hmac" || payload[k] == "" || payload[k] == "undefined" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(k + payload[k])
	}
	mac := hmac.New(sha256.New, []byte(salt))
	mac.Write([]byte(sb.String()))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyWebhookSignatureValid(t *testing.T) {
	svc := NewHitPayService(HitPayConfig{Salt: "test-salt"})
	payload := map[string]string{
		"payment_id":         "9XY",
		"payment_request_id": "req_123",
		"reference_number":   "sess-1",
		"amount":             "12.40",
		"currency":           "SGD",
		"status":             "completed",
	}
	sig := signPayload("test-salt", payload)
	payload["hmac"] = sig

	assert.True(t, svc.VerifyWebhookSignature(payload, sig))
}

func TestVerifyWebhookSignatureSkipsEmptyFields(t *testing.T) {
	svc := NewHitPayService(HitPayConfig{Salt: "test-salt"})
	base := map[string]string{
		"reference_number": "sess-1",
		"status":           "completed",
	}
	sig := signPayload("test-salt", base)

	// Empty and "undefined" fields must not change the signed text.
	padded := map[string]string{
		"reference_number": "sess-1",
		"status":           "completed",
		"phone":            "",
		"email":            "undefined",
		"hmac":             sig,
	}
	assert.True(t, svc.VerifyWebhookSignature(padded, sig))
}

func TestVerifyWebhookSignatureRejectsTampering(t *testing.T) {
	svc := NewHitPayService(HitPayConfig{Salt: "test-salt"})
	payload := map[string]string{
		"reference_number": "sess-1",
		"amount":           "12.40",
		"status":           "completed",
	}
	sig := signPayload("test-salt", payload)

	payload["amount"] = "0.01"
	assert.False(t, svc.VerifyWebhookSignature(payload, sig))
}

func TestVerifyWebhookSignatureRejectsEmptyOrWrongSalt(t *testing.T) {
	payload := map[string]string{"reference_number": "sess-1", "status": "completed"}
	sig := signPayload("test-salt", payload)

	assert.False(t, NewHitPayService(HitPayConfig{Salt: "other-salt"}).VerifyWebhookSignature(payload, sig))
	assert.False(t, NewHitPayService(HitPayConfig{Salt: ""}).VerifyWebhookSignature(payload, sig))
	assert.False(t, NewHitPayService(HitPayConfig{Salt: "test-salt"}).VerifyWebhookSignature(payload, ""))
}

func TestRequireSignatureFollowsEnvironment(t *testing.T) {
	assert.True(t, NewHitPayService(HitPayConfig{Env: "production"}).RequireSignature())
	assert.False(t, NewHitPayService(HitPayConfig{Env: "sandbox"}).RequireSignature())
	assert.False(t, NewHitPayService(HitPayConfig{}).RequireSignature())
}

func TestResolveQRPayloadShapes(t *testing.T) {
	// URLs and data URIs pass through untouched.
	got, err := ResolveQRPayload("https://hit-pay.com/qr/abc", "")
	assert.NoError(t, err)
	assert.Equal(t, "https://hit-pay.com/qr/abc", got)

	got, err = ResolveQRPayload("data:image/png;base64,AAAA", "")
	assert.NoError(t, err)
	assert.Equal(t, "data:image/png;base64,AAAA", got)

	// A raw EMV string is rendered locally.
	got, err = ResolveQRPayload("00020101021226...", "")
	assert.NoError(t, err)
	assert.True(t, strings.HasPrefix(got, "data:image/png;base64,"))

	// No payload falls back to the checkout URL.
	got, err = ResolveQRPayload("", "https://hit-pay.com/pay/abc")
	assert.NoError(t, err)
	assert.Equal(t, "https://hit-pay.com/pay/abc", got)

	_, err = ResolveQRPayload("", "")
	assert.Error(t, err)
}

func TestCreatePaymentRequest(t *testing.T) {
	var gotForm map[string]string
	var gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/payment-requests", r.URL.Path)
		gotKey = r.Header.Get("X-BUSINESS-API-KEY")
		assert.NoError(t, r.ParseForm())
		gotForm = map[string]string{}
		for k, vs := range r.PostForm {
			gotForm[k] = vs[0]
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "req_123",
			"url": "https://hit-pay.com/pay/abc",
			"qr_code_data": {"qr_code": "00020101021226raw"}
		}`))
	}))
	defer server.Close()

	svc := NewHitPayService(HitPayConfig{
		APIKey:     "key-1",
		BaseURL:    server.URL,
		WebhookURL: "https://shop.example/webhooks/payment",
	})

	res, err := svc.CreatePaymentRequest(dec("12.40"), "sess-1", "AG")
	assert.NoError(t, err)
	assert.Equal(t, "key-1", gotKey)
	assert.Equal(t, "12.40", gotForm["amount"])
	assert.Equal(t, "SGD", gotForm["currency"])
	assert.Equal(t, "paynow_online", gotForm["payment_methods[]"])
	assert.Equal(t, "true", gotForm["generate_qr"])
	assert.Equal(t, "sess-1", gotForm["reference_number"])
	assert.Equal(t, "https://shop.example/webhooks/payment", gotForm["webhook"])
	assert.Equal(t, "false", gotForm["send_email"])
	assert.Equal(t, "false", gotForm["send_sms"])

	assert.Equal(t, "req_123", res.GatewayPaymentID)
	assert.Equal(t, "https://hit-pay.com/pay/abc", res.GatewayURL)
	assert.True(t, strings.HasPrefix(res.QRData, "data:image/png;base64,"))
}

func TestCreatePaymentRequestGatewayError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"message": "amount invalid"}`))
	}))
	defer server.Close()

	svc := NewHitPayService(HitPayConfig{BaseURL: server.URL})
	_, err := svc.CreatePaymentRequest(dec("0.00"), "sess-1", "AG")

	var gw *GatewayError
	assert.ErrorAs(t, err, &gw)
	assert.Equal(t, http.StatusUnprocessableEntity, gw.StatusCode)
	assert.Contains(t, gw.Body, "amount invalid")
}

func TestIsSuccessStatus(t *testing.T) {
	assert.True(t, IsSuccessStatus("completed"))
	assert.True(t, IsSuccessStatus("succeeded"))
	assert.False(t, IsSuccessStatus("failed"))
	assert.False(t, IsSuccessStatus("pending"))
	assert.False(t, IsSuccessStatus(""))
}
