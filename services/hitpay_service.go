package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/ashtongoh/korii-pos-sys/utils"
)

const defaultHitPayBaseURL = "https://api.sandbox.hit-pay.com"

// HitPayConfig holds the gateway credentials. Salt signs webhook payloads;
// Env gates whether unsigned webhooks are rejected.
type HitPayConfig struct {
	APIKey     string
	BaseURL    string
	Salt       string
	Env        string
	WebhookURL string
}

// HitPayService talks to the HitPay payment request API and verifies its
// webhook signatures.
type HitPayService struct {
	cfg    HitPayConfig
	client *http.Client
}

var (
	hitPayOnce     sync.Once
	hitPayInstance *HitPayService
)

// GetHitPayService returns the process-wide gateway client, configured from
// the environment on first use.
func GetHitPayService() *HitPayService {
	hitPayOnce.Do(func() {
		cfg := HitPayConfig{
			APIKey:     os.Getenv("HITPAY_API_KEY"),
			BaseURL:    os.Getenv("HITPAY_API_URL"),
			Salt:       os.Getenv("HITPAY_SALT"),
			Env:        os.Getenv("HITPAY_ENV"),
			WebhookURL: strings.TrimRight(os.Getenv("APP_URL"), "/") + "/webhooks/payment",
		}
		hitPayInstance = NewHitPayService(cfg)
	})
	return hitPayInstance
}

func NewHitPayService(cfg HitPayConfig) *HitPayService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultHitPayBaseURL
	}
	return &HitPayService{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// IsProduction reports whether the client is pointed at the live gateway.
func (s *HitPayService) IsProduction() bool {
	return s.cfg.Env == "production"
}

// RequireSignature reports whether unsigned webhook deliveries must be
// rejected. Sandbox test deliveries sometimes arrive unsigned.
func (s *HitPayService) RequireSignature() bool {
	return s.IsProduction()
}

// GatewayError is a non-2xx response from HitPay. Callers treat it as
// retryable: the order and session stay pending so the customer can ask
// for a new QR code.
type GatewayError struct {
	StatusCode int
	Body       string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("hitpay returned %d: %s", e.StatusCode, e.Body)
}

// PaymentRequestResult is the outcome of creating a payment request:
// the gateway's id for webhook correlation, a checkout URL fallback, and
// the QR payload to show the customer.
type PaymentRequestResult struct {
	GatewayPaymentID string
	GatewayURL       string
	QRData           string
	ExpiresAt        time.Time
}

type paymentRequestResponse struct {
	ID     string `json:"id"`
	URL    string `json:"url"`
	QRCode string `json:"qr_code"`
	QRData struct {
		QRCode    string `json:"qr_code"`
		QRCodeURL string `json:"qr_code_url"`
	} `json:"qr_code_data"`
}

// CreatePaymentRequest asks HitPay for a PayNow QR payment request tied to
// sessionID. The session id travels as the reference number and comes back
// on the webhook.
func (s *HitPayService) CreatePaymentRequest(amount decimal.Decimal, sessionID, customerName string) (*PaymentRequestResult, error) {
	form := url.Values{}
	form.Set("amount", amount.StringFixed(2))
	form.Set("currency", "SGD")
	form.Set("payment_methods[]", "paynow_online")
	form.Set("generate_qr", "true")
	form.Set("reference_number", sessionID)
	form.Set("webhook", s.cfg.WebhookURL)
	form.Set("name", customerName)
	form.Set("send_email", "false")
	form.Set("send_sms", "false")

	req, err := http.NewRequest(http.MethodPost, s.cfg.BaseURL+"/v1/payment-requests", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-BUSINESS-API-KEY", s.cfg.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		utils.ErrorLogger.Printf("hitpay payment request for session %s failed: %d", sessionID, resp.StatusCode)
		return nil, &GatewayError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var parsed paymentRequestResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode hitpay response: %w", err)
	}

	raw := parsed.QRData.QRCode
	if raw == "" {
		raw = parsed.QRCode
	}
	if raw == "" {
		raw = parsed.QRData.QRCodeURL
	}
	qrData, err := ResolveQRPayload(raw, parsed.URL)
	if err != nil {
		return nil, err
	}

	utils.InfoLogger.Printf("hitpay payment request %s created for session %s", parsed.ID, sessionID)
	return &PaymentRequestResult{
		GatewayPaymentID: parsed.ID,
		GatewayURL:       parsed.URL,
		QRData:           qrData,
		ExpiresAt:        time.Now().Add(15 * time.Minute),
	}, nil
}

// ResolveQRPayload normalizes whatever QR shape the gateway returned into
// something the frontend can put in an <img> tag. URLs and data URIs pass
// through; a raw EMV string gets rendered to a PNG data URI locally.
func ResolveQRPayload(raw, fallbackURL string) (string, error) {
	if raw == "" {
		if fallbackURL == "" {
			return "", fmt.Errorf("gateway returned no qr payload")
		}
		return fallbackURL, nil
	}
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") || strings.HasPrefix(raw, "data:") {
		return raw, nil
	}
	png, err := qrcode.Encode(raw, qrcode.Medium, 300)
	if err != nil {
		return "", fmt.Errorf("render qr code: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}

// VerifyWebhookSignature checks the HMAC-SHA256 signature HitPay sends with
// each webhook. The signed text is every key concatenated with its value in
// key order, skipping the hmac field itself and empty values.
func (s *HitPayService) VerifyWebhookSignature(payload map[string]string, received string) bool {
	if received == "" || s.cfg.Salt == "" {
		return false
	}

	keys := make([]string, 0, len(payload))
	for k := range payload {
		if k == "hmac" {
			continue
		}
		v := payload[k]
		if v == "" || v == "undefined" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(k)
		sb.WriteString(payload[k])
	}

	mac := hmac.New(sha256.New, []byte(s.cfg.Salt))
	mac.Write([]byte(sb.String()))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(received))
}
