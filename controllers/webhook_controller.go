package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ashtongoh/korii-pos-sys/services"
	"github.com/ashtongoh/korii-pos-sys/utils"
)

type WebhookController struct {
	Payments *services.PaymentService
	HitPay   *services.HitPayService
}

func NewWebhookController(payments *services.PaymentService, hitpay *services.HitPayService) *WebhookController {
	return &WebhookController{Payments: payments, HitPay: hitpay}
}

// Liveness -> the gateway probes the webhook URL with a GET before saving it
func (wc *WebhookController) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "endpoint": "payment-webhook"})
}

// HandlePaymentWebhook -> gateway callback on payment completion. Responses
// use the gateway's expected shape, not our API envelope: anything except a
// 2xx makes it retry the delivery.
func (wc *WebhookController) HandlePaymentWebhook(c *gin.Context) {
	payload, err := wc.parsePayload(c)
	if err != nil {
		utils.ErrorLogger.Printf("webhook parse: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable payload"})
		return
	}

	if sig := payload["hmac"]; sig != "" {
		if !wc.HitPay.VerifyWebhookSignature(payload, sig) {
			utils.ErrorLogger.Printf("webhook signature mismatch for reference %q", payload["reference_number"])
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
			return
		}
	} else if wc.HitPay.RequireSignature() {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing signature"})
		return
	}

	status := payload["status"]
	if !services.IsSuccessStatus(status) {
		// Failed or pending notifications are acknowledged so the gateway
		// stops retrying; the session keeps waiting for a success.
		utils.InfoLogger.Printf("webhook with status %q for reference %q ignored", status, payload["reference_number"])
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	result, err := wc.Payments.ConfirmPayment(payload["reference_number"], payload["payment_request_id"])
	if err != nil {
		if errors.Is(err, services.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown payment session"})
			return
		}
		utils.ErrorLogger.Printf("confirm payment: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "confirmation failed"})
		return
	}

	if result.AlreadyProcessed {
		c.JSON(http.StatusOK, gin.H{"received": true, "already_processed": true})
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true, "session_id": result.SessionID})
}

// parsePayload flattens the delivery into string pairs whether it arrived
// as a form post or as JSON.
func (wc *WebhookController) parsePayload(c *gin.Context) (map[string]string, error) {
	payload := make(map[string]string)

	ct := c.ContentType()
	if strings.Contains(ct, "application/json") {
		// UseNumber keeps numeric fields as their literal text; a float
		// round trip would turn "5.00" into "5" and break the signature.
		dec := json.NewDecoder(c.Request.Body)
		dec.UseNumber()
		var raw map[string]interface{}
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
		for k, v := range raw {
			if v == nil {
				continue
			}
			payload[k] = fmt.Sprint(v)
		}
		return payload, nil
	}

	if err := c.Request.ParseForm(); err != nil {
		return nil, err
	}
	for k, vs := range c.Request.PostForm {
		if len(vs) > 0 {
			payload[k] = vs[0]
		}
	}
	return payload, nil
}
