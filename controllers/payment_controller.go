package controllers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ashtongoh/korii-pos-sys/models"
	"github.com/ashtongoh/korii-pos-sys/services"
	"github.com/ashtongoh/korii-pos-sys/utils"
)

type PaymentController struct {
	Payments *services.PaymentService
	HitPay   *services.HitPayService
}

func NewPaymentController(payments *services.PaymentService, hitpay *services.HitPayService) *PaymentController {
	return &PaymentController{Payments: payments, HitPay: hitpay}
}

// RequestQrPayment -> create the gateway payment request for a pending
// session and hand the QR payload back to the customer
func (pc *PaymentController) RequestQrPayment(c *gin.Context) {
	type ReqBody struct {
		SessionID    string `json:"session_id" binding:"required"`
		CustomerName string `json:"customer_name"`
	}
	var body ReqBody
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	session, err := pc.Payments.SessionStatus(body.SessionID)
	if err != nil {
		if errors.Is(err, services.ErrSessionNotFound) {
			utils.RespondError(c, http.StatusNotFound, err)
			return
		}
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	if session.Status != models.SessionStatusPending {
		utils.RespondError(c, http.StatusConflict, fmt.Errorf("session is %s", session.Status))
		return
	}

	result, err := pc.HitPay.CreatePaymentRequest(session.Amount, session.SessionID, body.CustomerName)
	if err != nil {
		var gw *services.GatewayError
		if errors.As(err, &gw) {
			// The session stays pending; the customer can retry.
			utils.RespondError(c, http.StatusBadGateway, fmt.Errorf("payment gateway unavailable, please try again"))
			return
		}
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	if err := pc.Payments.AttachGatewayResult(session.SessionID, result); err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Payment request created", gin.H{
		"session_id":  session.SessionID,
		"qr_data":     result.QRData,
		"gateway_url": result.GatewayURL,
		"expires_at":  result.ExpiresAt,
	})
}

// GetSessionStatus -> poll target for the customer waiting screen
func (pc *PaymentController) GetSessionStatus(c *gin.Context) {
	session, err := pc.Payments.SessionStatus(c.Param("session_id"))
	if err != nil {
		if errors.Is(err, services.ErrSessionNotFound) {
			utils.RespondError(c, http.StatusNotFound, err)
			return
		}
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Session status", gin.H{
		"session_id":   session.SessionID,
		"status":       session.Status,
		"expires_at":   session.ExpiresAt,
		"confirmed_at": session.ConfirmedAt,
	})
}
