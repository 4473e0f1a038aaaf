package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ashtongoh/korii-pos-sys/cart"
	"github.com/ashtongoh/korii-pos-sys/models"
	"github.com/ashtongoh/korii-pos-sys/services"
	"github.com/ashtongoh/korii-pos-sys/utils"
)

type OrderController struct {
	DB     *gorm.DB
	Orders *services.OrderService
	Queue  *services.QueueSynchronizer
}

func NewOrderController(db *gorm.DB, orders *services.OrderService, queue *services.QueueSynchronizer) *OrderController {
	return &OrderController{DB: db, Orders: orders, Queue: queue}
}

// CreateOrder -> place an order from the customer's cart
func (oc *OrderController) CreateOrder(c *gin.Context) {
	type CustomizationReq struct {
		GroupID       uint   `json:"group_id"`
		GroupName     string `json:"group_name"`
		OptionID      uint   `json:"option_id"`
		OptionName    string `json:"option_name"`
		PriceModifier string `json:"price_modifier"`
	}
	type ItemReq struct {
		ItemID         uint               `json:"item_id" binding:"required"`
		Quantity       int                `json:"quantity" binding:"required"`
		Customizations []CustomizationReq `json:"customizations"`
	}
	type ReqBody struct {
		Items            []ItemReq `json:"items" binding:"required"`
		CustomerInitials string    `json:"customer_initials" binding:"required"`
		PaymentMethod    string    `json:"payment_method" binding:"required"`
	}

	var body ReqBody
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	lines := make([]cart.Line, 0, len(body.Items))
	for _, req := range body.Items {
		var item models.Item
		if err := oc.DB.First(&item, req.ItemID).Error; err != nil {
			utils.RespondError(c, http.StatusBadRequest, fmt.Errorf("unknown item %d", req.ItemID))
			return
		}
		if !item.IsAvailable {
			utils.RespondError(c, http.StatusConflict, fmt.Errorf("%s is not available", item.Name))
			return
		}

		customizations := make([]models.Customization, 0, len(req.Customizations))
		for _, cr := range req.Customizations {
			mod, err := parseDecimal(cr.PriceModifier)
			if err != nil {
				utils.RespondError(c, http.StatusBadRequest, fmt.Errorf("bad price modifier for option %d", cr.OptionID))
				return
			}
			customizations = append(customizations, models.Customization{
				GroupID:       cr.GroupID,
				GroupName:     cr.GroupName,
				OptionID:      cr.OptionID,
				OptionName:    cr.OptionName,
				PriceModifier: mod,
			})
		}

		if req.Quantity < 1 {
			utils.RespondError(c, http.StatusBadRequest, cart.ErrInvalidQuantity)
			return
		}
		lines = append(lines, cart.Line{
			Item:           item,
			Quantity:       req.Quantity,
			Customizations: customizations,
			LineTotal:      cart.LineTotal(item.BasePrice, customizations, req.Quantity),
		})
	}

	order, err := oc.Orders.PlaceOrder(lines, body.CustomerInitials, body.PaymentMethod)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmptyCart), errors.Is(err, services.ErrInvalidInitials):
			utils.RespondError(c, http.StatusBadRequest, err)
		default:
			utils.RespondError(c, http.StatusInternalServerError, err)
		}
		return
	}

	utils.RespondJSON(c, http.StatusCreated, "Order created", gin.H{
		"order_id":   order.ID,
		"session_id": order.SessionID,
		"status":     order.Status,
		"total":      order.TotalAmount,
	})
}

// GetOrderByID -> detail of one order with its item snapshots
func (oc *OrderController) GetOrderByID(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("order_id"), 10, 32)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, fmt.Errorf("invalid order id"))
		return
	}

	order, err := oc.Orders.GetOrder(uint(id))
	if err != nil {
		if errors.Is(err, services.ErrOrderNotFound) {
			utils.RespondError(c, http.StatusNotFound, err)
			return
		}
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order detail", order)
}

// GetQueue -> the staff queue snapshot, oldest first
func (oc *OrderController) GetQueue(c *gin.Context) {
	utils.RespondJSON(c, http.StatusOK, "Order queue", oc.Queue.Orders())
}

// AdvanceOrderStatus -> staff moves an order forward (paid->preparing->completed)
func (oc *OrderController) AdvanceOrderStatus(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("order_id"), 10, 32)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, fmt.Errorf("invalid order id"))
		return
	}

	type ReqBody struct {
		Status string `json:"status" binding:"required"`
	}
	var body ReqBody
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	order, err := oc.Queue.AdvanceStatus(uint(id), body.Status)
	if err != nil {
		var invalid *services.InvalidTransitionError
		switch {
		case errors.As(err, &invalid):
			utils.RespondError(c, http.StatusConflict, err)
		case errors.Is(err, services.ErrOrderNotFound):
			utils.RespondError(c, http.StatusNotFound, err)
		default:
			utils.RespondError(c, http.StatusInternalServerError, err)
		}
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order updated", order)
}

// parseDecimal treats an absent modifier as zero.
func parseDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}
