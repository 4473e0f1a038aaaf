package controllers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ashtongoh/korii-pos-sys/controllers"
	"github.com/ashtongoh/korii-pos-sys/live"
	"github.com/ashtongoh/korii-pos-sys/models"
	"github.com/ashtongoh/korii-pos-sys/services"
)

func setupOrderTest(t *testing.T) (*gorm.DB, *gin.Engine, *services.QueueSynchronizer) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	err = db.AutoMigrate(&models.Item{}, &models.Order{}, &models.OrderItem{},
		&models.PaymentSession{}, &models.DBChange{})
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}

	orders := services.NewOrderService(db)
	queue := services.NewQueueSynchronizer(orders, live.NewHub())
	queue.Start()
	t.Cleanup(queue.Stop)

	ctrl := controllers.NewOrderController(db, orders, queue)
	r := gin.New()
	r.POST("/orders", ctrl.CreateOrder)
	r.GET("/orders/:order_id", ctrl.GetOrderByID)
	r.GET("/staff/queue", ctrl.GetQueue)
	r.POST("/staff/orders/:order_id/advance", ctrl.AdvanceOrderStatus)
	return db, r, queue
}

func seedMenuItem(t *testing.T, db *gorm.DB, name, price string) models.Item {
	t.Helper()
	item := models.Item{Name: name, BasePrice: decimalFromString(t, price), IsAvailable: true}
	assert.NoError(t, db.Create(&item).Error)
	return item
}

func postJSON(r *gin.Engine, path string, payload interface{}) *httptest.ResponseRecorder {
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateOrderCash(t *testing.T) {
	db, r, queue := setupOrderTest(t)
	item := seedMenuItem(t, db, "Iced Latte", "5.00")

	w := postJSON(r, "/orders", gin.H{
		"items": []gin.H{{
			"item_id":  item.ID,
			"quantity": 2,
			"customizations": []gin.H{{
				"group_id":       1,
				"group_name":     "Milk",
				"option_id":      10,
				"option_name":    "Oat milk",
				"price_modifier": "0.80",
			}},
		}},
		"customer_initials": "AG",
		"payment_method":    models.PaymentMethodCash,
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	var resp map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, models.OrderStatusPaid, data["status"])
	assert.NotEmpty(t, data["session_id"])

	// (5.00 + 0.80) * 2
	var order models.Order
	assert.NoError(t, db.First(&order, uint(data["order_id"].(float64))).Error)
	assert.Equal(t, "11.60", order.TotalAmount.StringFixed(2))

	// Cash orders land in the queue right away.
	assert.NoError(t, queue.Refresh())
	assert.Len(t, queue.Orders(), 1)
}

func TestCreateOrderRejectsUnknownItem(t *testing.T) {
	_, r, _ := setupOrderTest(t)
	w := postJSON(r, "/orders", gin.H{
		"items":             []gin.H{{"item_id": 999, "quantity": 1}},
		"customer_initials": "AG",
		"payment_method":    models.PaymentMethodCash,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateOrderRejectsUnavailableItem(t *testing.T) {
	db, r, _ := setupOrderTest(t)
	item := models.Item{Name: "Seasonal", BasePrice: decimalFromString(t, "6.00"), IsAvailable: false}
	assert.NoError(t, db.Create(&item).Error)

	// The false must survive the insert; a column default would swallow it.
	var stored models.Item
	assert.NoError(t, db.First(&stored, item.ID).Error)
	assert.False(t, stored.IsAvailable)

	w := postJSON(r, "/orders", gin.H{
		"items":             []gin.H{{"item_id": item.ID, "quantity": 1}},
		"customer_initials": "AG",
		"payment_method":    models.PaymentMethodCash,
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	var count int64
	db.Model(&models.Order{}).Count(&count)
	assert.Zero(t, count)
}

func TestCreateOrderRejectsBadInitials(t *testing.T) {
	db, r, _ := setupOrderTest(t)
	item := seedMenuItem(t, db, "Latte", "5.00")

	w := postJSON(r, "/orders", gin.H{
		"items":             []gin.H{{"item_id": item.ID, "quantity": 1}},
		"customer_initials": "A1B2",
		"payment_method":    models.PaymentMethodCash,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetOrderByID(t *testing.T) {
	db, r, _ := setupOrderTest(t)
	item := seedMenuItem(t, db, "Latte", "5.00")

	w := postJSON(r, "/orders", gin.H{
		"items":             []gin.H{{"item_id": item.ID, "quantity": 1}},
		"customer_initials": "AG",
		"payment_method":    models.PaymentMethodCash,
	})
	assert.Equal(t, http.StatusCreated, w.Code)
	var resp map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	orderID := uint(resp["data"].(map[string]interface{})["order_id"].(float64))

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/orders/%d", orderID), nil)
	got := httptest.NewRecorder()
	r.ServeHTTP(got, req)
	assert.Equal(t, http.StatusOK, got.Code)

	req = httptest.NewRequest(http.MethodGet, "/orders/9999", nil)
	got = httptest.NewRecorder()
	r.ServeHTTP(got, req)
	assert.Equal(t, http.StatusNotFound, got.Code)
}

func TestAdvanceOrderEndpoint(t *testing.T) {
	db, r, _ := setupOrderTest(t)
	item := seedMenuItem(t, db, "Latte", "5.00")

	w := postJSON(r, "/orders", gin.H{
		"items":             []gin.H{{"item_id": item.ID, "quantity": 1}},
		"customer_initials": "AG",
		"payment_method":    models.PaymentMethodCash,
	})
	var resp map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	orderID := uint(resp["data"].(map[string]interface{})["order_id"].(float64))

	w = postJSON(r, fmt.Sprintf("/staff/orders/%d/advance", orderID), gin.H{
		"status": models.OrderStatusPreparing,
	})
	assert.Equal(t, http.StatusOK, w.Code)

	// Skipping straight to a second "preparing" is a conflict now.
	w = postJSON(r, fmt.Sprintf("/staff/orders/%d/advance", orderID), gin.H{
		"status": models.OrderStatusPreparing,
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = postJSON(r, "/staff/orders/9999/advance", gin.H{
		"status": models.OrderStatusPreparing,
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}
