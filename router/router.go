package router

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ashtongoh/korii-pos-sys/controllers"
	"github.com/ashtongoh/korii-pos-sys/live"
	"github.com/ashtongoh/korii-pos-sys/middlewares"
	"github.com/ashtongoh/korii-pos-sys/services"
)

// Deps carries everything the routes need.
type Deps struct {
	DB       *gorm.DB
	Hub      *live.Hub
	Orders   *services.OrderService
	Payments *services.PaymentService
	HitPay   *services.HitPayService
	Queue    *services.QueueSynchronizer
}

func SetupRouter(deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware())
	r.Use(middlewares.LoggerMiddleware())

	limiter := middlewares.NewRateLimiter(100, 60)
	r.Use(limiter.RateLimit())

	userCtrl := controllers.NewUserController(deps.DB)
	orderCtrl := controllers.NewOrderController(deps.DB, deps.Orders, deps.Queue)
	paymentCtrl := controllers.NewPaymentController(deps.Payments, deps.HitPay)
	webhookCtrl := controllers.NewWebhookController(deps.Payments, deps.HitPay)
	liveCtrl := controllers.NewLiveController(deps.Hub)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	strict := middlewares.NewStrictRateLimiter()
	r.POST("/register", strict, userCtrl.Register)
	r.POST("/login", strict, userCtrl.Login)

	// Customer flow: place an order, request the QR, poll the session.
	r.POST("/orders", orderCtrl.CreateOrder)
	r.GET("/orders/:order_id", orderCtrl.GetOrderByID)
	r.POST("/payments/qr", paymentCtrl.RequestQrPayment)
	r.GET("/payments/sessions/:session_id", paymentCtrl.GetSessionStatus)

	// Gateway callbacks. The GET is the liveness probe HitPay sends when
	// the webhook URL is registered.
	r.GET("/webhooks/payment", webhookCtrl.Liveness)
	r.POST("/webhooks/payment", webhookCtrl.HandlePaymentWebhook)

	staff := r.Group("/staff", middlewares.AuthMiddleware())
	{
		staff.GET("/queue", orderCtrl.GetQueue)
		staff.POST("/orders/:order_id/advance", orderCtrl.AdvanceOrderStatus)
	}

	r.GET("/ws/:role", middlewares.WebSocketAuthMiddleware(), liveCtrl.HandleWebSocket)

	return r
}
