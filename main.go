package main

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/ashtongoh/korii-pos-sys/config"
	"github.com/ashtongoh/korii-pos-sys/database"
	"github.com/ashtongoh/korii-pos-sys/live"
	"github.com/ashtongoh/korii-pos-sys/models"
	"github.com/ashtongoh/korii-pos-sys/router"
	"github.com/ashtongoh/korii-pos-sys/services"
	"github.com/ashtongoh/korii-pos-sys/utils"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}
	utils.InitLogger()

	for _, name := range []string{"HITPAY_API_KEY", "HITPAY_SALT", "APP_URL"} {
		if os.Getenv(name) == "" {
			utils.ErrorLogger.Printf("environment variable %s is not set", name)
		}
	}

	db, err := config.InitDB()
	if err != nil {
		utils.ErrorLogger.Fatalf("database init: %v", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Item{},
		&models.Order{},
		&models.OrderItem{},
		&models.PaymentSession{},
		&models.DBChange{},
	); err != nil {
		utils.ErrorLogger.Fatalf("migrate: %v", err)
	}
	if err := database.ExecuteTriggers(db); err != nil {
		utils.ErrorLogger.Fatalf("install triggers: %v", err)
	}

	hub := live.NewHub()

	orders := services.NewOrderService(db)
	payments := services.NewPaymentService(db)
	hitpay := services.GetHitPayService()

	monitor := services.NewChangeMonitor(db, hub)
	monitor.Start()
	defer monitor.Stop()

	payments.StartExpirySweeper()
	defer close(payments.StopChan)

	queue := services.NewQueueSynchronizer(orders, hub)
	queue.Start()
	defer queue.Stop()

	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := router.SetupRouter(router.Deps{
		DB:       db,
		Hub:      hub,
		Orders:   orders,
		Payments: payments,
		HitPay:   hitpay,
		Queue:    queue,
	})
	if err := r.SetTrustedProxies(nil); err != nil {
		utils.ErrorLogger.Fatalf("trusted proxies: %v", err)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	utils.InfoLogger.Printf("korii pos listening on :%s", port)
	if err := r.Run(":" + port); err != nil {
		utils.ErrorLogger.Fatalf("server: %v", err)
	}
}
