package middlewares

import (
	"os"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORSMiddleware allows the storefront and staff display origins. Origins
// come from CORS_ORIGINS (comma separated); unset means local development.
func CORSMiddleware() gin.HandlerFunc {
	origins := []string{"http://localhost:5173", "http://127.0.0.1:5173"}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		origins = strings.Split(env, ",")
	}

	return cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{
			"Origin", "Content-Type", "Content-Length", "Accept",
			"Authorization", "Cache-Control", "X-Requested-With",
		},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}
