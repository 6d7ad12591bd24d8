package ginserver

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"rentcars/internal/infra/config"
	"rentcars/internal/infra/obs"
)

type CarHTTP interface {
	List(c *gin.Context)
	Get(c *gin.Context)
	Availability(c *gin.Context)
}

type BookingHTTP interface {
	Quote(c *gin.Context)
	Confirm(c *gin.Context)
	Get(c *gin.Context)
	Cancel(c *gin.Context)
	Mine(c *gin.Context)
}

type AdminHTTP interface {
	ListBookings(c *gin.Context)
	Transition(c *gin.Context)
	RunReminders(c *gin.Context)
}

type PaymentHTTP interface {
	Webhook(c *gin.Context)
	SandboxComplete(c *gin.Context)
	SandboxFail(c *gin.Context)
}

type Handlers struct {
	Cars           CarHTTP
	Booking        BookingHTTP
	Admin          AdminHTTP
	Payments       PaymentHTTP
	AuthMiddleware gin.HandlerFunc
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewRouter(cfg, obsMW, health, h),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func NewRouter(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *gin.Engine {
	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.AccessLog())
	router.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", "Idempotency-Key", "Stripe-Signature"},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			"X-Request-ID",
		},
		MaxAge: 12 * time.Hour,
	}))

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	api := router.Group("/api/v1")
	// Stripe signs the raw body; the webhook must not see bearer-token handling.
	if h.Payments != nil {
		api.POST("/payments/webhook", h.Payments.Webhook)
	}
	if h.AuthMiddleware != nil {
		api.Use(h.AuthMiddleware)
	}
	if h.Cars != nil {
		api.GET("/cars", h.Cars.List)
		api.GET("/cars/:id", h.Cars.Get)
		api.GET("/cars/:id/availability", h.Cars.Availability)
	}
	if h.Booking != nil {
		api.POST("/bookings/quote", h.Booking.Quote)
		api.POST("/bookings", h.Booking.Confirm)
		api.GET("/bookings/:id", h.Booking.Get)
		api.POST("/bookings/:id/cancel", h.Booking.Cancel)
		api.GET("/me/bookings", h.Booking.Mine)
	}
	if h.Admin != nil {
		admin := api.Group("/admin")
		admin.GET("/bookings", h.Admin.ListBookings)
		admin.POST("/bookings/:id/transition", h.Admin.Transition)
		admin.POST("/reminders/run", h.Admin.RunReminders)
	}
	if h.Payments != nil && cfg.SandboxPayments {
		sandbox := api.Group("/sandbox/payments")
		sandbox.POST("/:id/complete", h.Payments.SandboxComplete)
		sandbox.POST("/:id/fail", h.Payments.SandboxFail)
	}
	return router
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug", "dev", "local":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}

func parseIntWithDefault(raw string, fallback int) int {
	if raw = strings.TrimSpace(raw); raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
