package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"tourbooking/internal/domain/auth"
	"tourbooking/internal/domain/booking"
	"tourbooking/internal/domain/catalog"
	"tourbooking/internal/domain/chat"
	"tourbooking/internal/domain/contact"
	"tourbooking/internal/domain/notification"
	"tourbooking/internal/metrics"
	"tourbooking/internal/middleware"
	"tourbooking/internal/pkg/jwt"
	"tourbooking/internal/pkg/response"
)

// Deps are the long-lived objects the router is assembled from.
type Deps struct {
	DB         *gorm.DB
	JWT        *jwt.Service
	Metrics    *metrics.Registry
	Dispatcher notification.Dispatcher
	Hub        *chat.Hub

	CORSOrigins  []string
	MetricsToken string

	// Clock overrides time.Now for booking date rules. Nil uses the wall clock.
	Clock func() time.Time
}

// NewRouter wires every domain onto one gin engine under /api/v1.
func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.RequestLogger(),
		middleware.ErrorLogger(),
		middleware.CORS(d.CORSOrigins),
		middleware.Metrics(d.Metrics),
	)

	r.GET("/health", health(d.DB))
	r.GET("/metrics", middleware.MetricsTokenAuth(d.MetricsToken),
		gin.WrapH(promhttp.HandlerFor(d.Metrics.Gatherer(), promhttp.HandlerOpts{})))

	users := auth.NewUserRepository(d.DB)
	tours := catalog.NewRepository(d.DB)

	authHandler := auth.NewHandler(auth.NewService(users, d.JWT))
	catalogHandler := catalog.NewHandler(tours)

	bookingOpts := []booking.Option{booking.WithMetrics(d.Metrics)}
	if d.Clock != nil {
		bookingOpts = append(bookingOpts, booking.WithClock(d.Clock))
	}
	bookingHandler := booking.NewHandler(booking.NewService(booking.NewRepository(d.DB), tours, d.Dispatcher, bookingOpts...))

	chatService := chat.NewService(chat.NewRepository(d.DB), users, d.Dispatcher, chat.WithMetrics(d.Metrics))
	chatHandler := chat.NewHandler(chatService, d.Hub)
	socketHandler := chat.NewWSHandler(d.Hub, d.JWT, chatService, d.CORSOrigins)

	contactHandler := contact.NewHandler(contact.NewService(d.Dispatcher))
	notificationHandler := notification.NewHandler(notification.NewDeliveryRepository(d.DB))

	v1 := r.Group("/api/v1")
	{
		// public
		authHandler.RegisterPublicRoutes(v1)
		catalogHandler.RegisterRoutes(v1)
		bookingHandler.RegisterPublicRoutes(v1, middleware.OptionalJWTAuth(d.JWT))
		contactHandler.RegisterRoutes(v1)
		socketHandler.RegisterSocketRoute(v1)

		protected := v1.Group("")
		protected.Use(middleware.JWTAuth(d.JWT))
		{
			authHandler.RegisterProtectedRoutes(protected)
			bookingHandler.RegisterProtectedRoutes(protected)
			chatHandler.RegisterProtectedRoutes(protected)
		}

		staff := v1.Group("")
		staff.Use(middleware.JWTAuth(d.JWT), middleware.StaffOnly())
		{
			bookingHandler.RegisterStaffRoutes(staff)
			chatHandler.RegisterStaffRoutes(staff)
			notificationHandler.RegisterStaffRoutes(staff)
		}
	}

	return r
}

func health(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			response.Error(c, http.StatusServiceUnavailable, "UNHEALTHY", "database unavailable")
			return
		}
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	}
}
