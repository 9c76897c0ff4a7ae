package api

import (
	"context"
	"net/http"

	"github.com/dom/stay-portal/internal/api/handlers"
	"github.com/dom/stay-portal/internal/api/middleware"
	"github.com/dom/stay-portal/internal/config"
	"github.com/dom/stay-portal/internal/domain"
	"github.com/dom/stay-portal/internal/render"
	"github.com/dom/stay-portal/internal/service"
	"github.com/dom/stay-portal/internal/websocket"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

var (
	guest = []domain.Role{domain.RoleGuest}
	host  = []domain.Role{domain.RoleHost}
	admin = []domain.Role{domain.RoleAdmin}
	staff = []domain.Role{domain.RoleHost, domain.RoleAdmin}
	all   = domain.AllRoles
)

// NewRouter wires the portal. It also installs the 401 hook on the shared
// API client so a rejected token explains itself on the landing page.
func NewRouter(services *service.Services, hub *websocket.Hub, views *render.Renderer, cfg *config.Config) http.Handler {
	services.API.OnUnauthorized(func(ctx context.Context, method, path string) {
		store, ok := middleware.GetStore(ctx)
		if !ok {
			return
		}
		if _, err := store.PushFlash(context.WithoutCancel(ctx), domain.FlashError, "Your session has expired. Please log in again."); err != nil {
			log.Error().Err(err).Str("component", "web").Msg("Failed to queue session-ended flash")
		}
	})

	r := chi.NewRouter()

	// Global middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.Metrics)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(views, services, hub, cfg.IsProduction())
	dashboardHandler := handlers.NewDashboardHandler(views, services, hub)
	bookingHandler := handlers.NewBookingHandler(views, services, hub)
	propertyHandler := handlers.NewPropertyHandler(views, services, hub)
	reviewHandler := handlers.NewReviewHandler(views, services, hub)
	adminHandler := handlers.NewAdminHandler(views, services, hub)
	profileHandler := handlers.NewProfileHandler(views, services, hub)
	wsHandler := handlers.NewWebSocketHandler(hub)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Session(services.Sessions, middleware.SessionOptions{
			Cookie: cfg.SessionCookie,
			TTL:    cfg.SessionTTL,
			Secure: cfg.IsProduction(),
		}))

		// Public pages
		r.Get("/", authHandler.Landing)
		r.Get("/login", authHandler.LoginPage)
		r.Post("/login", authHandler.Login)
		r.Get("/register", authHandler.RegisterPage)
		r.Post("/register", authHandler.Register)
		r.Get("/forgot-password", authHandler.ForgotPasswordPage)
		r.Post("/forgot-password", authHandler.ForgotPassword)
		r.Get("/verify-otp", authHandler.VerifyOTPPage)
		r.Post("/verify-otp", authHandler.VerifyOTP)
		r.Get("/reset-password", authHandler.ResetPasswordPage)
		r.Post("/reset-password", authHandler.ResetPassword)
		r.Get("/auth/google/login", authHandler.GoogleLogin)
		r.Get("/auth/google/callback", authHandler.GoogleCallback)
		r.Post("/logout", authHandler.Logout)

		// WebSocket endpoint
		r.Get("/ws", wsHandler.Handle)

		// Dashboards
		r.With(middleware.RequireRoles(guest...)).Get("/guest/dashboard", dashboardHandler.Show)
		r.With(middleware.RequireRoles(host...)).Get("/host/dashboard", dashboardHandler.Show)
		r.With(middleware.RequireRoles(admin...)).Get("/admin/dashboard", dashboardHandler.Show)

		// Booking routes
		r.Route("/bookings", func(r chi.Router) {
			r.With(middleware.RequireRoles(all...)).Get("/", bookingHandler.List)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRoles(guest...))
				r.Get("/new", bookingHandler.New)
				r.Post("/select/{propertyID}", bookingHandler.Select)
				r.Post("/dates", bookingHandler.Dates)
				r.Get("/confirm", bookingHandler.ConfirmPage)
				r.Post("/submit", bookingHandler.Submit)
				r.Post("/defer", bookingHandler.Defer)
				r.Get("/{bookingID}/pay", bookingHandler.PayPage)
				r.Post("/{bookingID}/pay", bookingHandler.Pay)
				r.Get("/{bookingID}/cancel", bookingHandler.CancelPage)
				r.Post("/{bookingID}/cancel", bookingHandler.Cancel)
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRoles(admin...))
				r.Get("/{bookingID}/delete", bookingHandler.DeletePage)
				r.Post("/{bookingID}/delete", bookingHandler.Delete)
			})
		})

		// Hosted checkout return pages
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRoles(guest...))
			r.Get("/payment/success", bookingHandler.PaymentSuccess)
			r.Get("/payment/cancel", bookingHandler.PaymentCancel)
		})

		// Property routes
		r.Route("/properties", func(r chi.Router) {
			r.With(middleware.RequireRoles(all...)).Get("/", propertyHandler.List)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRoles(staff...))
				r.Get("/new", propertyHandler.NewPage)
				r.Post("/", propertyHandler.Create)
				r.Get("/{propertyID}/edit", propertyHandler.EditPage)
				r.Post("/{propertyID}", propertyHandler.Update)
				r.Get("/{propertyID}/delete", propertyHandler.DeletePage)
				r.Post("/{propertyID}/delete", propertyHandler.Delete)
			})
		})

		// Review routes
		r.Route("/reviews", func(r chi.Router) {
			r.Use(middleware.RequireRoles(all...))
			r.Get("/", reviewHandler.List)
			r.Get("/{reviewID}/edit", reviewHandler.EditPage)
			r.Post("/{reviewID}/edit", reviewHandler.Edit)
			r.Get("/{reviewID}/delete", reviewHandler.DeletePage)
			r.Post("/{reviewID}/delete", reviewHandler.Delete)

			r.With(middleware.RequireRoles(guest...)).Get("/new", reviewHandler.NewPage)
			r.With(middleware.RequireRoles(guest...)).Post("/", reviewHandler.Create)
			r.With(middleware.RequireRoles(staff...)).Get("/{reviewID}/respond", reviewHandler.RespondPage)
			r.With(middleware.RequireRoles(staff...)).Post("/{reviewID}/respond", reviewHandler.Respond)
		})

		// Admin user management
		r.Route("/admin/users", func(r chi.Router) {
			r.Use(middleware.RequireRoles(admin...))
			r.Get("/", adminHandler.Users)
			r.Get("/new", adminHandler.NewPage)
			r.Post("/", adminHandler.Create)
			r.Get("/{userID}/edit", adminHandler.EditPage)
			r.Post("/{userID}", adminHandler.Update)
			r.Get("/{userID}/toggle", adminHandler.TogglePage)
			r.Post("/{userID}/toggle", adminHandler.Toggle)
		})

		// Profile
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRoles(all...))
			r.Get("/profile", profileHandler.GetProfile)
			r.Post("/profile", profileHandler.UpdateProfile)
		})
	})

	return r
}
