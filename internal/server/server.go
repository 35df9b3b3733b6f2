package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/dukerupert/eventsphere/internal/auth"
	"github.com/dukerupert/eventsphere/internal/config"
	"github.com/dukerupert/eventsphere/internal/email"
	"github.com/dukerupert/eventsphere/internal/handler"
	"github.com/dukerupert/eventsphere/internal/media"
	"github.com/dukerupert/eventsphere/internal/middleware"
	"github.com/dukerupert/eventsphere/internal/model"
	"github.com/dukerupert/eventsphere/internal/reminder"
	"github.com/dukerupert/eventsphere/internal/service"
	"github.com/dukerupert/eventsphere/internal/store"
	ws "github.com/dukerupert/eventsphere/internal/websocket"
	"github.com/rs/cors"
)

type Server struct {
	db         *sql.DB
	hub        *ws.Hub
	authH      *handler.AuthHandler
	eventH     *handler.EventHandler
	rsvpH      *handler.RSVPHandler
	feedbackH  *handler.FeedbackHandler
	userH      *handler.UserHandler
	dashboardH *handler.DashboardHandler

	tokens      *auth.TokenIssuer
	userStore   *store.UserStore
	rsvpService *service.RSVPService
	rateLimiter *middleware.RateLimiter
	reminders   *reminder.Scheduler
	origins     []string
	logger      *slog.Logger
}

func New(db *sql.DB, cfg config.Config, emailClient *email.Client, images *media.Store, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	userStore := store.NewUserStore(db)
	eventStore := store.NewEventStore(db)
	rsvpStore := store.NewRSVPStore(db)
	feedbackStore := store.NewFeedbackStore(db)

	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)

	eventSvc := service.NewEventService(eventStore, userStore, images, cfg.Location, logger.With("component", "event"))
	rsvpSvc := service.NewRSVPService(rsvpStore, eventStore, emailClient, cfg.Location, logger.With("component", "rsvp"))
	authSvc := service.NewAuthService(userStore, tokens, emailClient, logger.With("component", "auth"))
	userSvc := service.NewUserService(userStore, images, logger.With("component", "user"))
	feedbackSvc := service.NewFeedbackService(feedbackStore, rsvpStore, eventStore)
	dashboardSvc := service.NewDashboardService(userStore, eventStore, rsvpStore, rsvpSvc)

	return &Server{
		db:         db,
		hub:        hub,
		authH:      handler.NewAuthHandler(authSvc, logger.With("component", "auth")),
		eventH:     handler.NewEventHandler(eventSvc, rsvpSvc, hub, cfg.Location, logger.With("component", "event")),
		rsvpH:      handler.NewRSVPHandler(rsvpSvc, eventSvc, hub, logger.With("component", "rsvp")),
		feedbackH:  handler.NewFeedbackHandler(feedbackSvc, logger.With("component", "feedback")),
		userH:      handler.NewUserHandler(userSvc, logger.With("component", "user")),
		dashboardH: handler.NewDashboardHandler(dashboardSvc, logger.With("component", "dashboard")),

		tokens:      tokens,
		userStore:   userStore,
		rsvpService: rsvpSvc,
		rateLimiter: middleware.NewRateLimiter(10, time.Minute),
		reminders:   reminder.NewScheduler(rsvpStore, emailClient, cfg.ReminderInterval, cfg.ReminderLead, logger.With("component", "reminder")),
		origins:     cfg.CORSOrigins,
		logger:      logger,
	}
}

// UserStore returns the user store for cleanup tasks.
func (s *Server) UserStore() *store.UserStore {
	return s.userStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// ReminderScheduler returns the event reminder scheduler.
func (s *Server) ReminderScheduler() *reminder.Scheduler {
	return s.reminders
}

// RSVPService exposes the RSVP service so shutdown can wait for pending emails.
func (s *Server) RSVPService() *service.RSVPService {
	return s.rsvpService
}

// Hub returns the websocket hub.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("GET /api/health", s.healthHandler)
	outerMux.HandleFunc("POST /api/auth/register", s.rateLimitedHandler(s.authH.Register))
	outerMux.HandleFunc("POST /api/auth/login", s.rateLimitedHandler(s.authH.Login))
	outerMux.HandleFunc("POST /api/auth/forgot-password", s.rateLimitedHandler(s.authH.ForgotPassword))
	outerMux.HandleFunc("POST /api/auth/reset-password", s.rateLimitedHandler(s.authH.ResetPassword))
	outerMux.HandleFunc("POST /api/auth/reset-password/{token}", s.rateLimitedHandler(s.authH.ResetPassword))
	outerMux.HandleFunc("GET /api/events", s.eventH.List)
	outerMux.HandleFunc("GET /api/events/categories", s.eventH.Categories)
	outerMux.HandleFunc("GET /api/events/{id}", s.eventH.Get)
	outerMux.HandleFunc("GET /api/events/{id}/feedback", s.feedbackH.List)

	// Protected routes, wrapped with RequireAuth
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.tokens, s.userStore)
	outerMux.Handle("/api/", authMiddleware(protectedMux))

	// Live updates for organizer dashboards
	wsHandler := ws.HandleWebSocket(s.hub, originHosts(s.origins), s.logger.With("component", "websocket"))
	outerMux.Handle("GET /ws", authMiddleware(organizerOnly(wsHandler)))

	c := cors.New(cors.Options{
		AllowedOrigins:   s.origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           int((12 * time.Hour).Seconds()),
	})

	// Apply request logging middleware
	return middleware.RequestLogger(s.logger.With("component", "http"))(c.Handler(outerMux))
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if err := s.db.PingContext(r.Context()); err != nil {
		s.logger.Error("health check", "error", err)
		status = "unavailable"
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"status": status})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}

var organizerOnly = middleware.RequireRoles(model.RoleOrganizer, model.RoleAdmin)

func adminOnly(h http.HandlerFunc) http.Handler {
	return middleware.RequireAdmin(h)
}

func organizer(h http.HandlerFunc) http.Handler {
	return organizerOnly(h)
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	// Auth
	mux.HandleFunc("GET /api/auth/me", s.authH.Me)

	// Events
	mux.Handle("POST /api/events", organizer(s.eventH.Create))
	mux.HandleFunc("PUT /api/events/{id}", s.eventH.Update)
	mux.HandleFunc("DELETE /api/events/{id}", s.eventH.Delete)
	mux.HandleFunc("POST /api/events/{id}/image", s.eventH.UploadImage)
	mux.HandleFunc("GET /api/events/{id}/attendees.xlsx", s.eventH.ExportAttendees)
	mux.HandleFunc("POST /api/events/{id}/feedback", s.feedbackH.Create)

	// RSVPs
	mux.HandleFunc("POST /api/rsvps", s.rsvpH.Create)
	mux.HandleFunc("DELETE /api/rsvps/event/{eventId}", s.rsvpH.Cancel)
	mux.HandleFunc("GET /api/rsvps/event/{eventId}", s.rsvpH.ByEvent)
	mux.HandleFunc("GET /api/rsvps/my", s.rsvpH.Mine)
	mux.Handle("GET /api/rsvps/organizer", organizer(s.rsvpH.Organizer))
	mux.Handle("GET /api/rsvps/organizer/stats", organizer(s.rsvpH.OrganizerStats))
	mux.Handle("GET /api/rsvps", adminOnly(s.rsvpH.All))
	mux.HandleFunc("GET /api/rsvps/qr/{id}", s.rsvpH.QR)
	mux.Handle("POST /api/rsvps/checkin", organizer(s.rsvpH.CheckIn))

	// Dashboard
	mux.HandleFunc("GET /api/dashboard", s.dashboardH.Get)

	// Admin user management
	mux.Handle("GET /api/users", adminOnly(s.userH.List))
	mux.Handle("POST /api/users/admin", adminOnly(s.userH.CreateAdmin))
	mux.Handle("PUT /api/users/{id}/role", adminOnly(s.userH.UpdateRole))
	mux.Handle("PUT /api/users/{id}/block", adminOnly(s.userH.SetBlocked))
	mux.Handle("DELETE /api/users/{id}", adminOnly(s.userH.Delete))
}

// originHosts turns CORS origins into the host patterns the websocket
// handshake checks against.
func originHosts(origins []string) []string {
	hosts := make([]string, 0, len(origins))
	for _, o := range origins {
		if o == "*" {
			hosts = append(hosts, "*")
			continue
		}
		u, err := url.Parse(o)
		if err != nil || u.Host == "" {
			continue
		}
		hosts = append(hosts, u.Host)
	}
	return hosts
}
