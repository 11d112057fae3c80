package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"attendvault/internal/attendance"
	"attendvault/internal/auth"
	"attendvault/internal/cardvault"
	"attendvault/internal/config"
	"attendvault/internal/httpmiddleware"
	"attendvault/internal/logger"
	"attendvault/internal/metrics"
)

const sessionCookie = "attendance_session"

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Healthy(ctx context.Context) bool
}

// Deps are the collaborators shared by both routers.
type Deps struct {
	Config  config.App
	Logger  *zap.Logger
	Limiter httpmiddleware.Limiter
	// Health lists the dependencies reported by /healthz.
	Health map[string]Pinger
}

func (d Deps) limiter() httpmiddleware.Limiter {
	if d.Limiter != nil {
		return d.Limiter
	}
	return httpmiddleware.NewTokenBucket(d.Config.RateLimitPerMin, d.Config.RateLimitPerMin)
}

func (d Deps) logger() *zap.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return logger.L()
}

func baseRouter(app string, d Deps) *gin.Engine {
	r := gin.New()
	r.Use(
		gin.Recovery(),
		httpmiddleware.RequestID(),
		httpmiddleware.RequestLogger(d.logger(), "/healthz", "/metrics"),
		metrics.Middleware(app),
		httpmiddleware.SecurityHeaders(),
	)
	r.GET("/metrics", metrics.Handler())
	r.GET("/healthz", healthz(d.Health))
	return r
}

func healthz(checks map[string]Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		body := gin.H{"status": "ok"}
		status := http.StatusOK
		for name, p := range checks {
			ok := p.Healthy(ctx)
			body[name] = ok
			if !ok {
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
			}
		}
		c.JSON(status, body)
	}
}

// NewAttendanceRouter builds the attendance web app.
func NewAttendanceRouter(svc *attendance.Service, d Deps) *gin.Engine {
	r := baseRouter("attendance", d)
	r.SetHTMLTemplate(loadTemplates("templates/attendance/*.html"))

	store := cookie.NewStore([]byte(d.Config.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int(d.Config.SessionMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   d.Config.SessionSecure,
		SameSite: http.SameSiteLaxMode,
	})

	h := &attendanceHandler{svc: svc, cfg: d.Config}
	limit := httpmiddleware.RateLimit(d.limiter())

	web := r.Group("/", httpmiddleware.NoCache(), sessions.Sessions(sessionCookie, store), auth.LoadIdentity())
	web.GET("/", h.index)
	web.GET("/login", h.loginForm)
	web.POST("/login", limit, h.login)
	web.GET("/register", h.registerForm)
	web.POST("/register", limit, h.register)
	web.GET("/logout", h.logout)
	web.POST("/scan_qr", h.scanQR)

	member := web.Group("/", auth.RequireLogin())
	member.GET("/profile", h.profile)
	member.POST("/profile", h.updateProfile)
	member.GET("/manage_attendance", h.manageAttendance)
	member.POST("/manage_attendance", h.manageAttendance)

	admin := web.Group("/", auth.RequireAdmin(svc))
	admin.GET("/admins", h.admins)
	admin.GET("/generate_qr", h.generateQRForm)
	admin.POST("/generate_qr", h.generateQR)
	admin.GET("/show_attendance_csv_settings", h.exportSettings)
	admin.POST("/show_attendance_csv_settings", h.forwardExport)
	admin.POST("/download_filtered_attendance_csv", h.downloadCSV)

	api := r.Group("/api")
	api.POST("/token", limit, h.apiToken)
	api.POST("/checkins", auth.BearerAuth(d.Config.JWTSigningKey, d.Config.JWTIssuer), h.apiCheckIn)

	return r
}

// NewCardVaultRouter builds the card vault web app and JSON API.
func NewCardVaultRouter(svc *cardvault.Service, d Deps) *gin.Engine {
	r := baseRouter("cardvault", d)
	r.SetHTMLTemplate(loadTemplates("templates/cards/*.html"))
	r.MaxMultipartMemory = int64(d.Config.MaxUploadMB) << 20

	corsCfg := cors.DefaultConfig()
	if len(d.Config.CORSOrigins) > 0 {
		corsCfg.AllowOrigins = d.Config.CORSOrigins
	} else {
		corsCfg.AllowAllOrigins = true
	}
	corsCfg.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}
	corsCfg.AddAllowHeaders(httpmiddleware.RequestIDHeader)
	corsCfg.ExposeHeaders = []string{httpmiddleware.RequestIDHeader}
	corsCfg.MaxAge = 12 * time.Hour
	r.Use(cors.New(corsCfg))

	h := &cardHandler{svc: svc, maxUpload: int64(d.Config.MaxUploadMB) << 20}
	r.GET("/", h.index)
	r.POST("/ocr", httpmiddleware.RateLimit(d.limiter()), h.ocr)
	r.POST("/save_card", h.save)
	r.GET("/cards", h.list)
	r.GET("/cards/:id", h.get)
	r.PUT("/cards/:id", h.update)
	r.DELETE("/cards/:id", h.delete)
	return r
}
