package api

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"
	"github.com/unrolled/secure"

	"github.com/fabricwh/rbac-api/internal/api/handler"
	"github.com/fabricwh/rbac-api/internal/api/middleware"
	"github.com/fabricwh/rbac-api/internal/core/catalog"
	"github.com/fabricwh/rbac-api/internal/core/ports"
	"github.com/fabricwh/rbac-api/pkg/logger"
)

// Dependencies are the collaborators the HTTP layer needs. Pingers are
// checked by the readiness probe.
type Dependencies struct {
	Auth     ports.AuthService
	Users    ports.UserService
	Roles    ports.RoleService
	Audit    ports.AuditService
	Resolver ports.IdentityResolver
	Pingers  map[string]handler.Pinger

	// LoginRateLimit is the per-IP request budget per minute on /auth/login
	// and /auth/register. Zero disables throttling.
	LoginRateLimit int
	Production     bool
	Log            zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(d.Log))
	e.Use(echo.WrapMiddleware(secureHeaders(d.Production)))
	e.Use(echoprometheus.NewMiddleware("rbac"))

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(d.Auth)
	userHandler := handler.NewUserHandler(d.Users)
	roleHandler := handler.NewRoleHandler(d.Roles)
	auditHandler := handler.NewAuditHandler(d.Audit)
	authenticate := middleware.Authenticate(d.Resolver)
	can := middleware.RequirePermission

	// --- Auth routes ---
	public := e.Group("/auth")
	if d.LoginRateLimit > 0 {
		public.Use(echo.WrapMiddleware(loginLimiter(d.LoginRateLimit)))
	}
	public.POST("/register", authHandler.Register)
	public.POST("/login", authHandler.Login)

	self := e.Group("/auth", authenticate)
	self.GET("/profile", authHandler.Profile, can(catalog.UserViewOwnProfile))
	self.PUT("/profile", authHandler.UpdateProfile, can(catalog.UserUpdateOwnProfile))
	self.PUT("/change-password", authHandler.ChangePassword, can(catalog.UserUpdateOwnProfile))

	v1 := e.Group("/v1", authenticate)

	// --- Users ---
	users := v1.Group("/users")
	users.GET("", userHandler.List, can(catalog.UserViewList))
	users.POST("", userHandler.Create, can(catalog.UserCreate))
	users.GET("/:id", userHandler.Get, middleware.RequireOwnershipOrPermission(catalog.UserViewDetail, middleware.ParamOwner("id")))
	users.PUT("/:id", userHandler.Update, can(catalog.UserUpdate))
	users.PATCH("/:id/status", userHandler.ChangeStatus, can(catalog.UserChangeStatus))
	users.PATCH("/:id/role", userHandler.ChangeRole, can(catalog.UserManageRoles))
	users.DELETE("/:id", userHandler.Delete, can(catalog.UserDelete))

	// --- Roles ---
	roles := v1.Group("/roles")
	roles.GET("", roleHandler.List, can(catalog.RoleView))
	roles.POST("", roleHandler.Create, can(catalog.RoleCreate))
	roles.GET("/:name", roleHandler.Get, can(catalog.RoleView))
	roles.PUT("/:name", roleHandler.Rename, can(catalog.RoleUpdate))
	roles.DELETE("/:name", roleHandler.Delete, can(catalog.RoleDelete))
	roles.GET("/:name/permissions", roleHandler.Permissions, can(catalog.RoleView))
	roles.PUT("/:name/permissions", roleHandler.SetPermissions, can(catalog.RoleUpdate))
	roles.POST("/:name/permissions", roleHandler.GrantPermissions, can(catalog.RoleUpdate))
	roles.DELETE("/:name/permissions/:key", roleHandler.RevokePermission, can(catalog.RoleUpdate))

	v1.GET("/permissions", roleHandler.ListPermissions,
		middleware.RequireAnyPermission(catalog.RoleView, catalog.SystemManagePermissions))
	v1.GET("/audit-logs", auditHandler.List, can(catalog.SystemViewAuditLogs))

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(d.Pingers)

	e.GET("/health", healthHandler.Liveness)            // liveness
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness

	// --- Operational ---
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

func secureHeaders(production bool) func(http.Handler) http.Handler {
	return secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
		SSLProxyHeaders:    map[string]string{"X-Forwarded-Proto": "https"},
		IsDevelopment:      !production,
	}).Handler
}

// loginLimiter throttles credential endpoints per client IP and answers with
// the standard error envelope.
func loginLimiter(perMinute int) func(http.Handler) http.Handler {
	return httprate.Limit(perMinute, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set(echo.HeaderContentType, echo.MIMEApplicationJSONCharsetUTF8)
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"too many requests"}`))
		}),
	)
}

// requestLogger logs one line per request with zerolog.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			reqLog := logger.WithRequestID(log, v.RequestID)
			reqLog.Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	})
}
