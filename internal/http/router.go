package http

import (
	"log/slog"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/raizurai/userhub/internal/audit"
	"github.com/raizurai/userhub/internal/config"
	"github.com/raizurai/userhub/internal/docs"
	"github.com/raizurai/userhub/internal/http/handlers"
	"github.com/raizurai/userhub/internal/http/middlewares"
	"github.com/raizurai/userhub/internal/observability"
	"github.com/raizurai/userhub/internal/repo"
)

const maxBodyBytes = 1 << 20

type Deps struct {
	Config config.Config
	Log    *slog.Logger
	Store  repo.Store
	Users  handlers.UserService
	Prom   *observability.Prom
	Audit  audit.Sink

	// ShuttingDown, when set, fails /readyz during graceful shutdown.
	ShuttingDown func() bool
}

func NewRouter(d Deps) *gin.Engine {
	if !d.Config.IsDev() {
		gin.SetMode(gin.ReleaseMode)
	}

	if d.Audit == nil {
		d.Audit = audit.NopSink{}
	}

	r := gin.New()
	r.RedirectTrailingSlash = true

	// middleware
	r.Use(gin.Recovery())
	if d.Config.Tracing.Enabled {
		r.Use(otelgin.Middleware(d.Config.App.Name))
	}
	r.Use(middlewares.RequestID())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(d.Config.CORS.Origins))
	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}
	r.Use(middlewares.RequestLogger(d.Log))
	r.Use(middlewares.Audit(d.Audit, d.Log))

	r.GET("/", handlers.Root(handlers.RootInfo{
		Name:      d.Config.App.Name,
		Version:   d.Config.App.Version,
		Database:  d.Store.Kind(),
		APIPrefix: d.Config.App.APIPrefix,
	}))

	h := handlers.NewHealthHandler(d.Store, d.ShuttingDown)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	if d.Prom != nil {
		r.GET("/metrics", gin.WrapH(d.Prom.Handler()))
	}

	r.GET("/docs", handlers.SwaggerUI)
	r.GET("/docs/openapi.yaml", handlers.OpenAPI(docs.OpenAPI()))

	usersHandler := handlers.NewUsersHandler(d.Users)

	api := r.Group(strings.TrimRight(d.Config.App.APIPrefix, "/"))
	users := api.Group("/users")
	users.Use(middlewares.MaxBodyBytes(maxBodyBytes), middlewares.RequireJSON())
	{
		users.POST("/", usersHandler.CreateUser)
		users.GET("/", usersHandler.ListUsers)
		users.GET("/:id", usersHandler.GetUser)
		users.PUT("/:id", usersHandler.UpdateUser)
		users.DELETE("/:id", usersHandler.DeleteUser)
	}

	return r
}
