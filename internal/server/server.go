package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	authdomain "github.com/inkwell-ai/inkwell/internal/auth/domain"
	"github.com/inkwell-ai/inkwell/internal/auth/session"
	"github.com/inkwell-ai/inkwell/internal/config"
	contentdomain "github.com/inkwell-ai/inkwell/internal/content/domain"
	creditdomain "github.com/inkwell-ai/inkwell/internal/credit/domain"
	"github.com/inkwell-ai/inkwell/internal/observability"
	obsmiddleware "github.com/inkwell-ai/inkwell/internal/observability/logger"
	obsmetrics "github.com/inkwell-ai/inkwell/internal/observability/metrics"
	obstracing "github.com/inkwell-ai/inkwell/internal/observability/tracing"
	"github.com/inkwell-ai/inkwell/internal/ratelimit"
	"go.uber.org/fx"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine     *gin.Engine
	cfg        config.Config
	authsvc    authdomain.Service
	contentsvc contentdomain.Service
	credits    creditdomain.Store
	sessions   *session.Manager
	genID      *snowflake.Node
	limiter    *ratelimit.GenerateLimiter
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	Cfg        config.Config
	Authsvc    authdomain.Service
	Contentsvc contentdomain.Service
	Credits    creditdomain.Store
	Sessions   *session.Manager
	GenID      *snowflake.Node
	Limiter    *ratelimit.GenerateLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:     p.Gin,
		cfg:        p.Cfg,
		authsvc:    p.Authsvc,
		contentsvc: p.Contentsvc,
		credits:    p.Credits,
		sessions:   p.Sessions,
		genID:      p.GenID,
		limiter:    p.Limiter,
	}

	svc.registerAuthRoutes()
	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	auth := s.engine.Group("/auth")

	auth.POST("/signup", s.Signup)
	auth.POST("/login", s.Login)
	auth.POST("/logout", s.Logout)
	auth.GET("/me", s.AuthRequired(), s.Me)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api", s.AuthRequired())

	api.POST("/content/generate", s.Generate)
	api.GET("/content/history", s.History)
	api.DELETE("/content/:id", s.DeleteArtifact)
	api.GET("/user/credits", s.Credits)
}
