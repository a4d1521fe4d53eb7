package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/outlinehq/outliner/internal/auth"
	authdomain "github.com/outlinehq/outliner/internal/auth/domain"
	"github.com/outlinehq/outliner/internal/auth/session"
	"github.com/outlinehq/outliner/internal/config"
	"github.com/outlinehq/outliner/internal/migration"
	"github.com/outlinehq/outliner/internal/observability"
	obslogger "github.com/outlinehq/outliner/internal/observability/logger"
	obsmetrics "github.com/outlinehq/outliner/internal/observability/metrics"
	obstracing "github.com/outlinehq/outliner/internal/observability/tracing"
	"github.com/outlinehq/outliner/internal/organization"
	organizationdomain "github.com/outlinehq/outliner/internal/organization/domain"
	"github.com/outlinehq/outliner/internal/outline"
	outlinedomain "github.com/outlinehq/outliner/internal/outline/domain"
	"github.com/outlinehq/outliner/internal/providers/email"
	"github.com/outlinehq/outliner/internal/ratelimit"
	"github.com/outlinehq/outliner/pkg/db"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	config.Module,
	observability.Module,
	db.Module,
	migration.Module,
	email.Module,
	auth.Module,
	organization.Module,
	outline.Module,
	ratelimit.Module,
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
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

func registerGin(cfg config.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	return NewEngine(httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
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
	engine          *gin.Engine
	cfg             config.Config
	authsvc         authdomain.Service
	sessions        *session.Manager
	organizationSvc organizationdomain.Service
	outlineSvc      outlinedomain.Service
	limiter         *ratelimit.TokenBucket
	genID           *snowflake.Node
	log             *zap.Logger
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	Authsvc         authdomain.Service
	Sessions        *session.Manager
	OrganizationSvc organizationdomain.Service
	OutlineSvc      outlinedomain.Service
	Limiter         *ratelimit.TokenBucket `optional:"true"`
	GenID           *snowflake.Node
	Log             *zap.Logger
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		authsvc:         p.Authsvc,
		sessions:        p.Sessions,
		organizationSvc: p.OrganizationSvc,
		outlineSvc:      p.OutlineSvc,
		limiter:         p.Limiter,
		genID:           p.GenID,
		log:             p.Log.Named("server"),
	}

	s.registerAuthRoutes()
	s.registerOrganizationRoutes()
	s.registerOutlineRoutes()

	return s
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	grp := s.engine.Group("/api/auth")

	grp.POST("/sign-up", s.RateLimit("auth.sign-up", 1, 10), s.SignUp)
	grp.POST("/sign-in", s.RateLimit("auth.sign-in", 1, 10), s.SignIn)
	grp.POST("/sign-out", s.SignOut)
	grp.GET("/session", s.AuthRequired(), s.Session)
	grp.GET("/verify-email", s.VerifyEmail)
}

func (s *Server) registerOrganizationRoutes() {
	grp := s.engine.Group("/api/organizations")

	grp.GET("/invite/:invitationId", s.GetInvitation)

	grp.Use(s.AuthRequired())
	grp.GET("", s.ListOrganizations)
	grp.POST("", s.CreateOrganization)
	grp.GET("/me", s.GetMembership)
	grp.GET("/members", s.ListMembers)
	grp.POST("/members", s.RateLimit("org.invite", 0.5, 20), s.InviteMember)
	grp.DELETE("/members/:memberId", s.RemoveMember)
	grp.POST("/join", s.JoinOrganization)
}

func (s *Server) registerOutlineRoutes() {
	grp := s.engine.Group("/api/outlines", s.AuthRequired())

	grp.GET("", s.ListOutlines)
	grp.POST("", s.CreateOutline)
	grp.GET("/:id", s.GetOutline)
	grp.PUT("/:id", s.UpdateOutline)
	grp.DELETE("/:id", s.DeleteOutline)
}
