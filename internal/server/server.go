package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/partnerdesk/internal/auth"
	"github.com/smallbiznis/partnerdesk/internal/auth/token"
	"github.com/smallbiznis/partnerdesk/internal/authorization"
	"github.com/smallbiznis/partnerdesk/internal/catalog"
	"github.com/smallbiznis/partnerdesk/internal/config"
	"github.com/smallbiznis/partnerdesk/internal/events"
	"github.com/smallbiznis/partnerdesk/internal/notification"
	"github.com/smallbiznis/partnerdesk/internal/observability"
	obsmiddleware "github.com/smallbiznis/partnerdesk/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/partnerdesk/internal/observability/metrics"
	obstracing "github.com/smallbiznis/partnerdesk/internal/observability/tracing"
	"github.com/smallbiznis/partnerdesk/internal/organization"
	organizationdomain "github.com/smallbiznis/partnerdesk/internal/organization/domain"
	"github.com/smallbiznis/partnerdesk/internal/partneruser"
	partneruserdomain "github.com/smallbiznis/partnerdesk/internal/partneruser/domain"
	"github.com/smallbiznis/partnerdesk/internal/providers"
	"github.com/smallbiznis/partnerdesk/internal/ratelimit"
	"github.com/smallbiznis/partnerdesk/internal/request"
	requestdomain "github.com/smallbiznis/partnerdesk/internal/request/domain"
	"github.com/smallbiznis/partnerdesk/internal/user"
	userdomain "github.com/smallbiznis/partnerdesk/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	authorization.Module,
	auth.Module,
	events.Module,
	providers.Module,
	ratelimit.Module,
	organization.Module,
	catalog.Module,
	user.Module,
	partneruser.Module,
	notification.Module,
	request.Module,
	fx.Provide(NewServer),
	fx.Invoke(func(*Server) {}),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, cfg config.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORSAllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-Id"},
			ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "X-Request-Id"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}
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

func registerGin(obsCfg observability.Config, cfg config.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}
	return NewEngine(obsCfg, cfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	addr := strings.TrimSpace(cfg.HTTPAddr)
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", addr))
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
	tokens          *token.Manager
	authzSvc        authorization.Service
	organizationSvc organizationdomain.Service
	userSvc         userdomain.Service
	partnerUserSvc  partneruserdomain.Service
	requestSvc      requestdomain.Service
	policy          *config.RequestPolicyHolder
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	Tokens          *token.Manager
	AuthzSvc        authorization.Service
	OrganizationSvc organizationdomain.Service
	UserSvc         userdomain.Service
	PartnerUserSvc  partneruserdomain.Service
	RequestSvc      requestdomain.Service
	Policy          *config.RequestPolicyHolder
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		tokens:          p.Tokens,
		authzSvc:        p.AuthzSvc,
		organizationSvc: p.OrganizationSvc,
		userSvc:         p.UserSvc,
		partnerUserSvc:  p.PartnerUserSvc,
		requestSvc:      p.RequestSvc,
		policy:          p.Policy,
	}

	svc.registerAuthRoutes()
	svc.registerPartnerUserRoutes()
	svc.registerPartnerRequestRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	s.engine.POST("/auth/token", s.IssueToken)
	s.engine.POST("/invitations/accept", s.AcceptInvitation)
	s.engine.POST("/passwords/reset", s.CompletePasswordReset)
}

func (s *Server) registerPartnerUserRoutes() {
	users := s.engine.Group("/partners/:partner_id/users", s.AuthRequired())
	{
		users.GET("", s.ListPartnerUsers)
		users.POST("", s.InvitePartnerUser)
		users.DELETE("/:id", s.RevokePartnerUser)
		users.POST("/:id/resend_invitation", s.ResendPartnerUserInvitation)
		users.POST("/:id/reset_password", s.ResetPartnerUserPassword)
	}
}

func (s *Server) registerPartnerRequestRoutes() {
	requests := s.engine.Group("/partners/requests", s.AuthRequired())
	{
		requests.GET("", s.partnerScope(authorization.ActionRequestView), s.ListPartnerRequests)
		requests.GET("/new", s.partnerScope(authorization.ActionRequestCreate), s.NewPartnerRequest)
		requests.POST("", s.partnerScope(authorization.ActionRequestCreate), s.CreatePartnerRequest)
		requests.GET("/:id", s.partnerScope(authorization.ActionRequestView), s.GetPartnerRequest)
		requests.GET("/:id/print", s.partnerScope(authorization.ActionRequestPrint), s.PrintPartnerRequest)
	}
}
