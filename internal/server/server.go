// Package server exposes the bot's HTTP surface: the public claim and
// leaderboard API, the admin control plane and the operational endpoints.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/nooogy1/FantasyPetDiscord/internal/announce"
	auditdomain "github.com/nooogy1/FantasyPetDiscord/internal/audit/domain"
	"github.com/nooogy1/FantasyPetDiscord/internal/checker"
	"github.com/nooogy1/FantasyPetDiscord/internal/config"
	leaguedomain "github.com/nooogy1/FantasyPetDiscord/internal/league/domain"
	"github.com/nooogy1/FantasyPetDiscord/internal/observability/logger"
	"github.com/nooogy1/FantasyPetDiscord/internal/observability/metrics"
	petdomain "github.com/nooogy1/FantasyPetDiscord/internal/pet/domain"
	rosterdomain "github.com/nooogy1/FantasyPetDiscord/internal/roster/domain"
	scoredomain "github.com/nooogy1/FantasyPetDiscord/internal/score/domain"
	"github.com/nooogy1/FantasyPetDiscord/internal/state"
)

const (
	claimRateLimit  = 10
	claimRateWindow = time.Minute
)

// Server carries the handler dependencies.
type Server struct {
	engine *gin.Engine
	db     *gorm.DB
	log    *zap.Logger
	cfg    config.Config

	checker   *checker.Checker
	store     *state.Store
	queue     *announce.Queue
	pets      petdomain.Repository
	rosterSvc rosterdomain.Service
	leagueSvc leaguedomain.Service
	scoreSvc  scoredomain.Service
	auditSvc  auditdomain.Service

	claimLimiter *rateLimiter
}

// Params collects the server dependencies from the application graph.
type Params struct {
	fx.In

	Engine  *gin.Engine
	DB      *gorm.DB
	Log     *zap.Logger
	Config  config.Config
	Checker *checker.Checker
	Store   *state.Store
	Queue   *announce.Queue
	Pets    petdomain.Repository
	Roster  rosterdomain.Service
	Leagues leaguedomain.Service
	Scores  scoredomain.Service
	Audit   auditdomain.Service
}

// NewServer constructs the HTTP server.
func NewServer(p Params) *Server {
	return &Server{
		engine:       p.Engine,
		db:           p.DB,
		log:          p.Log.Named("server"),
		cfg:          p.Config,
		checker:      p.Checker,
		store:        p.Store,
		queue:        p.Queue,
		pets:         p.Pets,
		rosterSvc:    p.Roster,
		leagueSvc:    p.Leagues,
		scoreSvc:     p.Scores,
		auditSvc:     p.Audit,
		claimLimiter: newRateLimiter(claimRateLimit, claimRateWindow),
	}
}

// NewEngine builds the gin engine with recovery, request logging and
// request metrics installed.
func NewEngine(cfg config.Config) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(logger.GinMiddleware(logger.MiddlewareConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	engine.Use(metrics.HTTP().GinMiddleware())
	return engine
}

// RegisterAPIRoutes mounts every route on the engine.
func (s *Server) RegisterAPIRoutes() {
	s.engine.GET("/healthz", s.Healthz)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := s.engine.Group("/api")
	{
		api.GET("/pets/:code", s.GetPet)
		api.GET("/leagues", s.ListLeagues)
		api.GET("/leaderboard/:league", s.GetLeaderboard)
		api.GET("/users/:id/claims", s.ListUserClaims)
		api.GET("/users/:id/history", s.GetUserHistory)
		api.POST("/claims", s.CreateClaim)
		api.DELETE("/claims", s.ReleaseClaim)
	}

	admin := api.Group("/admin", s.AdminRequired())
	{
		admin.GET("/status", s.GetBotStatus)
		admin.POST("/check", s.TriggerCheck)
		admin.POST("/maintenance/sweep", s.RunMaintenanceSweep)
		admin.POST("/leagues", s.CreateLeague)
		admin.GET("/audit", s.ListAuditLog)
	}
}

// Healthz reports liveness and database reachability.
func (s *Server) Healthz(c *gin.Context) {
	sqlDB, err := s.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// RunHTTPParams collects what the HTTP lifecycle needs.
type RunHTTPParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Engine    *gin.Engine
	Config    config.Config
	Log       *zap.Logger
}

// RunHTTP binds the listener during startup, so a taken port fails the
// boot instead of a background goroutine, and shuts down with the
// application lifecycle.
func RunHTTP(p RunHTTPParams) {
	srv := &http.Server{
		Addr:              p.Config.HTTPAddr,
		Handler:           p.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			listener, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
			p.Log.Info("http server listening", zap.String("addr", srv.Addr))
			go func() {
				if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
					p.Log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}

// Module wires the HTTP surface into the application.
var Module = fx.Module("server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(func(s *Server) { s.RegisterAPIRoutes() }),
	fx.Invoke(RunHTTP),
)
