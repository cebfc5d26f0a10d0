package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/opsdesk/internal/audit"
	auditdomain "github.com/smallbiznis/opsdesk/internal/audit/domain"
	"github.com/smallbiznis/opsdesk/internal/authorization"
	"github.com/smallbiznis/opsdesk/internal/bill"
	billdomain "github.com/smallbiznis/opsdesk/internal/bill/domain"
	"github.com/smallbiznis/opsdesk/internal/client"
	clientdomain "github.com/smallbiznis/opsdesk/internal/client/domain"
	"github.com/smallbiznis/opsdesk/internal/config"
	"github.com/smallbiznis/opsdesk/internal/observability"
	obsmiddleware "github.com/smallbiznis/opsdesk/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/opsdesk/internal/observability/metrics"
	obstracing "github.com/smallbiznis/opsdesk/internal/observability/tracing"
	"github.com/smallbiznis/opsdesk/internal/ratelimit"
	"github.com/smallbiznis/opsdesk/internal/sequence"
	"github.com/smallbiznis/opsdesk/internal/staff"
	staffdomain "github.com/smallbiznis/opsdesk/internal/staff/domain"
	"github.com/smallbiznis/opsdesk/internal/ticket"
	ticketdomain "github.com/smallbiznis/opsdesk/internal/ticket/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	config.Module,
	fx.Provide(registerGin),
	authorization.Module,
	audit.Module,
	sequence.Module,
	staff.Module,
	client.Module,
	ticket.Module,
	bill.Module,
	ratelimit.Module,
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
		Addr:    cfg.HTTPAddr,
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
	engine      *gin.Engine
	cfg         config.Config
	db          *gorm.DB
	genID       *snowflake.Node
	authzSvc    authorization.Service
	auditSvc    auditdomain.Service
	staffSvc    staffdomain.Service
	clientSvc   clientdomain.Service
	ticketSvc   ticketdomain.Service
	billSvc     billdomain.Service
	billingCfg  *config.BillingConfigHolder
	billLimiter *ratelimit.BillCreateLimiter
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Cfg         config.Config
	DB          *gorm.DB
	GenID       *snowflake.Node
	AuthzSvc    authorization.Service
	AuditSvc    auditdomain.Service
	StaffSvc    staffdomain.Service
	ClientSvc   clientdomain.Service
	TicketSvc   ticketdomain.Service
	BillSvc     billdomain.Service
	BillingCfg  *config.BillingConfigHolder
	BillLimiter *ratelimit.BillCreateLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:      p.Gin,
		cfg:         p.Cfg,
		db:          p.DB,
		genID:       p.GenID,
		authzSvc:    p.AuthzSvc,
		auditSvc:    p.AuditSvc,
		staffSvc:    p.StaffSvc,
		clientSvc:   p.ClientSvc,
		ticketSvc:   p.TicketSvc,
		billSvc:     p.BillSvc,
		billingCfg:  p.BillingCfg,
		billLimiter: p.BillLimiter,
	}

	svc.registerTicketRoutes()
	svc.registerBillingRoutes()
	svc.registerClientRoutes()
	svc.registerStaffRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerTicketRoutes() {
	tickets := s.engine.Group("/support-requests", s.StaffRequired())

	tickets.POST("", s.authorizeAction(authorization.ObjectTicket, authorization.ActionCreate), s.CreateTicket)
	tickets.GET("", s.authorizeAction(authorization.ObjectTicket, authorization.ActionView), s.ListTickets)
	tickets.GET("/:id", s.authorizeAction(authorization.ObjectTicket, authorization.ActionView), s.GetTicketByID)
	tickets.PUT("/:id", s.authorizeAction(authorization.ObjectTicket, authorization.ActionUpdate), s.UpdateTicket)
	tickets.PUT("/:id/toggle-billing-ready", s.authorizeAction(authorization.ObjectTicket, authorization.ActionToggle), s.ToggleTicketBillingReady)
}

func (s *Server) registerBillingRoutes() {
	billing := s.engine.Group("/billing", s.StaffRequired())

	billing.GET("/config", s.authorizeAction(authorization.ObjectBill, authorization.ActionView), s.GetBillingConfig)

	bills := billing.Group("/bills")
	bills.POST("", s.authorizeAction(authorization.ObjectBill, authorization.ActionCreate), s.BillCreateRateLimit(), s.CreateBill)
	bills.GET("", s.authorizeAction(authorization.ObjectBill, authorization.ActionView), s.ListBills)
	bills.GET("/:id", s.authorizeAction(authorization.ObjectBill, authorization.ActionView), s.GetBillByID)
	bills.GET("/client/:clientId", s.authorizeAction(authorization.ObjectBill, authorization.ActionView), s.ListBillsByClient)
	bills.PUT("/:id", s.authorizeAction(authorization.ObjectBill, authorization.ActionUpdate), s.UpdateBill)
	bills.PUT("/:id/completion", s.authorizeAction(authorization.ObjectBill, authorization.ActionComplete), s.SetBillCompletion)
}

func (s *Server) registerClientRoutes() {
	clients := s.engine.Group("/clients", s.StaffRequired())

	clients.POST("", s.authorizeAction(authorization.ObjectClient, authorization.ActionCreate), s.CreateClient)
	clients.GET("", s.authorizeAction(authorization.ObjectClient, authorization.ActionView), s.ListClients)
	clients.GET("/:id", s.authorizeAction(authorization.ObjectClient, authorization.ActionView), s.GetClientByID)
	clients.PUT("/:id", s.authorizeAction(authorization.ObjectClient, authorization.ActionUpdate), s.UpdateClient)
}

func (s *Server) registerStaffRoutes() {
	members := s.engine.Group("/staff", s.StaffRequired())

	members.POST("", s.authorizeAction(authorization.ObjectStaff, authorization.ActionCreate), s.CreateStaff)
	members.GET("", s.authorizeAction(authorization.ObjectStaff, authorization.ActionView), s.ListStaff)
	members.GET("/:id", s.authorizeAction(authorization.ObjectStaff, authorization.ActionView), s.GetStaffByID)
}
