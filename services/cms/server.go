package main

import (
	"net/http"

	"github.com/ablaqll/pmpk-website-sub000/shared/auth"
	"github.com/ablaqll/pmpk-website-sub000/shared/cms"
	"github.com/ablaqll/pmpk-website-sub000/shared/config"
	"github.com/ablaqll/pmpk-website-sub000/shared/content"
	"github.com/ablaqll/pmpk-website-sub000/shared/events"
	"github.com/ablaqll/pmpk-website-sub000/shared/metrics"
	"github.com/ablaqll/pmpk-website-sub000/shared/middleware"
	"github.com/ablaqll/pmpk-website-sub000/shared/models"
	"github.com/ablaqll/pmpk-website-sub000/shared/repository"
	"github.com/ablaqll/pmpk-website-sub000/shared/rpc"
	"github.com/ablaqll/pmpk-website-sub000/shared/storage"
	"github.com/ablaqll/pmpk-website-sub000/shared/tenant"
	"github.com/ablaqll/pmpk-website-sub000/shared/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// server holds the dependencies shared by every procedure
type server struct {
	db        *gorm.DB
	cfg       *config.AppConfig
	resolver  *tenant.Resolver
	auth      *auth.Service
	gate      *middleware.AuthMiddleware
	publisher events.Publisher
	cms       *cms.Client
	uploader  storage.Uploader

	rpc     *rpc.Router
	store   *content.StoreSource
	sources content.Sources
}

type dependencies struct {
	DB          *gorm.DB
	Config      *config.AppConfig
	Tokens      *utils.TokenIssuer
	Revocations *utils.RevocationStore
	Publisher   events.Publisher
	CMS         *cms.Client
	Uploader    storage.Uploader
}

func newServer(deps dependencies) *server {
	resolver := tenant.NewResolver(deps.DB, deps.Config.DefaultClientSlug, deps.Config.DefaultClientName)

	s := &server{
		db:        deps.DB,
		cfg:       deps.Config,
		resolver:  resolver,
		auth:      auth.NewService(deps.DB, deps.Tokens, deps.Revocations),
		gate:      middleware.NewAuthMiddleware(deps.Tokens, deps.Revocations),
		publisher: deps.Publisher,
		cms:       deps.CMS,
		uploader:  deps.Uploader,
		rpc:       rpc.NewRouter(),
		store:     content.NewStoreSource(resolver),
	}
	if s.publisher == nil {
		s.publisher = events.Noop{}
	}

	s.rpc.RefreshCallers(s.auth.Refresh)

	s.sources = content.Sources{content.SourceStore: s.store}
	if s.cms != nil {
		s.sources[content.SourceCMS] = content.NewCMSSource(s.cms, deps.Config.DefaultClientSlug)
	}

	s.registerContentProcedures()
	s.registerFeedbackProcedures()
	s.registerClientProcedures()
	s.registerAuthProcedures()
	s.registerUserProcedures()
	s.registerSourceProcedures()
	return s
}

func (s *server) registerContentProcedures() {
	registerContent[models.NewsPatch](s, repository.NewScoped[models.News](s.db, repository.NewsSchema, s.publisher), nil)
	registerContent[models.EmployeePatch](s, repository.NewScoped[models.Employee](s.db, repository.StaffSchema, s.publisher), nil)
	registerContent[models.DocumentPatch](s, repository.NewScoped[models.Document](s.db, repository.DocumentsSchema, s.publisher), nil)
	registerContent[models.VacancyPatch](s, repository.NewScoped[models.Vacancy](s.db, repository.VacanciesSchema, s.publisher), nil)
	registerContent[models.EventPatch](s, repository.NewScoped[models.Event](s.db, repository.EventsSchema, s.publisher), nil)
	registerContent[models.PublicationPatch](s, repository.NewScoped[models.Publication](s.db, repository.PublicationsSchema, s.publisher), nil)
	registerContent[models.MemorandumPatch](s, repository.NewScoped[models.Memorandum](s.db, repository.MemorandaSchema, s.publisher), nil)
	registerContent[models.AttestationPatch](s, repository.NewScoped[models.Attestation](s.db, repository.AttestationsSchema, s.publisher), nil)
	registerContent[models.GovernanceSectionPatch](s, repository.NewScoped[models.GovernanceSection](s.db, repository.GovernanceSchema, s.publisher), nil)
}

// routes builds the HTTP surface
func (s *server) routes() *gin.Engine {
	router := gin.Default()
	router.Use(middleware.CORS(s.cfg.CORSOrigins))
	router.Use(metrics.Middleware())
	router.Use(s.gate.IdentityGate())

	router.GET("/health", s.handleHealth)
	router.GET("/metrics", metrics.Handler())

	api := router.Group("/api")
	{
		api.POST("/rpc", s.rpc.HandlePost)
		api.GET("/rpc/:method", s.rpc.HandleGet)
		api.POST("/upload", s.gate.RequireAuth(), s.handleUpload)
	}
	return router
}

func (s *server) handleHealth(c *gin.Context) {
	status := gin.H{"database": "up"}
	healthy := true

	if sqlDB, err := s.db.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
		status["database"] = "down"
		healthy = false
	}
	if s.cms != nil {
		status["cms"] = "up"
		if err := s.cms.HealthCheck(c.Request.Context()); err != nil {
			status["cms"] = "down"
		}
		status["cms_circuit"] = s.cms.State()
	}

	if !healthy {
		c.JSON(http.StatusServiceUnavailable, utils.APIResponse{Success: false, Message: "CMS service is degraded", Data: status})
		return
	}
	utils.OKResponse(c, "CMS service is healthy", status)
}
