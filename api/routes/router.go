package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/4245877/liteforest-backend/api/controllers"
	"github.com/4245877/liteforest-backend/api/middleware"
	"github.com/4245877/liteforest-backend/internal/auth"
	"github.com/4245877/liteforest-backend/internal/catalog"
	"github.com/4245877/liteforest-backend/internal/imports"
	"github.com/4245877/liteforest-backend/internal/media"
	"github.com/4245877/liteforest-backend/pkg/auth/session"
	"github.com/4245877/liteforest-backend/pkg/config"
	"github.com/4245877/liteforest-backend/pkg/db"
	"github.com/4245877/liteforest-backend/pkg/enums"
	"github.com/4245877/liteforest-backend/pkg/logger"
	"github.com/4245877/liteforest-backend/pkg/redis"
	"github.com/4245877/liteforest-backend/pkg/storage/s3"
)

// RouterParams bundles everything the HTTP surface depends on.
type RouterParams struct {
	Config *config.Config
	Logger *logger.Logger

	DB          db.Pinger
	Redis       *redis.Client
	ObjectStore s3.Pinger

	Sessions session.AccessSessionChecker

	AuthService    auth.Service
	CatalogService *catalog.Service
	MediaService   *media.Service
	ImportService  *imports.Service
	FailedJobs     controllers.FailedJobStore
}

func NewRouter(p RouterParams) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthLimits.LoginWindow,
		cfg.AuthLimits.LoginIPLimit,
		cfg.AuthLimits.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthLimits.RegisterWindow,
		cfg.AuthLimits.RegisterIPLimit,
		cfg.AuthLimits.RegisterEmailLimit,
	)

	r.Get("/healthz", controllers.HealthLive(cfg))
	r.Get("/readyz", controllers.HealthReady(cfg, logg, p.DB, p.Redis, p.ObjectStore))

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/auth", func(r chi.Router) {
		// Self-service registration is an operator convenience for dev and
		// staging stacks; production accounts are provisioned directly.
		if !cfg.App.IsProd() {
			r.With(middleware.AuthRateLimit(registerPolicy, p.Redis, logg)).Post("/register", controllers.AuthRegister(p.AuthService, logg))
		}
		r.With(middleware.AuthRateLimit(loginPolicy, p.Redis, logg)).Post("/login", controllers.AuthLogin(p.AuthService, logg))
		r.Post("/refresh", controllers.AuthRefresh(p.AuthService, logg))
		r.With(middleware.Auth(cfg.JWT, p.Sessions, logg)).Post("/logout", controllers.AuthLogout(p.AuthService, logg))
	})

	// Storefront reads are anonymous.
	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", controllers.ListProducts(p.CatalogService, logg))
		r.Get("/{productId}", controllers.GetProduct(p.CatalogService, logg))
	})
	r.Get("/api/v1/categories", controllers.ListCategories(p.CatalogService, logg))
	r.Get("/api/v1/media/{mediaId}", controllers.MediaStatus(p.MediaService, logg))

	r.With(
		middleware.Auth(cfg.JWT, p.Sessions, logg),
		middleware.RequireRole(string(enums.UserRoleAdmin), logg),
	).Post("/api/v1/imports", controllers.CreateImport(p.ImportService, logg))

	r.Route("/api/v1/admin", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, p.Sessions, logg))
		r.Use(middleware.RequireRole(string(enums.UserRoleAdmin), logg))

		r.Route("/products", func(r chi.Router) {
			r.Post("/", controllers.AdminCreateProduct(p.CatalogService, logg))
			r.Patch("/{productId}", controllers.AdminUpdateProduct(p.CatalogService, logg))
			r.Delete("/{productId}", controllers.AdminDeleteProduct(p.CatalogService, logg))
		})
		r.Post("/categories", controllers.AdminCreateCategory(p.CatalogService, logg))
		r.Route("/jobs", func(r chi.Router) {
			r.Get("/failed", controllers.AdminListFailedJobs(p.FailedJobs, logg))
			r.Delete("/{jobId}", controllers.AdminDeleteFailedJob(p.FailedJobs, logg))
		})
	})

	return r
}
