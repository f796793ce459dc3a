package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/4245877/liteforest-backend/api/responses"
	"github.com/4245877/liteforest-backend/pkg/config"
	"github.com/4245877/liteforest-backend/pkg/errors"
	"github.com/4245877/liteforest-backend/pkg/logger"
)

const readinessTimeout = 3 * time.Second

// Pinger is the health-check surface shared by the database, redis and
// object-store clients.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-LiteForest-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings each backing dependency and reports per-dependency
// status. Any failed ping turns the endpoint into a 503.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP, redisP, storeP Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-LiteForest-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		checks := map[string]string{}
		healthy := true
		probe := func(name string, dep Pinger) {
			if dep == nil {
				checks[name] = "unconfigured"
				healthy = false
				return
			}
			if err := dep.Ping(ctx); err != nil {
				logg.Error(logg.WithField(ctx, "dependency", name), "readiness probe failed", err)
				checks[name] = "down"
				healthy = false
				return
			}
			checks[name] = "up"
		}

		probe("database", dbP)
		probe("redis", redisP)
		probe("object_store", storeP)

		if !healthy {
			responses.WriteError(r.Context(), logg, w, errors.New(errors.CodeDependency, "dependencies unavailable"))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
