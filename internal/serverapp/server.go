// Package serverapp wires the stores, services and HTTP handlers together.
package serverapp

import (
	"errors"
	"net/http"
	"time"

	"github.com/Magget135/Minimal-Quest-Log/internal/api"
	"github.com/Magget135/Minimal-Quest-Log/internal/calendar"
	"github.com/Magget135/Minimal-Quest-Log/internal/category"
	"github.com/Magget135/Minimal-Quest-Log/internal/config"
	"github.com/Magget135/Minimal-Quest-Log/internal/holiday"
	"github.com/Magget135/Minimal-Quest-Log/internal/httpmw"
	"github.com/Magget135/Minimal-Quest-Log/internal/logger"
	"github.com/Magget135/Minimal-Quest-Log/internal/materializer"
	"github.com/Magget135/Minimal-Quest-Log/internal/quest"
	"github.com/Magget135/Minimal-Quest-Log/internal/recurring"
	"github.com/Magget135/Minimal-Quest-Log/internal/reward"
	"github.com/Magget135/Minimal-Quest-Log/internal/rulesdoc"
	"github.com/Magget135/Minimal-Quest-Log/internal/store"
)

const serviceName = "questlog"

type Options struct {
	Config *config.Config
	Stores *store.Stores
	Logger *logger.Logger
	// Clock defaults to the wall clock.
	Clock calendar.Clock
}

// App is the assembled application. Handler serves the API; the services are
// exposed for the CLI commands that run without HTTP.
type App struct {
	Handler      http.Handler
	Materializer *materializer.Materializer
	Scheduler    *materializer.Scheduler
	Quests       *quest.Service
	Rewards      *reward.Service
	Categories   *category.Service
	Holidays     *holiday.Service
	Recurring    *recurring.Service
}

func New(opts Options) (*App, error) {
	if opts.Config == nil {
		return nil, errors.New("config is required")
	}
	if opts.Stores == nil {
		return nil, errors.New("stores are required")
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.Clock == nil {
		opts.Clock = calendar.RealClock{}
	}
	cfg, st, log := opts.Config, opts.Stores, opts.Logger

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	xp, err := cfg.XPTable()
	if err != nil {
		return nil, err
	}

	app := &App{}
	app.Quests = quest.NewService(st.Quests, st.Completed, xp, log)
	app.Categories = category.NewService(st.Categories, st.Quests, log)
	app.Holidays = holiday.NewService(st.Quests, app.Categories, log)
	app.Rewards = reward.NewService(st.Rewards, st.Completed, rewardDefaults(cfg.Rewards), log)
	app.Materializer = materializer.New(st.Rules, st.Quests, materializer.Options{
		Workers:  cfg.Materializer.Workers,
		Clock:    opts.Clock,
		Location: loc,
		Logger:   log,
	})
	app.Scheduler = materializer.NewScheduler(app.Materializer, cfg.Materializer.Interval.Duration, runOnStartup(cfg))
	app.Recurring = recurring.NewService(st.Rules, st.Quests, app.Materializer, opts.Clock, log)

	mux := http.NewServeMux()

	health := func(w http.ResponseWriter, r *http.Request) {
		api.WriteJSON(w, http.StatusOK, map[string]any{
			"ok":      true,
			"service": serviceName,
			"time":    opts.Clock.Now().UTC().Format(time.RFC3339),
		})
	}
	mux.HandleFunc("GET /health", health)
	mux.HandleFunc("GET /healthz", health)
	mux.HandleFunc("GET /api/health", health)
	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := st.Ping(r.Context()); err != nil {
			log.Warn("readiness_failed", "error", err)
			api.WriteJSON(w, http.StatusServiceUnavailable, map[string]any{
				"ok":    false,
				"error": "storage unavailable",
			})
			return
		}
		health(w, r)
	})
	mux.HandleFunc("GET /api/{$}", func(w http.ResponseWriter, r *http.Request) {
		api.WriteJSON(w, http.StatusOK, map[string]any{"message": "Quest Log API"})
	})

	quest.NewHandler(app.Quests).Register(mux)
	reward.NewHandler(app.Rewards).Register(mux)
	category.NewHandler(app.Categories).Register(mux)
	holiday.NewHandler(app.Holidays).Register(mux)
	recurring.NewHandler(app.Recurring).Register(mux)
	rulesdoc.NewHandler(st.RulesDoc).Register(mux)

	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		api.WriteErr(w, http.StatusNotFound, "not found")
	})

	app.Handler = httpmw.Chain(
		mux,
		httpmw.WithAccessLog(log),
		httpmw.WithRequestID,
		httpmw.WithRecover(log),
		httpmw.WithCORS(cfg.Server.CORSOrigins),
	)
	return app, nil
}

// NewHandler builds the app and returns only its HTTP handler.
func NewHandler(opts Options) (http.Handler, error) {
	app, err := New(opts)
	if err != nil {
		return nil, err
	}
	return app.Handler, nil
}

func rewardDefaults(c config.RewardsConfig) []reward.StoreItem {
	if c.SeedDefaults != nil && !*c.SeedDefaults {
		return nil
	}
	if len(c.Defaults) == 0 {
		return reward.DefaultStore()
	}
	out := make([]reward.StoreItem, 0, len(c.Defaults))
	for _, d := range c.Defaults {
		out = append(out, reward.StoreItem{Name: d.Name, XPCost: d.XPCost})
	}
	return out
}

func runOnStartup(cfg *config.Config) bool {
	return cfg.Materializer.RunOnStartup == nil || *cfg.Materializer.RunOnStartup
}
