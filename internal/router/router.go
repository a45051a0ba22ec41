package router

import (
	"context"
	"database/sql"
	"net/http"

	gfs "cloud.google.com/go/firestore"

	_ "pet-wellness/docs"
	memcache "pet-wellness/internal/adapters/cache/memory"
	fsstore "pet-wellness/internal/adapters/storage/firestore"
	mem "pet-wellness/internal/adapters/storage/memory"
	pg "pet-wellness/internal/adapters/storage/postgres"
	"pet-wellness/internal/config"
	"pet-wellness/internal/domain/flows"
	"pet-wellness/internal/domain/gating"
	"pet-wellness/internal/domain/payments"
	"pet-wellness/internal/domain/profiles"
	"pet-wellness/internal/domain/session"
	"pet-wellness/internal/domain/weights"
	"pet-wellness/internal/middleware"
	"pet-wellness/internal/platform/changefeed"
	"pet-wellness/internal/platform/logger"
	"pet-wellness/internal/ports/auth"
	"pet-wellness/internal/ports/cache"
	"pet-wellness/internal/ports/generation"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Options struct {
	Config config.Config

	AuthVerifier auth.AuthVerifier // puede ser nil (modo dev)

	// Storage: DB gana sobre Firestore. Sin ninguno => in-memory.
	DB        *sql.DB
	Firestore *gfs.Client

	// Cache local del perfil y bus de cambios. nil => memoria / hub en proceso.
	Cache cache.Cache
	Bus   changefeed.Bus

	// nil => los flows responden con error upstream.
	Generator generation.Generator
	// nil => checkout responde "not configured".
	Payments payments.Gateway

	Logger logger.Logger
}

// App agrupa el handler y los componentes con estado que hay que cerrar.
type App struct {
	Handler  http.Handler
	Sessions *session.Manager
	Profiles *profiles.Store
}

// Close corta las sesiones abiertas y espera las reconciliaciones pendientes.
func (a *App) Close() {
	a.Sessions.Close()
	a.Profiles.Wait()
}

func NewRouter(opts Options) http.Handler {
	return New(opts).Handler
}

func New(opts Options) *App {
	log := opts.Logger
	if log == nil {
		log = logger.NewNop()
	}
	cfg := opts.Config
	if cfg.Profiles.CacheTTL <= 0 {
		cfg.Profiles.CacheTTL = config.Default().Profiles.CacheTTL
	}

	bus := opts.Bus
	if bus == nil {
		bus = changefeed.NewHub()
	}
	c := opts.Cache
	if c == nil {
		c = memcache.New()
	}

	var (
		userRepo    session.UserRepository
		profileRepo profiles.Repository
		weightRepo  weights.Repository
		backend     string
	)

	switch {
	case opts.DB != nil:
		userRepo = pg.NewUsersRepo(opts.DB)
		profileRepo = pg.NewProfilesRepo(opts.DB)
		weightRepo = pg.NewWeightsRepo(opts.DB)
		backend = "postgres"
	case opts.Firestore != nil:
		userRepo = fsstore.NewUserRepo(opts.Firestore)
		profileRepo = fsstore.NewProfileRepo(opts.Firestore)
		weightRepo = fsstore.NewWeightRepo(opts.Firestore)
		backend = "firestore"
	default:
		userRepo = mem.NewUserRepo()
		profileRepo = mem.NewProfileRepo()
		weightRepo = mem.NewWeightRepo()
		backend = "memory"
	}
	log.Info("storage selected", map[string]any{"backend": backend})

	// Services por módulo
	// El perfil siembra su flag desde users/{uid} y las sesiones se lo copian
	// al cambiar; sessions se asigna antes de atender requests.
	var sessions *session.Manager
	store := profiles.NewStore(profileRepo, c, bus, profiles.StoreOptions{
		CacheTTL: cfg.Profiles.CacheTTL,
		Logger:   log,
		SubscriptionOf: func(ctx context.Context, userID string) (bool, error) {
			return sessions.IsSubscribed(ctx, userID)
		},
	})
	sessions = session.NewManager(userRepo, bus, session.Options{
		AdminEmail:  cfg.Auth.AdminEmail,
		Logger:      log,
		Profiles:    store,
		IdleTimeout: cfg.Auth.SessionIdle,
	})
	weightsSvc := weights.NewService(weightRepo, store)
	redeemer := gating.NewRedeemer(cfg.Auth.RedeemCode, sessions)
	dispatcher := flows.NewDispatcher(opts.Generator, log)
	paymentsSvc := payments.NewService(opts.Payments, sessions, payments.Plan{
		Amount:      cfg.PayPal.Amount,
		Currency:    cfg.PayPal.Currency,
		Description: cfg.PayPal.Description,
		ReturnURL:   cfg.PayPal.ReturnURL,
		CancelURL:   cfg.PayPal.CancelURL,
	}, log)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.AuthContext(opts.AuthVerifier))
	// AccessLog va después de AuthContext para loguear el user_id, y antes de
	// Recover para registrar el 500.
	r.Use(middleware.AccessLog(log))
	r.Use(middleware.Recover(log))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	// Rutas por módulo
	session.RegisterRoutes(r, sessions)
	gating.RegisterRoutes(r, sessions, redeemer)
	profiles.RegisterRoutes(r, store)
	weights.RegisterRoutes(r, weightsSvc)
	flows.RegisterRoutes(r, flows.Deps{
		Dispatcher: dispatcher,
		Registry:   flows.DefaultRegistry(),
		Sessions:   sessions,
		Profiles:   store,
		Logger:     log,
	})
	payments.RegisterRoutes(r, paymentsSvc)

	return &App{Handler: r, Sessions: sessions, Profiles: store}
}
