package internal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/IBM/pgxpoolprometheus"
	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redis_rate/v9"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/2beens/trainor/internal/auth"
	"github.com/2beens/trainor/internal/config"
	"github.com/2beens/trainor/internal/db"
	"github.com/2beens/trainor/internal/middleware"
	"github.com/2beens/trainor/internal/misc"
	"github.com/2beens/trainor/internal/offline"
	"github.com/2beens/trainor/internal/supabase"
	"github.com/2beens/trainor/internal/telemetry/metrics"
	"github.com/2beens/trainor/internal/telemetry/tracing"
	"github.com/2beens/trainor/internal/workout"
)

const sessionTTL = 30 * 24 * time.Hour

type Server struct {
	httpServer        *http.Server
	metricsHttpServer *http.Server
	versionInfo       string

	config  *config.Config
	secrets *config.Secrets
	dbPool  *pgxpool.Pool

	redisClient    *redis.Client
	supabaseClient *supabase.Client
	cacheTransport *offline.Transport
	fallback       *offline.Fallback
	authService    *auth.Service
	workoutService *workout.Service

	// metrics
	metricsManager *metrics.Manager
	promRegistry   *prometheus.Registry
	otelShutdown   func()
}

type NewServerParams struct {
	Config                  *config.Config
	Secrets                 *config.Secrets
	VersionInfo             string
	HoneycombTracingEnabled bool
	// Transport is used for all outgoing requests, defaults to a traced
	// http.DefaultTransport.
	Transport http.RoundTripper
}

func NewServer(
	ctx context.Context,
	params NewServerParams,
) (*Server, error) {
	cfg := params.Config
	secrets := params.Secrets
	if cfg == nil || secrets == nil {
		return nil, errors.New("config and secrets are required")
	}

	s := &Server{
		config:      cfg,
		secrets:     secrets,
		versionInfo: params.VersionInfo,
	}

	var extraCollectors []prometheus.Collector
	if secrets.DatabaseURL != "" {
		if err := db.Migrate(ctx, secrets.DatabaseURL); err != nil {
			return nil, fmt.Errorf("migrate db: %w", err)
		}

		dbPool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
			DatabaseURL:    secrets.DatabaseURL,
			TracingEnabled: params.HoneycombTracingEnabled,
		})
		if err != nil {
			return nil, fmt.Errorf("new db pool: %w", err)
		}
		if err := dbPool.Ping(ctx); err != nil {
			log.Warnf("failed to ping db: %s", err)
		}
		s.dbPool = dbPool

		extraCollectors = append(extraCollectors, pgxpoolprometheus.NewCollector(
			dbPool,
			map[string]string{"db_name": "trainor"},
		))
	} else if cfg.CatalogSource == config.CatalogSourcePostgres {
		return nil, errors.New("catalog source postgres requires DATABASE_URL")
	}

	s.promRegistry = metrics.SetupPrometheus(s.versionInfo, extraCollectors...)
	s.metricsManager = metrics.NewManager("trainor", "main", s.promRegistry)
	s.metricsManager.GaugeLifeSignal.Set(0)

	if cfg.SessionStore == config.SessionStoreRedis || cfg.RedisHost != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     net.JoinHostPort(cfg.RedisHost, cfg.RedisPort),
			Password: secrets.RedisPassword,
			DB:       0, // use default DB
		})

		rdbStatus := rdb.Ping(ctx)
		if err := rdbStatus.Err(); err != nil {
			log.Errorf("--> failed to ping redis: %s", err)
		} else {
			log.Debugf("redis ping: %s", rdbStatus.Val())
		}
		s.redisClient = rdb
	}

	// use honeycomb distro to setup OpenTelemetry SDK
	otelShutdown, err := tracing.HoneycombSetup(params.HoneycombTracingEnabled, "trainor-service", s.redisClient)
	if err != nil {
		s.closeStorage()
		return nil, err
	}
	s.otelShutdown = otelShutdown

	baseTransport := params.Transport
	if baseTransport == nil {
		baseTransport = otelhttp.NewTransport(http.DefaultTransport)
	}
	cacheStore := offline.NewStore(cfg.CacheSizeMB)
	s.cacheTransport = offline.NewTransport(
		baseTransport,
		offline.DefaultPolicy(secrets.SupabaseURL),
		cacheStore,
		s.metricsManager,
	)

	var sessionStore supabase.SessionStore = supabase.NewMemorySessionStore()
	if cfg.SessionStore == config.SessionStoreRedis {
		sessionStore = supabase.NewRedisSessionStore(
			s.redisClient,
			supabase.StorageKey(secrets.SupabaseURL),
			sessionTTL,
		)
	}

	supabaseClient, err := supabase.NewClient(secrets.SupabaseURL, secrets.SupabaseAnonKey, supabase.Options{
		HTTPClient: &http.Client{
			Transport: s.cacheTransport,
			Timeout:   30 * time.Second,
		},
		SessionStore: sessionStore,
		JWTSecret:    secrets.SupabaseJWTSecret,
		AutoRefresh:  true,
	})
	if err != nil {
		s.cacheTransport.Close()
		s.closeStorage()
		return nil, fmt.Errorf("new supabase client: %w", err)
	}
	s.supabaseClient = supabaseClient

	s.authService = auth.NewService(
		supabaseClient.Auth,
		auth.NewRestProfileRepo(supabaseClient),
		cfg.AuthRedirectURL,
		s.metricsManager,
	)
	if res := s.authService.Init(ctx); !res.Success() {
		log.Warnf("restore auth session: %s", res.Err())
	}

	restRepo := workout.NewRestRepo(supabaseClient)
	if cfg.CatalogSource == config.CatalogSourcePostgres {
		s.workoutService = workout.NewService(db.NewCatalogRepo(s.dbPool), restRepo, supabaseClient.Auth, s.metricsManager)
	} else {
		s.workoutService = workout.NewService(restRepo, restRepo, supabaseClient.Auth, s.metricsManager)
	}

	if cfg.FrontendURL != "" {
		s.fallback, err = offline.NewFallback(cfg.FrontendURL, baseTransport, cacheStore, s.metricsManager)
		if err != nil {
			s.GracefulShutdown()
			return nil, fmt.Errorf("new offline fallback: %w", err)
		}
		if err := s.fallback.Precache(ctx, cfg.PrecacheURLs); err != nil {
			log.Warnf("precache front-end pages: %s", err)
		}
	}

	return s, nil
}

func (s *Server) routerSetup() (*mux.Router, error) {
	r := mux.NewRouter()
	r.Use(otelmux.Middleware("main-router"))

	miscHandler := misc.NewHandler(s.versionInfo)
	miscHandler.SetupRoutes(r)

	authHandler := auth.NewHandler(s.authService)
	r.HandleFunc("/auth/signout", authHandler.HandleSignOut).Methods("POST", "OPTIONS").Name("sign-out")
	r.HandleFunc("/auth/state", authHandler.HandleState).Methods("GET").Name("auth-state")
	r.HandleFunc("/auth/state/stream", authHandler.HandleStateStream).Methods("GET").Name("auth-state-stream")
	r.HandleFunc("/profile", authHandler.HandleGetProfile).Methods("GET", "OPTIONS").Name("get-profile")
	r.HandleFunc("/profile", authHandler.HandleUpdateProfile).Methods("PATCH", "OPTIONS").Name("update-profile")

	signRouter := r.PathPrefix("/auth").Subrouter()
	signRouter.HandleFunc("/signup", authHandler.HandleSignUp).Methods("POST", "OPTIONS").Name("sign-up")
	signRouter.HandleFunc("/signin", authHandler.HandleSignIn).Methods("POST", "OPTIONS").Name("sign-in")
	if s.redisClient != nil {
		// rate limit sign in and sign up to slow down credential stuffing
		signRouter.Use(middleware.RateLimit(
			redis_rate.NewLimiter(s.redisClient),
			"auth",
			s.config.AuthRateLimitAllowedPerMin,
			s.metricsManager,
		))
	} else {
		log.Warnln("redis not configured, auth endpoints are not rate limited")
	}

	workoutHandler := workout.NewHandler(s.workoutService)
	r.HandleFunc("/exercises", workoutHandler.HandleExercises).Methods("GET", "OPTIONS").Name("list-exercises")
	r.HandleFunc("/workouts", workoutHandler.HandleSaveWorkout).Methods("POST", "OPTIONS").Name("save-workout")
	r.HandleFunc("/workouts/duration", workoutHandler.HandleTotalDuration).Methods("POST", "OPTIONS").Name("workout-duration")
	r.HandleFunc("/duration", workoutHandler.HandleDuration).Methods("GET").Name("duration")

	// all the rest goes to the front-end, with the offline pages when it is down
	if s.fallback != nil {
		r.NotFoundHandler = s.fallback
	}

	authMiddleware := middleware.NewAuthMiddlewareHandler(s.authService)

	r.Use(middleware.PanicRecovery(s.metricsManager))
	r.Use(middleware.LogRequest())
	r.Use(middleware.RequestMetrics(s.metricsManager))
	r.Use(middleware.Cors(s.config.AllowedOrigins))
	r.Use(authMiddleware.AuthCheck())
	r.Use(middleware.DrainAndCloseRequest())

	return r, nil
}

func (s *Server) Serve(host string, port int) {
	router, err := s.routerSetup()
	if err != nil {
		log.Fatalf("failed to setup router: %s", err)
	}

	ipAndPort := net.JoinHostPort(host, strconv.Itoa(port))
	s.httpServer = &http.Server{
		Handler:     router,
		Addr:        ipAndPort,
		ReadTimeout: time.Minute,
		// no write timeout, the auth state stream is long lived
		ConnState: s.connStateMetrics,
	}

	metricsRouter := mux.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.HandlerFor(
		s.promRegistry,
		promhttp.HandlerOpts{},
	))
	metricsAddr := net.JoinHostPort(s.config.PrometheusMetricsHost, s.config.PrometheusMetricsPort)
	s.metricsHttpServer = &http.Server{
		Addr:    metricsAddr,
		Handler: metricsRouter,
	}

	go func() {
		log.Infof(" > server listening on: [%s]", ipAndPort)
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("main service, listen and serve: %s", err)
		}
	}()

	go func() {
		log.Debugf(" > metrics listening on: [%s]", metricsAddr)
		err := s.metricsHttpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("metrics service, listen and serve: %s", err)
		}
	}()

	s.metricsManager.GaugeLifeSignal.Set(1)
}

func (s *Server) GracefulShutdown() {
	log.Debug("graceful shutdown initiated ...")

	s.metricsManager.GaugeLifeSignal.Set(0)

	maxWaitDuration := time.Second * 15
	ctx, timeoutCancel := context.WithTimeout(context.Background(), maxWaitDuration)
	defer timeoutCancel()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			log.Error(" >>> failed to gracefully shutdown http server")
		}
		log.Warnln("server shut down")
	}

	if s.authService != nil {
		s.authService.Close()
	}
	if s.supabaseClient != nil {
		s.supabaseClient.Close()
	}
	if s.cacheTransport != nil {
		// waits for background revalidations
		s.cacheTransport.Close()
	}

	if s.otelShutdown != nil {
		s.otelShutdown()
		log.Trace("otel shut down ...")
	}

	s.closeStorage()

	if ok := sentry.Flush(5 * time.Second); ok {
		log.Debugf("sentry flush ok: %t", ok)
	}

	if s.metricsHttpServer != nil {
		if err := s.metricsHttpServer.Shutdown(ctx); err != nil {
			log.Error(" >>> failed to gracefully shutdown metrics http server")
		}
		log.Warnln("metrics server shut down")
	}
}

func (s *Server) closeStorage() {
	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			log.Errorf("failed to close redis client conn: %s", err)
		}
		s.redisClient = nil
	}

	if s.dbPool != nil {
		log.Debugln("closing db pool ...")
		s.dbPool.Close() // blocking operation
		log.Debugln("db pool closed")
		s.dbPool = nil
	}
}

func (s *Server) connStateMetrics(_ net.Conn, state http.ConnState) {
	switch state {
	case http.StateNew:
		s.metricsManager.GaugeRequests.Add(1)
	case http.StateClosed:
		s.metricsManager.GaugeRequests.Add(-1)
	default:
		// do nothing
	}
}
