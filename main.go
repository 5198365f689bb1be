package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"Strata/internal/auth"
	"Strata/internal/calc/engine"
	"Strata/internal/calc/friction"
	"Strata/internal/calc/modulus"
	"Strata/internal/calc/permeability"
	"Strata/internal/calc/undrained"
	"Strata/internal/calc/unitweight"
	"Strata/internal/config"
	"Strata/internal/export"
	"Strata/internal/importer"
	"Strata/internal/interpret"
	"Strata/internal/logger"
	"Strata/internal/project"
	"Strata/internal/repo"
	"Strata/internal/validate"
	"Strata/internal/watcher"

	"github.com/gorilla/mux"
)

var wg sync.WaitGroup

func CORS(mux *mux.Router) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		mux.ServeHTTP(w, r)
	})
}

func HandleList(mux *mux.Router, cfg config.Config, store *repo.Store) {
	authEnv := &auth.Authenv{JWTkey: []byte(cfg.TokenKey), Repo: store, Secure: cfg.TLS()}
	limiter := auth.NewIPRateLimiter(1, 3)

	api := mux.PathPrefix("/api").Subrouter()
	api.Use(limiter.LimitMiddleware)

	api.HandleFunc("/login", authEnv.AuthHandler).Methods("POST")
	api.HandleFunc("/register", authEnv.RegisterHandler).Methods("POST")

	secureApi := api.PathPrefix("/user").Subrouter()
	secureApi.Use(authEnv.AuthMiddleware)

	secureApi.HandleFunc("/me", authEnv.MeHandler).Methods("GET")
	secureApi.HandleFunc("/logout", authEnv.LogoutHandler).Methods("POST")

	eng := engine.New()
	engineH := &engine.Handler{Engine: eng}
	unitWeightH := &unitweight.Handler{}
	frictionH := &friction.Handler{}
	undrainedH := &undrained.Handler{}
	modulusH := &modulus.Handler{}
	permeabilityH := &permeability.Handler{}
	validateH := &validate.Handler{}

	secureApi.HandleFunc("/tools/unit_weight/calc", unitWeightH.Calc).Methods("POST")
	secureApi.HandleFunc("/tools/friction_angle/calc", frictionH.Calc).Methods("POST")
	secureApi.HandleFunc("/tools/undrained_shear_strength/calc", undrainedH.Calc).Methods("POST")
	secureApi.HandleFunc("/tools/modulus_elasticity/calc", modulusH.Calc).Methods("POST")
	secureApi.HandleFunc("/tools/permeability/calc", permeabilityH.Calc).Methods("POST")
	secureApi.HandleFunc("/tools/engine/calc", engineH.Calc).Methods("POST")
	secureApi.HandleFunc("/tools/engine/batch", engineH.Batch).Methods("POST")
	secureApi.HandleFunc("/tools/{param}/methods", engineH.Methods).Methods("POST")

	secureApi.HandleFunc("/validate/sample", validateH.Sample).Methods("POST")
	secureApi.HandleFunc("/validate/strata", validateH.Strata).Methods("POST")

	projectH := &project.Handler{Repo: store, Interpreter: interpret.New(eng), Exporter: export.NewExporter()}
	projectH.Routes(secureApi)
}

// watch imports lab files dropped into the configured directory.
func watch(ctx context.Context, cfg config.Config, store *repo.Store) error {
	log := logger.ForComponent("watcher")
	importFile := func(ctx context.Context, path string) error {
		res, err := importer.ReadFile(path, importer.CSVOptions{})
		if err != nil {
			return err
		}
		saved, err := importer.Save(ctx, store, cfg.WatchProject, res)
		if err != nil {
			return err
		}
		log.Info("file imported", "path", path, "samples", saved, "skipped", len(res.Skipped))
		return nil
	}
	w, err := watcher.New(watcher.Config{Dir: cfg.WatchDir, Patterns: cfg.WatchPatterns}, importFile)
	if err != nil {
		return err
	}
	if err := w.Scan(ctx); err != nil {
		return err
	}
	return w.Run(ctx)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		logger.ForComponent("main").Error("config", "error", err)
		os.Exit(1)
	}
	logger.Init(cfg.Log)
	log := logger.ForComponent("main")

	store, err := cfg.OpenStore(ctx)
	if err != nil {
		log.Error("open store", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	mux := mux.NewRouter()
	HandleList(mux, cfg, store)
	handler := CORS(mux)

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: handler,
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("starting server", "addr", cfg.ListenAddr, "tls", cfg.TLS(), "store", cfg.StoreDriver)
		var err error
		if cfg.TLS() {
			err = server.ListenAndServeTLS(cfg.TLSCert, cfg.TLSKey)
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			cancel()
		}
	}()

	if cfg.WatchDir != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := watch(ctx, cfg, store); err != nil {
				log.Error("watcher stopped", "dir", cfg.WatchDir, "error", err)
			}
		}()
	}

	<-ctx.Done()
	log.Info("shutdown signal received, closing active connections")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown failed", "error", err)
	}
	wg.Wait()
	log.Info("server stopped")
}
