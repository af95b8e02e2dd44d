package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pribylovaa/videotube-accounts/internal/cache"
	"github.com/pribylovaa/videotube-accounts/internal/config"
	"github.com/pribylovaa/videotube-accounts/internal/credential"
	"github.com/pribylovaa/videotube-accounts/internal/metrics"
	"github.com/pribylovaa/videotube-accounts/internal/service"
	"github.com/pribylovaa/videotube-accounts/internal/storage"
	"github.com/pribylovaa/videotube-accounts/internal/storage/memory"
	"github.com/pribylovaa/videotube-accounts/internal/storage/minio"
	"github.com/pribylovaa/videotube-accounts/internal/storage/mongo"
	"github.com/pribylovaa/videotube-accounts/internal/storage/postgres"
	"github.com/pribylovaa/videotube-accounts/internal/token"
	accountshttp "github.com/pribylovaa/videotube-accounts/internal/transport/http"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

// pinger — хранилище, умеющее проверять соединение для /healthz.
type pinger interface {
	Ping(ctx context.Context) error
}

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	cfg := config.MustLoad(configPath)

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)
	log.Info("starting accounts-service", "env", cfg.Env, "db_driver", cfg.DB.Driver)

	warnInsecureCookies(log, cfg)

	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer rootCancel()

	st, err := openStorage(rootCtx, cfg.DB)
	if err != nil {
		log.Error("storage_init_failed", slog.String("driver", cfg.DB.Driver), slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer st.Close()

	log.Info("storage_initialized", slog.String("driver", cfg.DB.Driver))

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	svc := service.New(st, token.New(cfg.Auth), credential.NewHasher(cfg.Auth.BcryptCost))
	svc.SetMetrics(m)

	if cfg.S3.Endpoint != "" {
		media, err := minio.New(rootCtx, cfg.S3, cfg.Media)
		if err != nil {
			log.Error("media_init_failed", slog.String("endpoint", cfg.S3.Endpoint), slog.String("err", err.Error()))
			os.Exit(1)
		}
		svc.SetMediaStorage(media)
		log.Info("media_initialized", slog.String("bucket", cfg.S3.Bucket))
	} else {
		log.Warn("media_disabled")
	}

	if cfg.Redis.URL != "" {
		uc, err := cache.NewRedisCache(rootCtx, cfg.Redis.URL, cfg.Redis.Prefix, cfg.Redis.TTL)
		if err != nil {
			// Кэш не обязателен: без него сервис работает напрямую с хранилищем.
			log.Warn("cache_init_failed", slog.String("err", err.Error()))
		} else {
			svc.SetUserCache(uc)
			defer func() {
				if cerr := uc.Close(); cerr != nil {
					log.Warn("cache_close_failed", slog.String("err", cerr.Error()))
				}
			}()
			log.Info("cache_initialized")
		}
	}

	apiHandler := accountshttp.NewRouter(svc, accountshttp.Options{
		Logger:   log,
		Timeout:  cfg.Timeouts.Service,
		BasePath: cfg.HTTP.BasePath,
		Cookies:  cfg.Cookies,
		Metrics:  m,
	})

	var ready int32 // 0 — not ready; 1 — ready

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if atomic.LoadInt32(&ready) != 1 {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}

		if p, ok := st.(pinger); ok {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()

			if err := p.Ping(ctx); err != nil {
				log.Warn("healthz_storage_unavailable", slog.String("err", err.Error()))
				http.Error(w, "storage unavailable", http.StatusServiceUnavailable)
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	mux.Handle("/", apiHandler)

	httpAddr := cfg.HTTP.Addr()
	httpSrv := &http.Server{
		Addr:              httpAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ln, err := net.Listen("tcp", httpAddr)
	if err != nil {
		log.Error("http_listen_failed", slog.String("addr", httpAddr), slog.String("err", err.Error()))
		os.Exit(1)
	}

	log.Info("http_listen_start", slog.String("addr", httpAddr), slog.String("base_path", cfg.HTTP.BasePath))

	serveErrCh := make(chan error, 1)
	go func() {
		if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- err
		}
		close(serveErrCh)
	}()

	atomic.StoreInt32(&ready, 1)
	log.Info("service_ready")

	select {
	case <-rootCtx.Done():
		log.Info("shutdown_requested")
	case err := <-serveErrCh:
		if err != nil {
			log.Error("http_serve_failed", slog.String("err", err.Error()))
		}
	}

	atomic.StoreInt32(&ready, 0)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http_shutdown_incomplete", slog.String("err", err.Error()))
	} else {
		log.Info("http_stopped")
	}

	log.Info("service_stopped")
}

// warnInsecureCookies делает заметным cookies.allow_insecure: токены тогда
// уходят и по http. В prod это ошибка конфигурации, поэтому уровень error.
func warnInsecureCookies(log *slog.Logger, cfg *config.Config) {
	if cfg.Cookies.Secure() {
		return
	}

	level := slog.LevelWarn
	if cfg.Env == envProd {
		level = slog.LevelError
	}

	log.LogAttrs(context.Background(), level, "cookies_insecure",
		slog.String("env", cfg.Env),
		slog.String("hint", "cookies.allow_insecure drops the Secure flag; use only for local http"),
	)
}

// openStorage выбирает реализацию хранилища по драйверу из конфигурации.
func openStorage(ctx context.Context, cfg config.DBConfig) (storage.Storage, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return memory.New(), nil
	case config.DriverPostgres:
		return postgres.New(ctx, cfg.URL)
	case config.DriverMongo:
		return mongo.New(ctx, cfg.URL)
	default:
		return nil, fmt.Errorf("unknown db driver %q", cfg.Driver)
	}
}

func setupLogger(env string) *slog.Logger {
	switch env {
	case envLocal:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envDev:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}
