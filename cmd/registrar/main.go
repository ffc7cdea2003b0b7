// cmd/registrar/main.go
//
// Software registrar – HTTP entry point.
//
// Boot sequence
// -------------
//
//  1. Console logger until config is read, then the rotating file logger
//     (tees to console when running in a TTY).
//
//  2. Load config (defaults → conf/.env → conf/registrar.yaml → env).
//
//  3. Secrets: Vault when `vault.enabled`, otherwise config values.
//
//  4. Store (memory or MySQL), create lock (Redis or in-process).
//
//  5. Extensions: e-mail/webhook notifier and the Kafka publisher observe
//     every committed transition.
//
//  6. Router: global middleware → API routes, /metrics, /healthz.
//
//  7. Serve until SIGINT/SIGTERM; SIGHUP reloads config.
//
// Large comment blocks are framed by blank “//” lines; inline comments use
// a single “//”.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/yanizio/swregistry/internal/api"
	"github.com/yanizio/swregistry/internal/apikey"
	"github.com/yanizio/swregistry/internal/config"
	"github.com/yanizio/swregistry/internal/events"
	"github.com/yanizio/swregistry/internal/extension"
	"github.com/yanizio/swregistry/internal/lock"
	"github.com/yanizio/swregistry/internal/logger"
	"github.com/yanizio/swregistry/internal/middleware"
	"github.com/yanizio/swregistry/internal/notify"
	"github.com/yanizio/swregistry/internal/registry"
	"github.com/yanizio/swregistry/internal/requestinfo"
	"github.com/yanizio/swregistry/internal/server"
	"github.com/yanizio/swregistry/internal/store"
	"github.com/yanizio/swregistry/internal/vault"
	"github.com/yanizio/swregistry/internal/view"
)

// lockStripes sizes the in-process create lock.
const lockStripes = 64

// runningInTTY returns true when stdout is a character device.
func runningInTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func main() {
	logger.Bootstrap()
	if err := run(); err != nil {
		zap.S().Errorw("registrar exited", "err", err)
		_ = zap.L().Sync()
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	//
	// ── 1.  Config + logger ─────────────────────────────────────────────
	//
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logOut, err := logger.New(cfg.Paths.Root, cfg.Log.Level, runningInTTY())
	if err != nil {
		log.Printf("start logger: %v", err)
		return err
	}
	defer func() { _ = logOut.Sync() }()
	logOut.Infow("registrar starting", "registrar", cfg.Registrar.Name, "root", cfg.Paths.Root)

	//
	// ── 2.  Secrets ─────────────────────────────────────────────────────
	//
	var keys apikey.Keyring = apikey.Static{Get: config.Get}
	dbPassword := cfg.Database.Password
	if cfg.Vault.Enabled {
		vc, err := vault.New(ctx, cfg.Vault)
		if err != nil {
			return fmt.Errorf("vault: %w", err)
		}
		keys = apikey.Vault{Client: vc, Path: cfg.Vault.KeysPath}
		if cfg.Vault.PasswordPath != "" {
			if dbPassword, err = vc.GetKV(ctx, cfg.Vault.PasswordPath, "password"); err != nil {
				return fmt.Errorf("database password: %w", err)
			}
		}
		logOut.Infow("vault online", "keys_path", cfg.Vault.KeysPath)
	}

	//
	// ── 3.  Store + create lock ─────────────────────────────────────────
	//
	st, err := store.Open(ctx, cfg.Database, dbPassword)
	if err != nil {
		return err
	}
	defer st.Close()
	logOut.Infow("store online", "driver", cfg.Database.Driver)

	var locker registry.Locker = lock.NewStriped(lockStripes)
	if cfg.Redis.Addr != "" {
		rl, err := lock.NewRedis(ctx, cfg.Redis)
		if err != nil {
			return fmt.Errorf("redis lock: %w", err)
		}
		locker = rl
		logOut.Infow("redis lock online", "addr", cfg.Redis.Addr)
	}

	//
	// ── 4.  Extensions ──────────────────────────────────────────────────
	//
	views := view.New(filepath.Join(cfg.Paths.Root, "templates"))

	notifier := notify.New(cfg.Registrar.Notify, notify.NewMailer(cfg.Registrar.Notify), views)
	extension.Register(notifier)

	publisher, err := events.New(cfg.Kafka)
	if err != nil {
		return fmt.Errorf("kafka: %w", err)
	}
	if publisher != nil {
		extension.Register(publisher)
		logOut.Infow("kafka publisher online", "topic", cfg.Kafka.Topic)
	}

	engine := registry.NewEngine(st,
		registry.WithLocker(locker),
		registry.WithHooks(extension.Hooks()),
	)

	//
	// ── 5.  Request enrichment ──────────────────────────────────────────
	//
	if cfg.GeoIP.DBPath != "" {
		if err := requestinfo.InitGeo(cfg.GeoIP.DBPath); err != nil {
			logOut.Warnw("geoip disabled", "path", cfg.GeoIP.DBPath, "err", err)
		}
		defer requestinfo.CloseGeo()
	}

	//
	// ── 6.  Router ──────────────────────────────────────────────────────
	//
	apiSrv, err := api.New(api.Deps{
		Engine: engine,
		Store:  st,
		Gate:   apikey.NewGate(keys),
		HTML:   views,
	})
	if err != nil {
		return err
	}

	root := chi.NewRouter()
	root.Use(
		chimw.RequestID,
		chimw.RealIP,
		middleware.AccessLog,
		chimw.Recoverer,
		middleware.ForceHTTPS(cfg.HTTP.ForceHTTPS),
		middleware.Security,
		middleware.CORS(cfg.HTTP.AllowedOrigins),
		middleware.NewRateLimiter(cfg.HTTP.RateLimit.RPS, cfg.HTTP.RateLimit.Burst).Handler,
		requestinfo.Enrich,
	)
	root.Mount("/", apiSrv.Routes())

	go reloadOnHUP(ctx)

	//
	// ── 7.  Serve ───────────────────────────────────────────────────────
	//
	srvErr := server.Run(ctx, server.New(cfg.HTTP.ListenAddr, root))

	drain, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := notifier.Close(drain); err != nil {
		logOut.Warnw("notifier drain", "err", err)
	}
	if publisher != nil {
		if err := publisher.Close(drain); err != nil {
			logOut.Warnw("kafka flush", "err", err)
		}
	}
	return srvErr
}

// reloadOnHUP re-reads config on SIGHUP.  Listener, store, and lock
// settings need a restart; registrar policy and the log level apply to the
// next request.
func reloadOnHUP(ctx context.Context) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			if err := config.Reload(); err != nil {
				zap.S().Errorw("config reload failed", "err", err)
				continue
			}
			logger.SetLevel(config.Get().Log.Level)
			zap.S().Infow("config reloaded")
		}
	}
}
