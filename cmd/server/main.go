package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"kasirbutik/backend/internal/config"
	"kasirbutik/backend/internal/httpapi"
	"kasirbutik/backend/internal/imagestore"
	"kasirbutik/backend/internal/lock"
	"kasirbutik/backend/internal/logger"
	"kasirbutik/backend/internal/metrics"
	"kasirbutik/backend/internal/service"
	"kasirbutik/backend/internal/store"
	"kasirbutik/backend/internal/store/memory"
	pgstore "kasirbutik/backend/internal/store/postgres"
	"kasirbutik/backend/internal/store/sheets"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:   "kasirbutik",
		Usage:  "boutique point-of-sale backend",
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP API",
				Action: serve,
			},
			{
				Name:   "sheets",
				Usage:  "list the tabs of the configured spreadsheet",
				Action: listSheets,
			},
			{
				Name:   "check-env",
				Usage:  "report which integration settings are present",
				Action: checkEnv,
			},
		},
	}
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func checkEnv(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	return writeCheck(c.App.Writer, cfg.Check())
}

func writeCheck(w io.Writer, check map[string]bool) error {
	keys := make([]string, 0, len(check))
	for key := range check {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		state := "missing"
		if check[key] {
			state = "set"
		}
		if _, err := fmt.Fprintf(w, "%-30s %s\n", key, state); err != nil {
			return err
		}
	}
	return nil
}

func listSheets(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.SpreadsheetID == "" || cfg.ServiceAccountEmail == "" || cfg.PrivateKey == "" {
		return errors.New("GOOGLE_SPREADSHEET_ID, GOOGLE_SERVICE_ACCOUNT_EMAIL and GOOGLE_PRIVATE_KEY are required")
	}

	ctx, cancel := context.WithTimeout(c.Context, 15*time.Second)
	defer cancel()

	st, err := sheets.New(ctx, sheetsCredentials(cfg), cfg.SpreadsheetID, sheetTables(cfg), nil)
	if err != nil {
		return err
	}
	titles, err := st.SheetTitles(ctx)
	if err != nil {
		return err
	}
	for _, title := range titles {
		fmt.Fprintln(c.App.Writer, title)
	}
	return nil
}

func serve(c *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Context, 15*time.Second)
	defer cancel()

	m := metrics.New()
	closers := make([]func() error, 0, 2)
	defer func() {
		for _, closeFn := range closers {
			if err := closeFn(); err != nil {
				log.Warn("close error", zap.Error(err))
			}
		}
	}()

	repo, closeRepo, err := openRepository(ctx, cfg, loc, log)
	if err != nil {
		return err
	}
	if closeRepo != nil {
		closers = append(closers, closeRepo)
	}
	repo = metrics.InstrumentRepository(repo, cfg.StoreBackend, m)
	log.Info("repository ready", zap.String("backend", cfg.StoreBackend))

	var locker lock.Locker = lock.NewKeyedMutex()
	if cfg.RedisAddr != "" {
		redisLocker := lock.NewRedisLocker(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.LockTTL)
		if err := redisLocker.Ping(ctx); err != nil {
			log.Warn("redis unavailable, using in-process locks", zap.Error(err))
			_ = redisLocker.Close()
		} else {
			locker = redisLocker
			closers = append(closers, redisLocker.Close)
			log.Info("locks: redis", zap.String("addr", cfg.RedisAddr))
		}
	}

	var images imagestore.Uploader = imagestore.NewMemory(cfg.CloudinaryFolder)
	if cfg.CloudinaryEnabled() {
		cld, err := imagestore.NewCloudinary(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)
		if err != nil {
			return fmt.Errorf("cloudinary: %w", err)
		}
		images = cld
		log.Info("images: cloudinary", zap.String("folder", cfg.CloudinaryFolder))
	} else {
		log.Warn("cloudinary not configured, product images are kept in memory")
	}

	svc := service.New(repo, service.Options{
		Locker:   locker,
		Images:   images,
		Metrics:  m,
		Logger:   log,
		Location: loc,
	})

	var auth *httpapi.AuthManager
	if cfg.AuthEnabled() {
		auth, err = httpapi.NewAuthManager(cfg.AuthSecret, cfg.AccessTokenTTL, authUsers(cfg))
		if err != nil {
			return fmt.Errorf("auth: %w", err)
		}
	} else {
		log.Warn("AUTH_SECRET not set, API is open")
	}

	api := httpapi.New(svc, auth, httpapi.Options{
		AllowedOrigin:  cfg.AllowedOrigin,
		Production:     cfg.IsProduction(),
		Logger:         log,
		Metrics:        m,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		ConfigCheck:    cfg.Check(),
	})

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("POS backend listening", zap.String("addr", cfg.Address()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sig)

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-sig:
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", zap.Error(err))
	}
	log.Info("server stopped")
	return nil
}

// openRepository builds the configured backend. The returned close
// function is nil when the backend holds no resources.
func openRepository(ctx context.Context, cfg config.Config, loc *time.Location, log *zap.Logger) (store.Repository, func() error, error) {
	clock := func() time.Time { return time.Now().In(loc) }
	switch cfg.StoreBackend {
	case config.BackendSheets:
		st, err := sheets.New(ctx, sheetsCredentials(cfg), cfg.SpreadsheetID, sheetTables(cfg), log.Named("sheets"))
		if err != nil {
			return nil, nil, fmt.Errorf("google sheets unavailable: %w", err)
		}
		return st, nil, nil
	case config.BackendPostgres:
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres unavailable: %w", err)
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			_ = pg.Close()
			return nil, nil, fmt.Errorf("postgres schema: %w", err)
		}
		pg.SetClock(clock)
		return pg, pg.Close, nil
	default:
		mem := memory.NewSeeded()
		mem.SetClock(clock)
		return mem, nil, nil
	}
}

func sheetsCredentials(cfg config.Config) sheets.Credentials {
	return sheets.Credentials{Email: cfg.ServiceAccountEmail, PrivateKey: cfg.PrivateKey}
}

func sheetTables(cfg config.Config) sheets.Tables {
	return sheets.Tables{
		Products:     cfg.SheetProducts,
		Transactions: cfg.SheetTransactions,
		Dashboard:    cfg.SheetDashboard,
		Debts:        cfg.SheetDebts,
	}
}

func authUsers(cfg config.Config) []httpapi.User {
	users := []httpapi.User{
		{Username: cfg.AdminUsername, Password: cfg.AdminPassword, Role: httpapi.RoleAdmin},
	}
	if cfg.CashierPassword != "" {
		users = append(users, httpapi.User{Username: cfg.CashierUsername, Password: cfg.CashierPassword, Role: httpapi.RoleCashier})
	}
	return users
}
