package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/roadshare/claims/internal/claimsapi"
	"github.com/roadshare/claims/internal/gateway"
	"github.com/roadshare/claims/internal/store/gormstore"
	"github.com/roadshare/claims/pkg/claims"
)

const (
	flagDatabaseURL       = "database-url"
	flagListenAddr        = "listen-addr"
	flagAllowedOrigins    = "allowed-origins"
	flagNotifyURL         = "notify-url"
	flagPaymentURL        = "payment-url"
	flagPaymentAPIKey     = "payment-api-key"
	flagSchedulerInterval = "scheduler-interval"
	flagResponseSLA       = "response-sla"
	flagReminderWindow    = "reminder-window"
	flagDeductibleCents   = "default-deductible-cents"

	configKeyDatabaseURL       = "database_url"
	configKeyListenAddr        = "listen_addr"
	configKeyAllowedOrigins    = "allowed_origins"
	configKeyNotifyURL         = "notify_url"
	configKeyPaymentURL        = "payment_url"
	configKeyPaymentAPIKey     = "payment_api_key"
	configKeySchedulerInterval = "scheduler_interval"
	configKeyResponseSLA       = "response_sla"
	configKeyReminderWindow    = "reminder_window"
	configKeyDeductibleCents   = "default_deductible_cents"

	defaultDatabaseURL       = "sqlite:///tmp/claims.db"
	defaultHTTPListenAddr    = ":8090"
	defaultSchedulerInterval = 5 * time.Minute
)

type runtimeConfig struct {
	DatabaseURL       string
	ListenAddr        string
	AllowedOrigins    string
	NotifyURL         string
	PaymentURL        string
	PaymentAPIKey     string
	SchedulerInterval time.Duration
	ResponseSLA       time.Duration
	ReminderWindow    time.Duration
	DeductibleCents   int64
}

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "claimsd: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cfg := &runtimeConfig{}
	cmd := &cobra.Command{
		Use:           "claimsd",
		Short:         "Claims and dispute resolution engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(cmd, cfg)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg)
		},
	}

	cmd.Flags().String(flagDatabaseURL, defaultDatabaseURL, "PostgreSQL connection string or sqlite path")
	cmd.Flags().String(flagListenAddr, defaultHTTPListenAddr, "HTTP listen address")
	cmd.Flags().String(flagAllowedOrigins, "", "comma-delimited CORS origins")
	cmd.Flags().String(flagNotifyURL, "", "notification webhook endpoint (log-only when empty)")
	cmd.Flags().String(flagPaymentURL, "", "payment service refund endpoint (dry run when empty)")
	cmd.Flags().String(flagPaymentAPIKey, "", "payment service API key")
	cmd.Flags().Duration(flagSchedulerInterval, defaultSchedulerInterval, "deadline scheduler pass interval")
	cmd.Flags().Duration(flagResponseSLA, claims.DefaultGuestResponseSLA, "guest response deadline window")
	cmd.Flags().Duration(flagReminderWindow, claims.DefaultReminderWindow, "reminder window before the deadline")
	cmd.Flags().Int64(flagDeductibleCents, claims.DefaultDeductibleCents.Int64(), "deductible for claims without a policy")

	return cmd
}

func loadConfig(cmd *cobra.Command, cfg *runtimeConfig) error {
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	envBindings := map[string]string{
		configKeyDatabaseURL:       "DATABASE_URL",
		configKeyListenAddr:        "HTTP_LISTEN_ADDR",
		configKeyAllowedOrigins:    "ALLOWED_ORIGINS",
		configKeyNotifyURL:         "NOTIFY_URL",
		configKeyPaymentURL:        "PAYMENT_URL",
		configKeyPaymentAPIKey:     "PAYMENT_API_KEY",
		configKeySchedulerInterval: "SCHEDULER_INTERVAL",
		configKeyResponseSLA:       "GUEST_RESPONSE_SLA",
		configKeyReminderWindow:    "REMINDER_WINDOW",
		configKeyDeductibleCents:   "DEFAULT_DEDUCTIBLE_CENTS",
	}
	for key, env := range envBindings {
		if err := viper.BindEnv(key, env); err != nil {
			return err
		}
	}

	flagBindings := map[string]string{
		configKeyDatabaseURL:       flagDatabaseURL,
		configKeyListenAddr:        flagListenAddr,
		configKeyAllowedOrigins:    flagAllowedOrigins,
		configKeyNotifyURL:         flagNotifyURL,
		configKeyPaymentURL:        flagPaymentURL,
		configKeyPaymentAPIKey:     flagPaymentAPIKey,
		configKeySchedulerInterval: flagSchedulerInterval,
		configKeyResponseSLA:       flagResponseSLA,
		configKeyReminderWindow:    flagReminderWindow,
		configKeyDeductibleCents:   flagDeductibleCents,
	}
	for key, flag := range flagBindings {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return err
		}
	}

	cfg.DatabaseURL = viper.GetString(configKeyDatabaseURL)
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = defaultDatabaseURL
	}
	cfg.ListenAddr = viper.GetString(configKeyListenAddr)
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = defaultHTTPListenAddr
	}
	cfg.AllowedOrigins = viper.GetString(configKeyAllowedOrigins)
	cfg.NotifyURL = viper.GetString(configKeyNotifyURL)
	cfg.PaymentURL = viper.GetString(configKeyPaymentURL)
	cfg.PaymentAPIKey = viper.GetString(configKeyPaymentAPIKey)
	cfg.SchedulerInterval = viper.GetDuration(configKeySchedulerInterval)
	if cfg.SchedulerInterval <= 0 {
		cfg.SchedulerInterval = defaultSchedulerInterval
	}
	cfg.ResponseSLA = viper.GetDuration(configKeyResponseSLA)
	cfg.ReminderWindow = viper.GetDuration(configKeyReminderWindow)
	cfg.DeductibleCents = viper.GetInt64(configKeyDeductibleCents)
	return nil
}

func runServer(ctx context.Context, cfg *runtimeConfig) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	gormDB, cleanup, driver, err := openDatabase(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("database open: %w", err)
	}
	defer cleanup()

	if err := prepareSchema(gormDB, driver); err != nil {
		return err
	}

	store := gormstore.New(gormDB)
	clock := func() time.Time { return time.Now().UTC() }

	deductible, err := claims.NewAmountCents(cfg.DeductibleCents)
	if err != nil {
		return fmt.Errorf("deductible config: %w", err)
	}
	engineCfg := claims.Config{
		GuestResponseSLA:       cfg.ResponseSLA,
		ReminderWindow:         cfg.ReminderWindow,
		DefaultDeductibleCents: deductible,
	}

	notifier, err := buildNotifier(cfg, logger)
	if err != nil {
		return err
	}
	payments, err := buildPayments(cfg, logger)
	if err != nil {
		return err
	}

	enforcer, err := claims.NewHoldEnforcer(store, clock)
	if err != nil {
		return fmt.Errorf("hold enforcer init: %w", err)
	}
	operationLogger := &zapOperationLogger{logger: logger}
	claimService, err := claims.NewService(store, enforcer, notifier, engineCfg, clock, claims.WithOperationLogger(operationLogger))
	if err != nil {
		return fmt.Errorf("claim service init: %w", err)
	}
	disputeService, err := claims.NewDisputeService(store, payments, notifier, clock, claims.WithDisputeOperationLogger(operationLogger))
	if err != nil {
		return fmt.Errorf("dispute service init: %w", err)
	}
	scheduler, err := claims.NewScheduler(store, enforcer, notifier, engineCfg, clock, operationLogger)
	if err != nil {
		return fmt.Errorf("scheduler init: %w", err)
	}

	go runScheduler(ctx, scheduler, cfg.SchedulerInterval, logger)

	apiCfg := claimsapi.Config{
		ListenAddr:     cfg.ListenAddr,
		AllowedOrigins: claimsapi.ParseAllowedOrigins(cfg.AllowedOrigins),
	}
	return claimsapi.Run(ctx, apiCfg, claimsapi.Dependencies{
		Claims:   claimService,
		Disputes: disputeService,
		Enforcer: enforcer,
		Store:    store,
		Logger:   logger,
	})
}

func buildNotifier(cfg *runtimeConfig, logger *zap.Logger) (claims.NotificationGateway, error) {
	if cfg.NotifyURL == "" {
		logger.Warn("no notification endpoint configured; notifications are log-only")
		return gateway.NewLogNotifier(logger), nil
	}
	return gateway.NewWebhookNotifier(cfg.NotifyURL, logger)
}

func buildPayments(cfg *runtimeConfig, logger *zap.Logger) (claims.PaymentGateway, error) {
	if cfg.PaymentURL == "" {
		logger.Warn("no payment endpoint configured; refunds are dry run")
		return gateway.NewDryRunPayments(logger), nil
	}
	return gateway.NewRefundClient(cfg.PaymentURL, cfg.PaymentAPIKey, logger)
}

// runScheduler drives the deadline passes on a fixed interval until the
// context is cancelled. One pass runs immediately on startup so a restart
// never extends an already-missed deadline.
func runScheduler(ctx context.Context, scheduler *claims.Scheduler, interval time.Duration, logger *zap.Logger) {
	runOnce := func() {
		report, err := scheduler.Run(ctx)
		if err != nil {
			logger.Error("scheduler pass failed", zap.Error(err))
		}
		logger.Info("scheduler pass finished",
			zap.Int("reminders_scanned", report.RemindersScanned),
			zap.Int("reminders_sent", report.RemindersSent),
			zap.Int("reminders_failed", report.RemindersFailed),
			zap.Int("escalations_scanned", report.EscalationsScanned),
			zap.Int("holds_applied", report.HoldsApplied),
			zap.Int("escalations_failed", report.EscalationsFailed))
	}

	runOnce()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}

type zapOperationLogger struct {
	logger *zap.Logger
}

func (operationLogger *zapOperationLogger) LogOperation(ctx context.Context, entry claims.OperationLog) {
	fields := []zap.Field{
		zap.String("operation", entry.Operation),
		zap.String("status", entry.Status),
	}
	if entry.ClaimID.String() != "" {
		fields = append(fields, zap.String("claim_id", entry.ClaimID.String()))
	}
	if entry.DisputeID.String() != "" {
		fields = append(fields, zap.String("dispute_id", entry.DisputeID.String()))
	}
	if entry.Guest.String() != "" {
		fields = append(fields, zap.String("guest", entry.Guest.String()))
	}
	if entry.Actor != "" {
		fields = append(fields, zap.String("actor", entry.Actor))
	}
	if entry.Amount > 0 {
		fields = append(fields, zap.Int64("amount_cents", entry.Amount.Int64()))
	}
	if entry.Error != nil {
		fields = append(fields, zap.Error(entry.Error))
		operationLogger.logger.Error("claims operation", fields...)
		return
	}
	operationLogger.logger.Info("claims operation", fields...)
}

func openDatabase(ctx context.Context, dsn string) (*gorm.DB, func() error, string, error) {
	driver, sqlitePath, err := resolveDriver(dsn)
	if err != nil {
		return nil, nil, "", err
	}

	var (
		db  *gorm.DB
		cfg *gorm.Config
	)
	cfg = &gorm.Config{}
	switch driver {
	case "postgres":
		db, err = gorm.Open(postgres.Open(dsn), cfg)
	case "sqlite":
		db, err = gorm.Open(sqlite.Open(sqlitePath), cfg)
	default:
		return nil, nil, "", fmt.Errorf("unsupported database scheme %q", driver)
	}
	if err != nil {
		return nil, nil, "", err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, "", err
	}
	cleanup := func() error { return sqlDB.Close() }
	return db.WithContext(ctx), cleanup, driver, nil
}

func resolveDriver(dsn string) (string, string, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return "postgres", "", nil
	}
	if strings.HasPrefix(dsn, "sqlite://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return "", "", fmt.Errorf("parse sqlite url: %w", err)
		}
		path := u.Path
		if path == "" {
			path = u.Host
		}
		if path == "" || path == "/" {
			path = "claims.db"
		}
		sqlitePath, err := normalizeSQLitePath(path)
		return "sqlite", sqlitePath, err
	}
	// Treat everything else as a direct sqlite path.
	sqlitePath, err := normalizeSQLitePath(dsn)
	return "sqlite", sqlitePath, err
}

func normalizeSQLitePath(path string) (string, error) {
	if path == ":memory:" {
		return path, nil
	}
	if strings.HasPrefix(path, "/") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return "", err
		}
		return path, nil
	}
	abs := filepath.Join(".", path)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", err
	}
	return abs, nil
}

func prepareSchema(db *gorm.DB, driver string) error {
	if driver != "sqlite" {
		return nil
	}
	if err := db.AutoMigrate(gormstore.Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
