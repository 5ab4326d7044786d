package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	appfinance "github.com/dealerdesk/backend/internal/application/finance"
	"github.com/dealerdesk/backend/internal/domain/shared"
	"github.com/dealerdesk/backend/internal/infrastructure/cache"
	"github.com/dealerdesk/backend/internal/infrastructure/config"
	"github.com/dealerdesk/backend/internal/infrastructure/logger"
	"github.com/dealerdesk/backend/internal/infrastructure/persistence"
	"github.com/dealerdesk/backend/internal/infrastructure/scheduler"
	"github.com/dealerdesk/backend/internal/infrastructure/vehicle"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type globalOptions struct {
	tenant   string
	logLevel string
}

// app is what a database-backed command runs against
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	services *appfinance.Services
	close    func()
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:           "financectl",
		Short:         "Finance maintenance for the dealership backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.tenant, "tenant", "", "tenant ID the command acts on")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(
		newIntegrityCmd(opts),
		newReconcileCmd(opts),
		newStatementCmd(opts),
		newOverdueCmd(opts),
		newTokenCmd(opts),
	)
	return root
}

func loadConfig(opts *globalOptions) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load configuration: %w", err)
	}
	log, err := logger.New(logger.Config{
		Level:   opts.logLevel,
		Format:  "console",
		Output:  "stderr",
		Service: "financectl",
		Env:     cfg.App.Env,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("initialize logger: %w", err)
	}
	return cfg, log, nil
}

// openApp connects to the database and builds the finance services the way
// the server does, minus HTTP
func openApp(cmd *cobra.Command, opts *globalOptions) (*app, error) {
	cfg, log, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	db, err := persistence.NewDatabase(&cfg.Database, logger.NewGormLogger(log, logger.MapGormLogLevel(opts.logLevel)))
	if err != nil {
		return nil, err
	}
	if cfg.Database.Driver == "sqlite" {
		if err := persistence.AutoMigrate(db.DB); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	factory := cache.NewFactory(cfg.Redis, cache.WithLogger(log))
	var client *redis.Client
	if client, err = factory.Connect(cmd.Context()); err != nil {
		_ = db.Close()
		return nil, err
	}

	financeCfg, err := appfinance.ConfigFrom(cfg.Finance)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	services := appfinance.NewServices(appfinance.Dependencies{
		Scope:  persistence.NewGormTransactionScope(db.DB),
		Logger: log,
		Config: financeCfg,
	}, vehicle.NewLoggingStatusUpdater(log), factory.Locker(client))

	return &app{
		cfg:      cfg,
		log:      log,
		services: services,
		close: func() {
			if client != nil {
				_ = client.Close()
			}
			_ = db.Close()
			_ = log.Sync()
		},
	}, nil
}

// actor is the system user scoped to --tenant
func (o *globalOptions) actor() (shared.Actor, error) {
	id, err := o.tenantID()
	if err != nil {
		return shared.Actor{}, err
	}
	return scheduler.SystemActor(id), nil
}

func (o *globalOptions) tenantID() (uuid.UUID, error) {
	if o.tenant == "" {
		return uuid.Nil, fmt.Errorf("--tenant is required")
	}
	id, err := uuid.Parse(o.tenant)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid --tenant: %w", err)
	}
	return id, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func openInput(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}
