package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"route-audit-service/internal/adapters/alert"
	"route-audit-service/internal/adapters/spreadsheet"
	"route-audit-service/internal/adapters/storage"
	"route-audit-service/internal/config"
	"route-audit-service/internal/platform/logging"
	"route-audit-service/internal/ports"
	"route-audit-service/internal/services"

	"github.com/spf13/cobra"
	"github.com/zoobzio/clockz"
	"go.uber.org/zap"
)

// App holds the state shared by every subcommand. The engine is opened
// before the command runs and the store is closed when Execute returns.
type App struct {
	out    io.Writer
	errOut io.Writer

	storeDriver string
	dbPath      string
	verbose     bool

	cfg        config.Config
	log        *zap.Logger
	store      ports.SnapshotStore
	closeStore func() error
	engine     *services.Engine
}

func newApp(out, errOut io.Writer) *App {
	return &App{out: out, errOut: errOut}
}

// Execute runs the CLI with args.
func (a *App) Execute(ctx context.Context, args []string) error {
	root := a.createRootCommand()
	root.SetArgs(args)
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	err := root.ExecuteContext(ctx)
	return errors.Join(err, a.close())
}

func (a *App) createRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "auditctl",
		Short: "Route reconciliation from the terminal",
		Long: `auditctl imports route manifests, reconciles scanned package identifiers
against them and renders the summary, spreadsheet and closing reports.

State is kept in the configured snapshot store between invocations.`,
		PersistentPreRunE: a.setup,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	root.PersistentFlags().StringVar(&a.storeDriver, "store", "", "snapshot store: sqlite, postgres, redis (default $STORE_DRIVER or sqlite)")
	root.PersistentFlags().StringVar(&a.dbPath, "db", "", "sqlite database path (default $DB_PATH)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		a.initDBCommand(),
		a.importCommand(),
		a.routesCommand(),
		a.scanCommand(),
		a.ingestCommand(),
		a.manualCommand(),
		a.summaryCommand(),
		a.exportCommand(),
		a.deleteCommand(),
		a.clearCommand(),
		a.closingCommand(),
	)
	return root
}

func (a *App) setup(cmd *cobra.Command, _ []string) error {
	a.cfg = config.Load()
	if a.storeDriver != "" {
		a.cfg.StoreDriver = a.storeDriver
	}
	if a.dbPath != "" {
		a.cfg.DBPath = a.dbPath
	}

	level := "warn"
	if a.verbose {
		level = "debug"
	}
	log, err := logging.New(level, "console")
	if err != nil {
		return err
	}
	a.log = log
	for _, w := range a.cfg.Warnings {
		a.log.Warn("config", zap.String("warning", w))
	}

	ctx := cmd.Context()
	store, closeStore, err := storage.Open(ctx, storage.OpenOptions{
		Driver:        a.cfg.StoreDriver,
		DBPath:        a.cfg.DBPath,
		DatabaseURL:   a.cfg.DatabaseURL,
		RedisAddr:     a.cfg.RedisAddr,
		RedisPassword: a.cfg.RedisPassword,
		RedisDB:       a.cfg.RedisDB,
		Key:           a.cfg.SnapshotKey,
		Log:           a.log,
	})
	if err != nil {
		return err
	}
	a.store, a.closeStore = store, closeStore

	translator, err := services.NewStatusTranslator(a.cfg.StatusTablePath)
	if err != nil {
		return err
	}

	var alerter ports.Alerter = alert.Nop{}
	if a.cfg.AlertBell {
		alerter = alert.NewBell(a.errOut, a.log, nil)
	}

	a.engine = services.NewEngine(services.EngineOptions{
		Store:      store,
		Alerter:    alerter,
		Exporter:   spreadsheet.NewXLSXWriter(),
		Translator: translator,
		Importer: services.NewRouteImporter(services.RouteImporterOptions{
			LookbackWindow: a.cfg.LookbackWindow,
			DefaultCarrier: a.cfg.DefaultCarrier,
			Log:            a.log,
		}),
		Clock:  clockz.RealClock,
		Logger: a.log,
	})
	a.engine.Restore(ctx)
	return nil
}

func (a *App) close() error {
	if a.log != nil {
		_ = a.log.Sync()
	}
	if a.closeStore == nil {
		return nil
	}
	closeStore := a.closeStore
	a.closeStore = nil
	if err := closeStore(); err != nil {
		return fmt.Errorf("close store: %w", err)
	}
	return nil
}

// selectRoute makes routeID current when one is given.
func (a *App) selectRoute(ctx context.Context, routeID string) error {
	if routeID == "" {
		return nil
	}
	return a.engine.SelectRoute(ctx, routeID)
}
