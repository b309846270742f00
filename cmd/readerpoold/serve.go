package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/forkserve/readerpool/journal"
	"github.com/forkserve/readerpool/journal/memory"
	"github.com/forkserve/readerpool/journal/sqldb"
	"github.com/forkserve/readerpool/logger"
	"github.com/forkserve/readerpool/metrics"
	"github.com/forkserve/readerpool/pool"
	"github.com/forkserve/readerpool/reaper"
	"github.com/forkserve/readerpool/spawner"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the reader pool primary",
	Long: `Run the reader pool primary. The primary spawns worker copies of this
binary up to the target size, watches their exits via SIGCHLD, and rotates
the whole generation when it grows stale.

Example:
  readerpoold serve --target-size 4 --max-reader-age 5m
  readerpoold serve --journal-driver sqlite3 --journal-dsn /var/lib/readerpool/events.db
`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().Int("target-size", 2, "Desired worker count")
	serveCmd.Flags().Duration("max-reader-age", pool.DefaultMaxReaderAge, "Generation age that triggers rotation")
	serveCmd.Flags().Duration("tick-interval", pool.DefaultTickInterval, "Maintenance loop period")
	serveCmd.Flags().Duration("reap-timeout", pool.DefaultReapTimeout, "Per-worker reap wait before kill escalation")
	serveCmd.Flags().Int("max-pool-size", 0, "Upper bound on tracked workers (0 = unbounded)")
	serveCmd.Flags().String("pool-name", "default", "Pool name used as the metrics label")
	serveCmd.Flags().String("process-title", spawner.DefaultProcessTitle, "argv[0] given to workers")
	serveCmd.Flags().StringP("metrics-addr", "m", "", "Prometheus listen address (empty = disabled)")
	serveCmd.Flags().String("journal-driver", "", "Lifecycle journal driver: postgres, sqlite3 or mysql (empty = in-memory)")
	serveCmd.Flags().String("journal-dsn", "", "Lifecycle journal DSN")
	serveCmd.Flags().String("journal-table", "", "Lifecycle journal table name")
	serveCmd.Flags().Bool("dev-log", false, "Human-readable log output")

	viper.BindPFlag("pool.target_size", serveCmd.Flags().Lookup("target-size"))
	viper.BindPFlag("pool.max_reader_age", serveCmd.Flags().Lookup("max-reader-age"))
	viper.BindPFlag("pool.tick_interval", serveCmd.Flags().Lookup("tick-interval"))
	viper.BindPFlag("pool.reap_timeout", serveCmd.Flags().Lookup("reap-timeout"))
	viper.BindPFlag("pool.max_pool_size", serveCmd.Flags().Lookup("max-pool-size"))
	viper.BindPFlag("pool.name", serveCmd.Flags().Lookup("pool-name"))
	viper.BindPFlag("pool.process_title", serveCmd.Flags().Lookup("process-title"))
	viper.BindPFlag("metrics.addr", serveCmd.Flags().Lookup("metrics-addr"))
	viper.BindPFlag("journal.driver", serveCmd.Flags().Lookup("journal-driver"))
	viper.BindPFlag("journal.dsn", serveCmd.Flags().Lookup("journal-dsn"))
	viper.BindPFlag("journal.table", serveCmd.Flags().Lookup("journal-table"))
	viper.BindPFlag("log.dev", serveCmd.Flags().Lookup("dev-log"))
}

func runServe(cmd *cobra.Command, args []string) error {
	var (
		log *logger.ZapLogger
		err error
	)
	if viper.GetBool("log.dev") {
		log, err = logger.NewZapDevelopment()
	} else {
		log, err = logger.NewZap()
	}
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	collector := metrics.NewCollector(viper.GetString("pool.name"))

	jrnl, closeJournal, err := openJournal(ctx)
	if err != nil {
		return err
	}
	defer closeJournal()

	spawn, err := spawner.NewOS(spawner.Config{
		ProcessTitle: viper.GetString("pool.process_title"),
		Logger:       log,
		Collector:    collector,
	})
	if err != nil {
		return fmt.Errorf("build spawner: %w", err)
	}

	controller, err := pool.New(pool.Config{
		Spawner:      spawn,
		TargetSize:   viper.GetInt("pool.target_size"),
		MaxReaderAge: viper.GetDuration("pool.max_reader_age"),
		TickInterval: viper.GetDuration("pool.tick_interval"),
		ReapTimeout:  viper.GetDuration("pool.reap_timeout"),
		MaxPoolSize:  viper.GetInt("pool.max_pool_size"),
		Logger:       log,
		Journal:      jrnl,
		Collector:    collector,
	})
	if err != nil {
		return fmt.Errorf("build pool controller: %w", err)
	}

	if addr := viper.GetString("metrics.addr"); addr != "" {
		metricsServer := metrics.NewServer(addr)
		metricsServer.HandleStatus(func() any { return controller.Status() })
		metricsServer.Start()
		defer func() {
			shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
			defer stop()
			metricsServer.Shutdown(shutdownCtx)
		}()
		log.Info(ctx, "metrics server listening", "addr", addr)
	}

	notifier := reaper.New(reaper.Config{Logger: log})
	notifier.Start(ctx)

	done := make(chan struct{})
	go func() {
		defer close(done)
		controller.Run(ctx, notifier.Events())
	}()

	log.Info(ctx, "reader pool primary started",
		"target_size", viper.GetInt("pool.target_size"),
		"max_reader_age", viper.GetDuration("pool.max_reader_age").String())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	log.Info(ctx, "shutdown signal received, stopping pool")

	cancel()
	<-done

	shutdownCtx, stop := context.WithTimeout(context.Background(), 30*time.Second)
	defer stop()
	if err := controller.Shutdown(shutdownCtx); err != nil {
		log.Warn(ctx, "pool shutdown incomplete", "error", err)
	}
	return nil
}

// openJournal builds the configured journal backend. The returned closer is
// safe to call once serving ends.
func openJournal(ctx context.Context) (journal.Journal, func(), error) {
	driver := viper.GetString("journal.driver")
	if driver == "" {
		store := memory.New()
		return store, func() { store.Close() }, nil
	}

	dsn := viper.GetString("journal.dsn")
	if dsn == "" {
		return nil, nil, fmt.Errorf("journal driver %q requires --journal-dsn", driver)
	}

	var dialect sqldb.Dialect
	switch driver {
	case "postgres":
		dialect = sqldb.DialectPostgres
	case "sqlite3":
		dialect = sqldb.DialectSQLite
	case "mysql":
		dialect = sqldb.DialectMySQL
	default:
		return nil, nil, fmt.Errorf("unsupported journal driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open journal database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("ping journal database: %w", err)
	}

	store := sqldb.NewWithConfig(db, sqldb.Config{
		Table:   viper.GetString("journal.table"),
		Dialect: dialect,
	})
	return store, func() {
		store.Close()
		db.Close()
	}, nil
}
