package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/gestiopro/gestiohub.go/db"
	"github.com/gestiopro/gestiohub.go/db/migrations"
	"github.com/gestiopro/gestiohub.go/lib/logging"
	"github.com/gestiopro/gestiohub.go/lib/service"
	"github.com/gestiopro/gestiohub.go/rabbitmq"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun/migrate"
)

var (
	entrepriseID int64
	svc          *service.GestiohubService
	closers      []func() error
)

var rootCmd = &cobra.Command{
	Use:   "gestiohub",
	Short: "Bank reconciliation and document numbering from the command line",
	Long: `gestiohub runs the reconciliation and numbering operations of the server
against the database configured by DATABASE_URI, e.g. to import a statement
from a cron job or to inspect the reconciliation of an entreprise.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		svc, err = bootstrap(cmd.Context())
		return err
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		for _, closeFn := range closers {
			if err := closeFn(); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().Int64VarP(&entrepriseID, "entreprise", "e", 0, "id of the entreprise to work on")
}

// bootstrap loads the configuration, opens and migrates the database the
// same way the server does.
func bootstrap(ctx context.Context) (*service.GestiohubService, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	c := &service.Config{}
	if err := godotenv.Load(".env"); err != nil {
		fmt.Fprintln(os.Stderr, "Failed to load .env file")
	}
	if err := envconfig.Process("", c); err != nil {
		return nil, fmt.Errorf("loading environment variables: %w", err)
	}
	logger := logging.Logger(c.LogFilePath)

	dbConn, err := db.Open(c)
	if err != nil {
		return nil, fmt.Errorf("initializing db connection: %w", err)
	}
	closers = append(closers, dbConn.Close)

	migrator := migrate.NewMigrator(dbConn, migrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		return nil, fmt.Errorf("initializing db migrator: %w", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	s := service.NewGestiohubService(c, dbConn, logger)
	if c.RabbitMQUri != "" {
		client, err := rabbitmq.Dial(c.RabbitMQUri,
			rabbitmq.WithLogger(logger),
			rabbitmq.WithEventsExchange(c.RabbitMQEventsExchange),
		)
		if err != nil {
			return nil, err
		}
		// run before the db is closed
		closers = append([]func() error{client.Close}, closers...)
		s.Events = client
	}
	return s, nil
}

func requireEntreprise() error {
	if entrepriseID <= 0 {
		return fmt.Errorf("--entreprise is required")
	}
	return nil
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
