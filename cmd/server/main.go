package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/gestiopro/gestiohub.go/db"
	"github.com/gestiopro/gestiohub.go/db/migrations"
	"github.com/gestiopro/gestiohub.go/lib/logging"
	"github.com/gestiopro/gestiohub.go/lib/service"
	"github.com/gestiopro/gestiohub.go/lib/tokens"
	"github.com/gestiopro/gestiohub.go/lib/transport"
	"github.com/gestiopro/gestiohub.go/rabbitmq"
	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun/migrate"
	ddEcho "gopkg.in/DataDog/dd-trace-go.v1/contrib/labstack/echo.v4"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
)

// @title        GestioHub.go
// @version      0.1.0
// @description  Bank reconciliation and document numbering for small businesses.

// @BasePath  /

// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {

	c := &service.Config{}

	// Load configuration from environment variables
	err := godotenv.Load(".env")
	if err != nil {
		fmt.Println("Failed to load .env file")
	}
	err = envconfig.Process("", c)
	if err != nil {
		log.Fatalf("Error loading environment variables: %v", err)
	}

	// Setup logging to STDOUT or a configured log file
	logger := logging.Logger(c.LogFilePath)

	// Open a DB connection based on the configured DATABASE_URI
	dbConn, err := db.Open(c)
	if err != nil {
		logger.Fatalf("Error initializing db connection: %v", err)
	}

	// Migrate the DB
	startupCtx, cancelStartup := context.WithTimeout(context.Background(), time.Duration(c.DatabaseTimeout)*time.Second)
	defer cancelStartup()
	migrator := migrate.NewMigrator(dbConn, migrations.Migrations)
	err = migrator.Init(startupCtx)
	if err != nil {
		logger.Fatalf("Error initializing db migrator: %v", err)
	}
	group, err := migrator.Migrate(startupCtx)
	if err != nil {
		logger.Fatalf("Error migrating database: %v", err)
	}
	if !group.IsZero() {
		logger.Infof("Database migrated to %s", group)
	}

	// Setup exception tracking with Sentry if configured
	// sentry init needs to happen before the echo middlewares are added
	if c.SentryDSN != "" {
		if err = sentry.Init(sentry.ClientOptions{
			Dsn:              c.SentryDSN,
			IgnoreErrors:     []string{"401"},
			EnableTracing:    c.SentryTracesSampleRate > 0,
			TracesSampleRate: c.SentryTracesSampleRate,
		}); err != nil {
			logger.Errorf("sentry init error: %v", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	svc := service.NewGestiohubService(c, dbConn, logger)

	// If no RABBITMQ_URI was provided we will not attempt to create a client
	// and domain events are dropped.
	if c.RabbitMQUri != "" {
		rabbitmqClient, err := rabbitmq.Dial(c.RabbitMQUri,
			rabbitmq.WithLogger(logger),
			rabbitmq.WithEventsExchange(c.RabbitMQEventsExchange),
		)
		if err != nil {
			logger.Fatal(err)
		}
		// close the connection gently at the end of the runtime
		defer rabbitmqClient.Close()
		svc.Events = rabbitmqClient
	}

	//init echo server
	e := transport.InitEcho(c, logger)
	//if Datadog is configured, add datadog middleware
	if c.DatadogAgentUrl != "" {
		tracer.Start(tracer.WithAgentAddr(c.DatadogAgentUrl))
		defer tracer.Stop()
		e.Use(ddEcho.Middleware(ddEcho.WithServiceName("gestiohub.go")))
	}

	//Start Prometheus server if necessary
	var echoPrometheus *echo.Echo
	if c.EnablePrometheus {
		echoPrometheus = transport.StartPrometheusEcho(logger, svc, e)
	}

	logMw := transport.CreateLoggingMiddleware(logger)
	// strict rate limit for statement imports
	strictRateLimitMiddleware := transport.CreateRateLimitMiddleware(c.StrictRateLimit, c.BurstRateLimit)

	secured := e.Group("", tokens.Middleware(c.JWTSecret), logMw)
	securedWithStrictRateLimit := e.Group("", tokens.Middleware(c.JWTSecret), strictRateLimitMiddleware, logMw)

	transport.RegisterV2Endpoints(svc, e, secured, securedWithStrictRateLimit)

	backGroundCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// Start server
	go func() {
		if err := e.Start(fmt.Sprintf(":%v", c.Port)); err != nil && err != http.ErrServerClosed {
			e.Logger.Fatal("shutting down the server")
		}
	}()

	<-backGroundCtx.Done()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		e.Logger.Fatal(err)
	}
	if echoPrometheus != nil {
		if err := echoPrometheus.Shutdown(ctx); err != nil {
			e.Logger.Fatal(err)
		}
	}
	logger.Info("GestioHub exiting gracefully. Goodbye.")
}
