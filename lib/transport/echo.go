package transport

import (
	"fmt"
	"strconv"

	"github.com/gestiopro/gestiohub.go/lib"
	"github.com/gestiopro/gestiohub.go/lib/responses"
	"github.com/gestiopro/gestiohub.go/lib/service"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo-contrib/prometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/ziflex/lecho/v3"
	"golang.org/x/time/rate"
)

func InitEcho(c *service.Config, logger *lecho.Logger) (e *echo.Echo) {

	// New Echo app
	e = echo.New()
	e.HideBanner = true

	e.HTTPErrorHandler = responses.HTTPErrorHandler
	e.Validator = &lib.CustomValidator{Validator: validator.New()}

	e.Use(middleware.Recover())
	// CSV statements are the largest bodies we accept
	bodyLimit := c.ImportMaxBody
	if bodyLimit == "" {
		bodyLimit = "2M"
	}
	e.Use(middleware.BodyLimit(bodyLimit))
	if c.DefaultRateLimit > 0 {
		// set the default rate limit defining the overall max requests/second
		e.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rate.Limit(c.DefaultRateLimit))))
	}

	e.Logger = logger
	e.Use(middleware.RequestID())

	// sentry init needs to happen before the echo middlewares are added
	if c.SentryDSN != "" {
		e.Use(sentryecho.New(sentryecho.Options{}))
	}
	return e
}

func CreateLoggingMiddleware(logger *lecho.Logger) echo.MiddlewareFunc {
	return lecho.Middleware(lecho.Config{
		Logger: logger,
		Enricher: func(c echo.Context, logger zerolog.Context) zerolog.Context {
			return logger.Interface("EntrepriseID", c.Get("EntrepriseID"))
		},
	})
}

// CreateRateLimitMiddleware limits per entreprise once authenticated, per IP otherwise.
func CreateRateLimitMiddleware(requestsPerSecond int, burst int) echo.MiddlewareFunc {
	config := middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{Rate: rate.Limit(requestsPerSecond), Burst: burst},
		),
		IdentifierExtractor: func(ctx echo.Context) (string, error) {
			id := ctx.RealIP()
			if entrepriseID, ok := ctx.Get("EntrepriseID").(int64); ok {
				id = strconv.FormatInt(entrepriseID, 10)
			}
			return id, nil
		},
	}

	return middleware.RateLimiterWithConfig(config)
}

func StartPrometheusEcho(logger *lecho.Logger, svc *service.GestiohubService, e *echo.Echo) *echo.Echo {
	// Create Prometheus server and Middleware
	echoPrometheus := echo.New()
	echoPrometheus.HideBanner = true
	prom := prometheus.NewPrometheus("echo", nil)
	// Scrape metrics from Main Server
	e.Use(prom.HandlerFunc)
	// Setup metrics endpoint at another server
	prom.SetMetricsPath(echoPrometheus)
	echoPrometheus.Logger = logger
	go func() {
		echoPrometheus.Logger.Infof("Starting prometheus on port %d", svc.Config.PrometheusPort)
		echoPrometheus.Logger.Error(echoPrometheus.Start(fmt.Sprintf(":%d", svc.Config.PrometheusPort)))
	}()
	return echoPrometheus
}
