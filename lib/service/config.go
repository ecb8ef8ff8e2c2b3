package service

import (
	"github.com/shopspring/decimal"
)

type Config struct {
	DatabaseUri             string          `envconfig:"DATABASE_URI" required:"true"`
	DatabaseMaxConns        int             `envconfig:"DATABASE_MAX_CONNS" default:"10"`
	DatabaseMaxIdleConns    int             `envconfig:"DATABASE_MAX_IDLE_CONNS" default:"5"`
	DatabaseConnMaxLifetime int             `envconfig:"DATABASE_CONN_MAX_LIFETIME" default:"1800"` // 30 minutes
	DatabaseTimeout         int             `envconfig:"DATABASE_TIMEOUT" default:"60"`             // 60 seconds
	SentryDSN               string          `envconfig:"SENTRY_DSN"`
	DatadogAgentUrl         string          `envconfig:"DATADOG_AGENT_URL"`
	SentryTracesSampleRate  float64         `envconfig:"SENTRY_TRACES_SAMPLE_RATE"`
	LogFilePath             string          `envconfig:"LOG_FILE_PATH"`
	JWTSecret               []byte          `envconfig:"JWT_SECRET" required:"true"`
	Host                    string          `envconfig:"HOST" default:"localhost:3000"`
	Port                    int             `envconfig:"PORT" default:"3000"`
	DefaultRateLimit        int             `envconfig:"DEFAULT_RATE_LIMIT" default:"10"`
	StrictRateLimit         int             `envconfig:"STRICT_RATE_LIMIT" default:"10"`
	BurstRateLimit          int             `envconfig:"BURST_RATE_LIMIT" default:"1"`
	EnablePrometheus        bool            `envconfig:"ENABLE_PROMETHEUS" default:"false"`
	PrometheusPort          int             `envconfig:"PROMETHEUS_PORT" default:"9092"`
	RabbitMQUri             string          `envconfig:"RABBITMQ_URI"`
	RabbitMQEventsExchange  string          `envconfig:"RABBITMQ_EVENTS_EXCHANGE" default:"gestiohub_events"`
	ImportMaxRows           int             `envconfig:"IMPORT_MAX_ROWS" default:"5000"`
	ImportMaxBody           string          `envconfig:"IMPORT_MAX_BODY" default:"2M"`
	ImportPreviewTTL        int             `envconfig:"IMPORT_PREVIEW_TTL" default:"600"` // in seconds
	MatchDateWindowDays     int             `envconfig:"MATCH_DATE_WINDOW_DAYS" default:"3"`
	MatchTolerance          decimal.Decimal `envconfig:"MATCH_TOLERANCE" default:"0.01"`
	NumberingMaxRetries     uint64          `envconfig:"NUMBERING_MAX_RETRIES" default:"5"`
}
