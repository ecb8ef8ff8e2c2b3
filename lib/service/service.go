package service

import (
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
	"github.com/ziflex/lecho/v3"
)

const (
	defaultMatchWindowDays = 3
	defaultNumberingRetry  = 5
	defaultPreviewTTL      = 10 * time.Minute
)

var defaultMatchTolerance = decimal.New(1, -2)

type GestiohubService struct {
	Config   *Config
	DB       *bun.DB
	Logger   *lecho.Logger
	Events   EventPublisher
	Previews *cache.Cache
	// Now is the clock used for numbering resets, payments and overdue computations.
	Now func() time.Time
}

func NewGestiohubService(config *Config, db *bun.DB, logger *lecho.Logger) *GestiohubService {
	ttl := defaultPreviewTTL
	if config.ImportPreviewTTL > 0 {
		ttl = time.Duration(config.ImportPreviewTTL) * time.Second
	}
	return &GestiohubService{
		Config:   config,
		DB:       db,
		Logger:   logger,
		Previews: cache.New(ttl, 2*ttl),
		Now:      time.Now,
	}
}

func (svc *GestiohubService) now() time.Time {
	if svc.Now == nil {
		return time.Now().UTC()
	}
	return svc.Now().UTC()
}

func (svc *GestiohubService) matchTolerance() decimal.Decimal {
	if svc.Config == nil || !svc.Config.MatchTolerance.IsPositive() {
		return defaultMatchTolerance
	}
	return svc.Config.MatchTolerance
}

func (svc *GestiohubService) matchWindow() time.Duration {
	days := defaultMatchWindowDays
	if svc.Config != nil && svc.Config.MatchDateWindowDays > 0 {
		days = svc.Config.MatchDateWindowDays
	}
	return time.Duration(days) * 24 * time.Hour
}

func (svc *GestiohubService) numberingRetries() uint64 {
	if svc.Config == nil || svc.Config.NumberingMaxRetries == 0 {
		return defaultNumberingRetry
	}
	return svc.Config.NumberingMaxRetries
}

func (svc *GestiohubService) importMaxRows() int {
	if svc.Config == nil {
		return 0
	}
	return svc.Config.ImportMaxRows
}
