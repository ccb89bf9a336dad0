package handler

import (
	"time"

	"go.opentelemetry.io/otel/metric"

	"roomtoken/internal/app/token"
	"roomtoken/internal/configs"
	"roomtoken/internal/pkg/limiter"
	"roomtoken/internal/pkg/pow"
)

// AppDeps carries everything the HTTP layer needs. Limiter, PoW and MeterProvider are
// optional and switch their middleware off when nil.
type AppDeps struct {
	Config *configs.AppConfig
	Tokens token.Service

	TokenLimiter  *limiter.IPRateLimiter
	PoW           *pow.Manager
	MeterProvider metric.MeterProvider

	// Now is used for health timestamps. Defaults to time.Now.
	Now func() time.Time
}

func (d *AppDeps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}
