package main

import (
	"github.com/smallbiznis/billingpulse/internal/billingreport"
	"github.com/smallbiznis/billingpulse/internal/clock"
	"github.com/smallbiznis/billingpulse/internal/config"
	"github.com/smallbiznis/billingpulse/internal/idempotency"
	"github.com/smallbiznis/billingpulse/internal/observability"
	"github.com/smallbiznis/billingpulse/internal/provider"
	"github.com/smallbiznis/billingpulse/internal/server"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		clock.Module,

		// Billing
		provider.Module,
		billingreport.Module,
		idempotency.Module,

		server.Module,
	)
	app.Run()
}
