/*
 * Copyright (c) 2019 OysterPack, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Command healthcheckd demonstrates wiring pkg/health by hand: config via
// envconfig, structured logging, a couple of representative checks, and an
// HTTP probe surface, brought down on SIGINT/SIGTERM with a bounded shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"

	"github.com/storebrand/healthcheck/examples/httpprobe"
	"github.com/storebrand/healthcheck/pkg/health"
	"github.com/storebrand/healthcheck/pkg/healthinfo"
)

// config is the process's ambient configuration, populated from environment
// variables prefixed HEALTHCHECKD_ (e.g. HEALTHCHECKD_HTTP_ADDR).
type config struct {
	LogLevel      string `envconfig:"log_level" default:"info"`
	HTTPAddr      string `envconfig:"http_addr" default:":8080"`
	ServiceName   string `envconfig:"service_name" default:"healthcheckd"`
	ServiceVersion string `envconfig:"service_version" default:"0.0.0-dev"`
}

func main() {
	var cfg config
	if err := envconfig.Process("healthcheckd", &cfg); err != nil {
		panic(err)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()

	serviceInfo := healthinfo.New(
		healthinfo.Project{Name: cfg.ServiceName, Version: cfg.ServiceVersion},
		nil,
	)

	registry := health.NewRegistry(serviceInfo, logger, health.SystemClock)
	registerDemoChecks(registry, logger)

	if err := registry.StartHealthChecks(); err != nil {
		logger.Fatal().Err(err).Msg("failed to start health checks")
	}

	unsubscribe := registry.SubscribeToStatusChanges(func(report health.HealthCheckDTO) {
		logger.Info().
			Str("check", report.Name).
			Bool("ok", !report.RunStatus.Crashed && !report.RunStatus.Slow).
			Msg("health check status changed")
	})
	defer unsubscribe.Unsubscribe()

	mux := httpprobe.NewMux(registry)
	server := &http.Server{Addr: cfg.HTTPAddr, Handler: mux}

	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("serving health probes")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server failed")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("http server shutdown did not complete cleanly")
	}
	registry.Shutdown()
}

func registerDemoChecks(registry *health.Registry, logger zerolog.Logger) {
	err := registry.RegisterCheck(health.CheckMetadata{
		Name:                            "database-connection-pool",
		Description:                     "verifies the database connection pool can serve a connection",
		IntervalInSeconds:               30,
		IntervalWhenNotOkInSeconds:      5,
		ExpectedMaximumRunTimeInSeconds: 2,
	}, func(spec *health.CheckSpecification) {
		spec.Check(
			health.Teams(health.Operations),
			[]health.Axis{health.NotReady, health.DegradedComplete, health.External},
			func(ctx *health.CheckContext) *health.CheckResultBuilder {
				return ctx.OK("connection pool has available connections")
			},
		)
	})
	if err != nil {
		logger.Error().Err(err).Msg("failed to register database-connection-pool check")
	}

	err = registry.RegisterCheck(health.CheckMetadata{
		Name:               "disk-space",
		Description:        "verifies free disk space on the data volume",
		IntervalInSeconds:  300,
	}, func(spec *health.CheckSpecification) {
		spec.Check(
			health.Teams(health.Operations),
			[]health.Axis{health.DegradedMinor, health.ManualInterventionRequired},
			func(ctx *health.CheckContext) *health.CheckResultBuilder {
				return ctx.OK("disk usage is within normal bounds")
			},
		)
	})
	if err != nil {
		logger.Error().Err(err).Msg("failed to register disk-space check")
	}
}
