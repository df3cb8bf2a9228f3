/*
Copyright 2024 Csveer Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/caddyserver/certmagic"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/csveer/csveer/api"
	"github.com/csveer/csveer/config"
	"github.com/csveer/csveer/internal/traces"
)

const certStoragePath = "./certmagic"

// serveTLS serves the API over HTTPS with certificates managed by CertMagic. Without
// a configured domain the certificate is issued for localhost.
func serveTLS(r *gin.Engine, conf config.ServerConfig) error {
	certmagic.DefaultACME.Agreed = true
	certmagic.DefaultACME.Email = conf.Email
	cfg := certmagic.NewDefault()
	cfg.Storage = &certmagic.FileStorage{Path: certStoragePath}

	domains := []string{conf.Domain}
	if conf.Domain == "" {
		logrus.Warn("No domain specified, defaulting to localhost")
		domains = []string{"localhost"}
	}

	if err := cfg.ManageSync(context.Background(), domains); err != nil {
		return err
	}

	server := &http.Server{
		Addr:      ":" + conf.Port,
		Handler:   r,
		TLSConfig: cfg.TLSConfig(),
	}

	logrus.Infof("Starting HTTPS server on %s", conf.Port)
	if err := server.ListenAndServeTLS("", ""); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func startServer(router *gin.Engine, cfg config.ServerConfig) error {
	if cfg.SSL {
		return serveTLS(router, cfg)
	}
	logrus.Infof("Starting server on http://localhost:%s", cfg.Port)
	return router.Run(":" + cfg.Port)
}

// initializeTracing exports spans only when telemetry is enabled; the returned
// shutdown is always safe to call.
func initializeTracing(ctx context.Context, cfg *config.Configuration, service string) (traces.ShutdownFunc, error) {
	if err := config.SetOtlpExporterEnvs(); err != nil {
		return nil, err
	}
	shutdown, err := traces.SetupTracing(ctx, service, cfg.EnableTelemetry)
	if err != nil {
		return nil, fmt.Errorf("error setting up OTel SDK: %v", err)
	}
	return shutdown, nil
}

func serverCommands(app *csveerInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:         "start",
		Short:       "start the csveer API server",
		Annotations: map[string]string{"service": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			shutdown, err := initializeTracing(ctx, app.cnf, "csveer-api")
			if err != nil {
				return err
			}
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logrus.Errorf("Error during tracer shutdown: %v", err)
				}
			}()

			router := api.NewAPI(app.csveer).Router()
			return startServer(router, app.cnf.Server)
		},
	}

	return cmd
}
