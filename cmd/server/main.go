/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/tomoncle/memberquery"
	"github.com/tomoncle/memberquery/api"
	"github.com/tomoncle/memberquery/config"
	"github.com/tomoncle/memberquery/database"
	"github.com/tomoncle/memberquery/utils"
)

func main() {
	configPath := flag.String("config", utils.EnvDefaultString("MEMBERQUERY_CONFIG", "configs/config.yaml"), "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.WithError(err).Fatal("failed to load configuration")
	}

	utils.ConfigureConsole(cfg.Log.Level, cfg.Log.Format)
	utils.ConfigureFileLog(cfg.Log.FileEnabled, cfg.Log.FileDir, cfg.Log.FileLevel, cfg.Log.FileFormat, cfg.Log.MaxAgeDays)
	logger := utils.NewLogger("SERVER")

	ctx := context.Background()
	if _, err := database.InitDB(ctx, &cfg.Database); err != nil {
		logger.WithError(err).Fatal("failed to initialize database")
	}
	defer func() {
		if err := database.CloseDB(); err != nil {
			logger.WithError(err).Warn("failed to close database")
		}
	}()

	members := memberquery.NewMemberService()
	if cfg.IsLocal() {
		if err := members.InitLocalData(ctx); err != nil {
			logger.WithError(err).Error("failed to load local data")
			return
		}
	}

	srv := &http.Server{
		Addr: cfg.Server.Addr,
		Handler: api.NewRouter(api.RouterDeps{
			Members: members,
			Health:  database.GetHealthStatus,
			Version: cfg.Version,
			Logger:  utils.NewLogger("HTTP"),
		}),
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.WithFields(logrus.Fields{
			"addr":    cfg.Server.Addr,
			"profile": cfg.Profile,
			"version": cfg.Version,
		}).Info("starting member query server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.WithField("signal", sig.String()).Info("shutting down server")
	case err := <-serverErr:
		logger.WithError(err).Error("server error")
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("server forced to shutdown")
		return
	}
	logger.Info("server stopped gracefully")
}
