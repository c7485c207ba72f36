package main

import (
	"fmt"
	"os"

	"relief-ledger/internal/config"
	"relief-ledger/internal/database"
	"relief-ledger/internal/handlers"
	"relief-ledger/internal/ledger"
	"relief-ledger/internal/logger"
	"relief-ledger/internal/server"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	l := logger.New(cfg.AppEnv)
	log.Logger = l

	db, err := database.Open(cfg.DBDSN, cfg.DBLog, l)
	if err != nil {
		l.Fatal().Err(err).Msg("database init failed")
	}
	if err := database.SeedSuperAdmin(db, cfg.AdminEmail, cfg.AdminPassword, l); err != nil {
		l.Fatal().Err(err).Msg("seed failed")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	audit := database.NewAuditRecorder()
	engine := ledger.NewEngine(db, audit, l,
		ledger.WithMetrics(ledger.NewMetrics(reg)),
		ledger.WithLockTimeout(cfg.LockTimeout),
	)

	r := server.NewRouter(cfg, handlers.NewApp(db, engine, audit, l), reg)

	addr := fmt.Sprintf(":%s", cfg.ServerPort)
	l.Info().Str("addr", addr).Msg("starting server")
	if err := r.Run(addr); err != nil {
		l.Fatal().Err(err).Msg("server error")
	}
}
