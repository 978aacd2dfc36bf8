package main

import (
	"context"
	"os"

	"campusride/config"
	"campusride/pkg/logger"
	"campusride/storage/postgres"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.ServiceName, cfg.LoggerLevel)
	ctx := context.Background()

	pg, err := postgres.New(ctx, cfg, log)
	if err != nil {
		log.Error("failed to connect to postgres", logger.Error(err))
		os.Exit(1)
	}
	defer pg.Close()

	// Accounts and everything hanging off them go; the schema stays.
	_, err = pg.GetPool().Exec(ctx, "TRUNCATE TABLE messages, rides, driver_applications, users RESTART IDENTITY CASCADE")
	if err != nil {
		log.Error("failed to truncate tables", logger.Error(err))
		os.Exit(1)
	}

	counts, err := pg.Stats().TableCounts(ctx)
	if err != nil {
		log.Error("failed to count rows", logger.Error(err))
		os.Exit(1)
	}
	for table, n := range counts {
		log.Info("table reset", logger.String("table", table), logger.Int("rows", n))
	}
}
