package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/ghalamif/sensorlog"
)

func main() {
	cfg, err := sensorlog.LoadConfig("../../data/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	sess, err := sensorlog.NewSession(cfg)
	if err != nil {
		log.Fatalf("build session: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := sess.Run(ctx); err != nil {
		log.Fatalf("logger exited: %v", err)
	}
}
