package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/ghalamif/sensorlog"
)

func main() {
	cfg, err := sensorlog.LoadConfig("../../data/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	mirror, records, closeRecords := sensorlog.NewChannelSink("fanout", 32)
	defer closeRecords()

	go fanoutWorker("forward", records)

	sess, err := sensorlog.NewSession(cfg, sensorlog.WithMirror(mirror))
	if err != nil {
		log.Fatalf("build session: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := sess.Run(ctx); err != nil {
		log.Fatalf("logger exited: %v", err)
	}
}

func fanoutWorker(name string, records <-chan sensorlog.Record) {
	for r := range records {
		fmt.Printf("[%s] seq=%d with %d fields at %s\n", name, r.Seq, len(r.Fields), r.Timestamp.Format(time.RFC3339))
	}
}
