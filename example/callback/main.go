package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ghalamif/sensorlog"
)

func main() {
	cfg, err := sensorlog.LoadConfig("../../data/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	callback := func(r sensorlog.Record) error {
		fmt.Printf("seq=%d at=%s fields=%s\n", r.Seq, r.Clock(), strings.Join(r.Fields, "|"))
		return nil
	}

	sess, err := sensorlog.NewSession(cfg, sensorlog.WithMirror(sensorlog.NewCallbackSink("stdout", callback)))
	if err != nil {
		log.Fatalf("build session: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := sess.Run(ctx); err != nil {
		log.Fatalf("logger exited: %v", err)
	}
}
