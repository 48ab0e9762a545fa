package main

import (
	"bufio"
	"context"
	_ "embed"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ghalamif/sensorlog"
	"github.com/ghalamif/sensorlog/internal/logging"
)

//go:embed assets/banner_color.ansi
var bannerColor string

//go:embed assets/banner_plain.txt
var bannerPlain string

func main() {
	fmt.Fprint(os.Stderr, selectBanner())
	fmt.Fprintln(os.Stderr)

	cmd := "run"
	args := os.Args[1:]
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}

	var err error
	switch cmd {
	case "run":
		err = runCommand(args)
	case "validate":
		err = validateCommand(args)
	case "ports":
		err = portsCommand()
	case "stats":
		err = statsCommand(args)
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		printUsage()
		err = fmt.Errorf("unknown command %q", cmd)
	}

	if err != nil {
		log.Fatalf("sensorlog %s: %v", cmd, err)
	}
}

func runCommand(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Path to configuration file (defaults apply when empty)")
	port := fs.String("port", "", "Serial device, e.g. /dev/ttyUSB0 or COM6")
	baud := fs.Int("baud", 0, "Baud rate; must match the device firmware")
	outDir := fs.String("out", "", "Directory for the session CSV file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if *port != "" {
		cfg.Serial.Port = *port
	}
	if *baud != 0 {
		cfg.Serial.BaudRate = *baud
	}
	if *outDir != "" {
		cfg.Output.Dir = *outDir
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logging.Init(cfg.Log.Format, logging.ParseLevel(cfg.Log.Level))

	sess, err := sensorlog.NewSession(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return sess.Run(ctx)
}

func validateCommand(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	cfgPath := fs.String("config", "./sensorlog.yaml", "Path to configuration file to validate")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if _, err := sensorlog.LoadConfig(*cfgPath); err != nil {
		return err
	}
	fmt.Printf("config %s looks good\n", *cfgPath)
	return nil
}

func portsCommand() error {
	names, err := sensorlog.ListPorts()
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Println("no serial ports found")
		return nil
	}
	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}

func loadConfig(path string) (*sensorlog.Config, error) {
	if path == "" {
		return sensorlog.DefaultConfig(), nil
	}
	return sensorlog.LoadConfig(path)
}

func selectBanner() string {
	if os.Getenv("NO_COLOR") != "" {
		return bannerPlain
	}
	return bannerColor
}

func statsCommand(args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	url := fs.String("url", "http://localhost:9100/metrics", "Prometheus metrics endpoint")
	interval := fs.Duration("interval", 2*time.Second, "Refresh interval")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	fmt.Printf("Streaming metrics from %s (Ctrl+C to stop)\n", *url)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := printMetricsSnapshot(*url); err != nil {
				fmt.Fprintf(os.Stderr, "stats error: %v\n", err)
			}
		}
	}
}

var statsTargets = []string{
	"sensorlog_records_written_total",
	"sensorlog_read_timeouts_total",
	"sensorlog_decode_errors_total",
	"sensorlog_output_bytes",
}

func printMetricsSnapshot(url string) error {
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	targets := make(map[string]float64, len(statsTargets))
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "#") {
			continue
		}
		for _, key := range statsTargets {
			if strings.HasPrefix(line, key+" ") {
				var value float64
				if _, err := fmt.Sscanf(line, key+" %f", &value); err == nil {
					targets[key] = value
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	fmt.Printf("[%s] records=%.0f timeouts=%.0f decode_errors=%.0f bytes=%.0f\n",
		time.Now().Format(time.RFC3339),
		targets["sensorlog_records_written_total"],
		targets["sensorlog_read_timeouts_total"],
		targets["sensorlog_decode_errors_total"],
		targets["sensorlog_output_bytes"],
	)
	return nil
}

func printUsage() {
	fmt.Printf(`sensorlog CLI

Usage:
  sensorlog [command] [flags]

Commands:
  run        Log serial lines to a timestamped CSV file until Ctrl+C (default)
  validate   Load and validate a config file without opening the device
  ports      List serial ports visible to the OS
  stats      Poll the Prometheus metrics endpoint and print live counters

Examples:
  sensorlog run -port /dev/ttyUSB0 -baud 9600
  sensorlog run -config ./sensorlog.yaml -out ./captures
  sensorlog validate -config ./sensorlog.yaml
  sensorlog stats -url http://localhost:9100/metrics -interval 1s
`)
}
