// Command mavrouter routes and filters MAVLink traffic between UDP and
// serial transports according to a configuration file.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mavrouter/internal/config"
	"mavrouter/internal/logger"
	"mavrouter/internal/router"
	"mavrouter/internal/statusserver"
)

const version = "0.1.0"

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configPath = flag.String("config", "", "path to the mavrouter configuration file")
		logLevel   = flag.String("log", "info", "log level: debug, info, warn, error")
		verbosity  = flag.Int("v", 0, "numeric log verbosity threshold (AddressPool/ConnectionPool diagnostics)")
		statusAddr = flag.String("status-addr", "", "address to serve /healthz, /metrics, /status on (empty disables it)")
		astDump    = flag.Bool("ast", false, "parse the configuration, print its AST as YAML, and exit")
		showVer    = flag.Bool("version", false, "print the version and exit")
	)
	flag.Parse()

	if *showVer {
		fmt.Println("mavrouter", version)
		return 0
	}

	logger.SetLevel(logger.ParseLevel(*logLevel))
	logger.SetVerbosity(*verbosity)

	path := *configPath
	if path == "" {
		path = os.Getenv("MAVROUTER_CONFIG_PATH")
	}
	if path == "" {
		path = "mavrouter.conf"
	}

	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "mavrouter:", err)
		return 2
	}

	if *astDump {
		out, err := config.DumpAST(cfg)
		if err != nil {
			fmt.Fprintln(os.Stderr, "mavrouter:", err)
			return 2
		}
		fmt.Print(out)
		return 0
	}

	if *statusAddr != "" && cfg.StatusAddr == "" {
		cfg.StatusAddr = *statusAddr
	}

	r, err := router.New(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "mavrouter:", err)
		return 3
	}
	r.Start()

	var status *statusserver.Server
	if cfg.StatusAddr != "" {
		status = statusserver.New(cfg.StatusAddr, r.Status)
		status.Start()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	logger.Infof("shutting down on %s", sig)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if status != nil {
		_ = status.Shutdown(ctx)
	}
	r.Stop(ctx)

	if sig == syscall.SIGINT {
		return 130
	}
	return 0
}
