package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/term"

	"git.sr.ht/~taiite/tmi"
	"git.sr.ht/~taiite/tmi/irc"
)

var (
	configPath  string
	metricsAddr string
	channels    string
	debug       bool
)

func main() {
	parseFlags()

	// .env is optional.
	_ = godotenv.Load()

	opts, err := loadOptions()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load the configuration: %s\n", err)
		os.Exit(1)
	}

	if err := opts.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %s\n", err)
		os.Exit(1)
	}

	oldState, err := term.MakeRaw(0)
	if err != nil {
		panic(err)
	}
	defer term.Restore(0, oldState)

	screen := struct {
		io.Reader
		io.Writer
	}{os.Stdin, os.Stdout}
	t := term.NewTerminal(screen, "> ")

	// stderr would garble the prompt while the terminal is raw.
	logger := newLogger(t, opts.Debug)
	defer logger.Sync()

	shutdown, err := initTracing(logger)
	if err != nil {
		logger.Warn("tracing disabled", zap.Error(err))
	} else {
		defer shutdown()
	}

	reg := prometheus.NewRegistry()
	if metricsAddr != "" {
		go serveMetrics(logger, reg)
	}

	opts.Logger = logger
	opts.Registerer = reg
	if opts.ClientID != "" && opts.Identity.Password != "" {
		opts.EmoteSets = &tmi.HelixEmoteSets{
			ClientID: opts.ClientID,
			Token:    opts.Identity.Password,
		}
	}

	cli, err := tmi.NewClient(opts)
	if err != nil {
		fmt.Fprintf(t, "invalid configuration: %s\n", err)
		return
	}
	defer cli.Close()

	fmt.Fprintf(t, "Connecting to %s...\n", opts.Server)

	a := &app{
		cli: cli,
		t:   t,
	}
	if len(opts.Channels) != 0 {
		a.current = irc.Channel(opts.Channels[0])
	}

	go func() {
		if addr, port, err := cli.Connect(context.Background()); err != nil {
			fmt.Fprintf(t, "Failed to connect to %s:%d: %v\n", addr, port, err)
		}
	}()

	go func() {
		for {
			line, err := t.ReadLine()
			if err != nil {
				break
			}
			if err := a.handleInput(line); err != nil {
				if errors.Is(err, errQuit) {
					break
				}
				fmt.Fprintf(t, "error: %v\n", err)
			}
		}
		cli.Close()
	}()

	for ev := range cli.Events() {
		a.handleEvent(ev)
	}
	t.SetPrompt("")
	fmt.Fprintln(t, "Disconnected")
}

func parseFlags() {
	flag.StringVar(&configPath, "config", "", "path to the configuration file")
	flag.StringVar(&metricsAddr, "metrics", "", "address on which to serve prometheus metrics")
	flag.StringVar(&channels, "channels", "", "comma-separated list of channels to join")
	flag.BoolVar(&debug, "debug", false, "show raw protocol data")
	flag.Parse()
}

// loadOptions reads the configuration file, then overrides it with the
// environment and the command line.
func loadOptions() (opts tmi.Options, err error) {
	if configPath == "" {
		configDir, err := os.UserConfigDir()
		if err != nil {
			return opts, err
		}
		configPath = path.Join(configDir, "tmi", "tmi.scfg")
		if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
			configPath = ""
		}
	}

	if configPath != "" {
		opts, err = tmi.LoadConfigFile(configPath)
		if err != nil {
			return
		}
	} else {
		opts = tmi.DefaultOptions()
	}

	if v := os.Getenv("TMI_USERNAME"); v != "" {
		opts.Identity.Username = v
	}
	if v := os.Getenv("TMI_PASSWORD"); v != "" {
		opts.Identity.Password = v
	}
	if v := os.Getenv("TWITCH_CLIENT_ID"); v != "" {
		opts.ClientID = v
	}
	if channels != "" {
		opts.Channels = nil
		for _, ch := range strings.Split(channels, ",") {
			if ch = strings.TrimSpace(ch); ch != "" {
				opts.Channels = append(opts.Channels, ch)
			}
		}
	}
	opts.Debug = opts.Debug || debug
	return
}

func serveMetrics(logger *zap.Logger, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	logger.Info("serving metrics", zap.String("addr", metricsAddr))
	if err := http.ListenAndServe(metricsAddr, mux); err != nil {
		logger.Error("metrics server stopped", zap.Error(err))
	}
}
