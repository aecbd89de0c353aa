package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/aretw0/govmeta"
	"github.com/aretw0/govmeta/internal/platform"
)

var (
	verbose    bool
	configPath string
	timeout    time.Duration
	gateway    string
	cacheMode  string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "govmeta",
	Short: "Resolve, normalize and project governance metadata documents",
	Long: `govmeta reads JSON-LD style governance metadata (CIP-100, CIP-108 and
friends), resolves the vocabulary its context declares and prints the result
as normalized nodes or typed documents.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}

		opts := &slog.HandlerOptions{
			Level: level,
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, opts))
		slog.SetDefault(logger)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a govmeta.yaml file (default: searched upwards from the working directory)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "Timeout of each HTTP request")
	rootCmd.PersistentFlags().StringVar(&gateway, "gateway", "", "HTTP gateway for ipfs:// locations")
	rootCmd.PersistentFlags().StringVar(&cacheMode, "cache", "", "Context cache backend: memory, redis or none")
}

// engineOptions merges the configuration file with the command line flags,
// flags taking precedence.
func engineOptions() ([]govmeta.Option, error) {
	// Local paths given on the command line resolve against the working
	// directory unless the configuration file sets another root.
	opts := []govmeta.Option{govmeta.WithFileRoot(".")}

	path := configPath
	if path == "" {
		found, err := platform.FindConfig(".")
		if err != nil && !errors.Is(err, platform.ErrConfigNotFound) {
			return nil, err
		}
		path = found
	}
	if path != "" {
		cfg, err := platform.LoadFileConfig(path)
		if err != nil {
			return nil, err
		}
		fileOpts, err := cfg.Options()
		if err != nil {
			return nil, err
		}
		opts = append(opts, fileOpts...)
		slog.Debug("configuration loaded", "path", path)
	}

	if timeout > 0 {
		opts = append(opts, govmeta.WithTimeout(timeout))
	}
	if gateway != "" {
		opts = append(opts, govmeta.WithGateway(gateway))
	}
	if cacheMode != "" {
		opts = append(opts, govmeta.WithCache(cacheMode))
	}
	opts = append(opts, govmeta.WithLogger(slog.Default()))
	return opts, nil
}

// withEngine builds an engine, runs fn and releases the engine.
func withEngine(cmd *cobra.Command, fn func(ctx context.Context, e *govmeta.Engine) error) {
	ctx := cmd.Context()
	opts, err := engineOptions()
	if err != nil {
		fatal("Error reading configuration", err)
	}
	engine, err := govmeta.New(ctx, opts...)
	if err != nil {
		fatal("Error initializing engine", err)
	}

	runErr := fn(ctx, engine)

	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := engine.Close(closeCtx); err != nil {
		slog.Warn("engine close failed", "error", err)
	}
	if runErr != nil {
		fatal("Error", runErr)
	}
}

func printJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
