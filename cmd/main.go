// Package main provides the CLI entrypoint of the multi API server.
// It wires subcommands (serve, qr, expand), loads configuration, and initializes logging.
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"multiapi/internal/config"
	"multiapi/pkg/logger"
)

// setupLogger configures the default logger, shipping entries to Logtail in
// production when an API key is configured. The returned func flushes and
// stops the Logtail shipper.
func setupLogger(cfg *config.Config) func() {
	opts := []logger.Option{logger.WithLevel(cfg.LogLevel)}
	closeSink := func() {}
	if cfg.Environment == logger.ProductionEnvironment && cfg.Logtail.APIKey != "" {
		sink := logger.NewLogtailSink(nil, cfg.Logtail.IngestURL, cfg.Logtail.APIKey, cfg.Logtail.FlushEveryN)
		opts = append(opts, logger.WithSink(sink))
		closeSink = func() {
			if err := sink.Close(); err != nil {
				log.Println("could not flush logs to logtail:", err)
			}
		}
	}

	logger.Setup(cfg.Environment, opts...)

	return closeSink
}

// main sets up the root Cobra command, loads configuration and logging, and
// registers subcommands before executing the CLI.
func main() {
	rootCmd := &cobra.Command{
		Use: "multiapi",
	}

	// there is no way to access flags before command execution in cobra.
	// configPath here is parsed using the standard flags package.
	// following line is just added to prevent errors when Cobra is parsing the flags.
	rootCmd.PersistentFlags().StringP("config", "c", "config.yml", "Config File Path")

	fs := flag.NewFlagSet("multiapi", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	configPath := fs.String("c", "config.yml", "The config file path")
	_ = fs.Parse(configArgs(os.Args[1:]))

	log.Println("loading config ...")
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("could not load config file", err)
	}

	closeLogs := setupLogger(cfg)

	ctx := context.Background()

	defer func() {
		if p := recover(); p != nil {
			logger.Error(ctx, "captured panic, exiting...", zap.Any("panic", p))
			_ = logger.Get(ctx).Sync()
			closeLogs()

			panic(p)
		}
	}()

	rootCmd.AddCommand(
		serveCommand(cfg),
		qrCommand(cfg),
		expandCommand(cfg),
	)

	err = rootCmd.Execute()
	_ = logger.Get(ctx).Sync()
	closeLogs()
	if err != nil {
		os.Exit(1) //nolint: gocritic
	}
}

// configArgs keeps only the -c/--config flag so the standard flag package
// does not stop at subcommand names.
func configArgs(args []string) []string {
	for i, a := range args {
		switch a {
		case "-c", "--c", "-config", "--config":
			if i+1 < len(args) {
				return []string{"-c", args[i+1]}
			}
		}
		for _, p := range []string{"-c=", "--c=", "-config=", "--config="} {
			if len(a) > len(p) && a[:len(p)] == p {
				return []string{"-c", a[len(p):]}
			}
		}
	}

	return nil
}
