package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/savedtransfer/saved-transfer/internal/config"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath string
	flagClientID   string
	flagFormat     string
	flagNoBrowser  bool
	flagNoResume   bool
	flagVerbose    bool
	flagQuiet      bool
	flagTrace      bool
)

// resolvedCfg holds the effective configuration loaded by PersistentPreRunE.
// It is available to all subcommands after the root pre-run phase completes.
var resolvedCfg *config.Config

// runID tags every log line of one invocation.
var runID = uuid.NewString()

// skipConfigCommands lists commands that must work without a valid config,
// because they create or repair it.
var skipConfigCommands = map[string]bool{
	"saved-transfer config init": true,
}

// newRootCmd builds and returns the fully-assembled root command with all
// subcommands registered. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "saved-transfer",
		Short: "Move Reddit saved posts and comments between accounts",
		Long: "Export the saved items of one Reddit account to a file and import them\n" +
			"into another account, authorizing each side in the browser.",
		Version: version,
		// Silence Cobra's default error/usage printing; main handles it.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if skipConfigCommands[cmd.CommandPath()] {
				return nil
			}

			return loadConfig(cmd, args)
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().StringVar(&flagClientID, "client-id", "", "OAuth client id of the installed app")
	cmd.PersistentFlags().StringVar(&flagFormat, "format", "", "save file format: auto, json, plain")
	cmd.PersistentFlags().BoolVar(&flagNoBrowser, "no-browser", false, "print the authorization URL without opening a browser")
	cmd.PersistentFlags().BoolVar(&flagNoResume, "no-resume", false, "ignore the import journal and save every item")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")
	cmd.PersistentFlags().BoolVar(&flagTrace, "trace", false, "print OpenTelemetry spans to stderr")

	cmd.AddCommand(newExportCmd())
	cmd.AddCommand(newImportCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}

// loadConfig resolves the effective configuration from the four-layer override
// chain and stores the result in resolvedCfg for use by subcommands. The
// optional positional file argument overrides save_file.
func loadConfig(cmd *cobra.Command, args []string) error {
	boot := bootstrapLogger()

	if err := config.LoadDotEnv(config.DotEnvFile, boot); err != nil {
		return fmt.Errorf("loading %s: %w", config.DotEnvFile, err)
	}

	cli := config.CLIOverrides{
		ConfigPath: flagConfigPath,
		ClientID:   flagClientID,
		Format:     flagFormat,
		LogLevel:   flagLogLevel(),
	}

	if cmd.Flags().Changed("no-browser") {
		open := !flagNoBrowser
		cli.OpenBrowser = &open
	}

	if cmd.Flags().Changed("no-resume") {
		resume := !flagNoResume
		cli.Resume = &resume
	}

	if cmd.Flags().Changed("trace") {
		cli.Trace = &flagTrace
	}

	if len(args) > 0 {
		cli.SaveFile = &args[0]
	}

	resolved, err := config.Resolve(config.ReadEnvOverrides(boot), cli, boot)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	resolvedCfg = resolved

	return nil
}

// flagLogLevel maps --verbose and --quiet to a log level override.
func flagLogLevel() string {
	switch {
	case flagQuiet:
		return "error"
	case flagVerbose:
		return "debug"
	default:
		return ""
	}
}

// bootstrapLogger is used before the config is loaded. Only warnings and
// errors are shown unless --verbose is set.
func bootstrapLogger() *slog.Logger {
	level := slog.LevelWarn
	if flagVerbose {
		level = slog.LevelDebug
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// buildLogger creates an slog.Logger configured by the resolved config and
// CLI flags. Config-file log level provides the baseline; --verbose and
// --quiet override it because CLI flags always win.
func buildLogger() *slog.Logger {
	level := slog.LevelInfo

	if resolvedCfg != nil {
		switch resolvedCfg.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}

	if flagVerbose {
		level = slog.LevelDebug
	}

	if flagQuiet {
		level = slog.LevelError
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})

	return slog.New(handler).With(slog.String("run_id", runID))
}

// newHTTPClient returns the client used for API calls. Connect and data
// timeouts come from config. Every request gets an otelhttp client span
// under the caller's span; see setupTracing.
func newHTTPClient(cfg *config.Config) *http.Client {
	connect, data := cfg.Timeouts()

	base := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: connect}).DialContext,
		TLSHandshakeTimeout:   connect,
		ResponseHeaderTimeout: data,
		ForceAttemptHTTP2:     true,
	}

	return &http.Client{
		Transport: otelhttp.NewTransport(base),
		Timeout:   connect + data,
	}
}

// exitOnError prints a user-friendly error message to stderr and exits.
func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(exitCode(err))
}

// exitCode is 130 for runs stopped by a signal and 1 otherwise.
func exitCode(err error) int {
	var ie *interruptError
	if errors.As(err, &ie) {
		return exitInterrupted
	}

	return 1
}
