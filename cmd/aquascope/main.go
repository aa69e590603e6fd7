package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"aquascope/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "aquascope",
	Short: "Borrow and move fact decorations for source code",
	Long: `aquascope turns the loan and move facts of a borrow analysis into
decorated source views: static HTML exports, terminal renderings and a
JSON-RPC service for editors.`,
	SilenceUsage:      true,
	PersistentPreRunE: setupCommand,
	PersistentPostRun: func(cmd *cobra.Command, _ []string) {
		runCleanup()
	},
}

// main registers subcommands and persistent flags and runs the root command.
// If command execution returns an error, the process exits with status code 1.
func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(revealCmd)
	rootCmd.AddCommand(exploreCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)

	// Глобальные флаги
	rootCmd.PersistentFlags().String("config", "", "configuration file (.toml, .yaml); default: nearest "+configFileName())
	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().Bool("timings", false, "show timing information")
	rootCmd.PersistentFlags().String("cache-dir", "", "directory of the session index cache")
	rootCmd.PersistentFlags().String("trace", "", "trace output file (\"-\" for stderr)")
	rootCmd.PersistentFlags().String("trace-level", "", "trace level (off|error|phase|detail|debug)")
	rootCmd.PersistentFlags().String("trace-mode", "", "trace storage (stream|ring|both)")
	rootCmd.PersistentFlags().Int("trace-ring-size", 0, "events kept by the ring tracer")
	rootCmd.PersistentFlags().Duration("trace-heartbeat", 0, "emit heartbeat events at this interval")
	rootCmd.PersistentFlags().String("cpu-profile", "", "write a CPU profile to this file")
	rootCmd.PersistentFlags().String("mem-profile", "", "write a heap profile to this file on exit")
	rootCmd.PersistentFlags().String("runtime-trace", "", "write a Go runtime trace to this file")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		commandFailed = true
		runCleanup()
		os.Exit(1)
	}
}

// setupCommand loads the configuration, applies the colour mode and
// installs the tracer for every subcommand.
func setupCommand(cmd *cobra.Command, _ []string) error {
	if err := applyColorMode(cmd); err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cmd.SetContext(withConfig(cmd.Context(), cfg))
	cleanup, err := setupTracing(cmd, cfg)
	if err != nil {
		return err
	}
	cleanups = append(cleanups, cleanup)

	stopProfiling, err := setupProfiling(cmd)
	if err != nil {
		return err
	}
	cleanups = append(cleanups, stopProfiling)
	return nil
}

var cleanups []func()

func runCleanup() {
	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}
	cleanups = nil
}

func applyColorMode(cmd *cobra.Command) error {
	mode, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return err
	}
	sw, err := readSwitch("color", mode)
	if err != nil {
		return err
	}
	// auto оставляет решение fatih/color (NO_COLOR, TERM=dumb, не tty)
	if sw != switchAuto {
		color.NoColor = !sw.resolve(os.Stdout)
	}
	return nil
}

// isTerminal проверяет, является ли файл терминалом
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
