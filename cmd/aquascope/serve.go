package main

import (
	"errors"
	"fmt"
	"net"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"aquascope/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve sessions over JSON-RPC (stdio or WebSocket)",
	Long: `Serve speaks JSON-RPC 2.0. Without --ws it reads Content-Length framed
messages from stdin and answers on stdout; with --ws it accepts WebSocket
connections, one message per text frame.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("ws", "", "serve WebSocket connections on this address instead of stdio")
	serveCmd.Flags().Duration("debounce", 0, "delay of view/changed notifications after edits (0 uses the configuration)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg := configFrom(ctx)

	addr, err := cmd.Flags().GetString("ws")
	if err != nil {
		return err
	}
	if addr == "" && !cmd.Flags().Changed("ws") {
		addr = cfg.Serve.Addr
	}
	debounce, err := cmd.Flags().GetDuration("debounce")
	if err != nil {
		return err
	}
	if debounce <= 0 {
		debounce = cfg.Serve.Debounce
	}

	opts := server.Options{
		Session:  sessionOptions(cfg),
		Theme:    renderTheme(cfg),
		Debounce: debounce,
		Log:      cmd.ErrOrStderr(),
	}

	if addr != "" {
		return server.ListenAndServe(ctx, addr, opts, func(a net.Addr) {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s ws://%s\n", color.GreenString("listening on"), a)
		})
	}

	srv := server.New(os.Stdin, os.Stdout, opts)
	if err := srv.Run(ctx); err != nil {
		if errors.Is(err, server.ErrExit) {
			return nil
		}
		if errors.Is(err, server.ErrExitWithoutShutdown) {
			return fmt.Errorf("exit without shutdown")
		}
		return err
	}
	return nil
}
