package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"aquascope/internal/config"
	"aquascope/internal/server"
	"aquascope/internal/trace"
)

// commandFailed is set before cleanup when the command returned an error;
// a ring tracer then dumps everything it kept. Otherwise only sessions that
// reported a failure are dumped.
var commandFailed bool

// setupTracing merges the [trace] section with the trace flags and
// initializes the tracer. It returns a cleanup function.
func setupTracing(cmd *cobra.Command, cfg config.Config) (func(), error) {
	flags := cmd.Root().PersistentFlags()

	if flags.Changed("trace") {
		v, err := flags.GetString("trace")
		if err != nil {
			return nil, fmt.Errorf("failed to get trace flag: %w", err)
		}
		cfg.Trace.Output = v
	}
	if flags.Changed("trace-level") {
		v, err := flags.GetString("trace-level")
		if err != nil {
			return nil, fmt.Errorf("failed to get trace-level flag: %w", err)
		}
		cfg.Trace.Level = v
	}
	if flags.Changed("trace") && !flags.Changed("trace-mode") && cfg.Trace.Mode == "ring" {
		// явный файл без режима: пишем поток
		cfg.Trace.Mode = "stream"
	}
	if flags.Changed("trace-mode") {
		v, err := flags.GetString("trace-mode")
		if err != nil {
			return nil, fmt.Errorf("failed to get trace-mode flag: %w", err)
		}
		cfg.Trace.Mode = v
	}
	if flags.Changed("trace-ring-size") {
		v, err := flags.GetInt("trace-ring-size")
		if err != nil {
			return nil, fmt.Errorf("failed to get trace-ring-size flag: %w", err)
		}
		cfg.Trace.RingSize = v
	}
	heartbeatInterval, err := flags.GetDuration("trace-heartbeat")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-heartbeat flag: %w", err)
	}

	tc, err := cfg.TraceConfig()
	if err != nil {
		return nil, fmt.Errorf("invalid trace configuration: %w", err)
	}

	// If level is off and no output specified, skip tracing
	if tc.Level == trace.LevelOff && tc.OutputPath == "" {
		cmd.SetContext(trace.WithTracer(cmd.Context(), trace.Nop))
		return func() {}, nil
	}
	// вывод указан без уровня: по умолчанию фазы
	if tc.Level == trace.LevelOff {
		tc.Level = trace.LevelPhase
	}

	tracer, err := trace.New(tc)
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer: %w", err)
	}

	ctx := trace.WithTracer(cmd.Context(), tracer)
	cmd.SetContext(ctx)

	var heartbeat *trace.Heartbeat
	if heartbeatInterval > 0 {
		heartbeat = trace.StartHeartbeat(tracer, heartbeatInterval, server.OpenSessions)
	}

	cleanup := func() {
		if heartbeat != nil {
			heartbeat.Stop()
		}
		if ring := trace.RingOf(tracer); ring != nil {
			if err := dumpRing(cmd.ErrOrStderr(), ring, commandFailed); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "trace: dump error: %v\n", err)
			}
		}
		if err := tracer.Flush(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: flush error: %v\n", err)
		}
		if err := tracer.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: close error: %v\n", err)
		}
	}
	return cleanup, nil
}

// dumpRing prints what the ring kept: everything after a failed command,
// otherwise the events of each session that failed.
func dumpRing(w io.Writer, ring *trace.RingTracer, all bool) error {
	if all {
		fmt.Fprintln(w, "trace: last events")
		return ring.Dump(w, trace.FormatText)
	}
	for _, id := range ring.Failed() {
		if id == "" {
			continue
		}
		fmt.Fprintf(w, "trace: session %s failed\n", id)
		if err := ring.DumpSession(w, trace.FormatText, id); err != nil {
			return err
		}
	}
	return nil
}
