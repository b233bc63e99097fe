package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"triagebot/pkg/trace"
)

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run one reminder sweep and exit",
		Long:  "Claims every unreminded triage record, delivers its reminder and prints the reminder text.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSweep()
		},
	}
}

func runSweep() error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx := trace.WithContext(context.Background(), trace.GenerateTraceID())
	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	payloads, err := a.scheduler.RunSweep(ctx)
	for _, p := range payloads {
		fmt.Fprintln(os.Stdout, p.Text())
		fmt.Fprintln(os.Stdout)
	}
	if err != nil {
		log.Error("Reminder sweep failed", zap.Int("reminded", len(payloads)), zap.Error(err))
		return err
	}
	fmt.Fprintf(os.Stdout, "%d reminder(s) sent\n", len(payloads))
	return nil
}
