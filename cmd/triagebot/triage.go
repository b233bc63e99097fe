package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	mqcontracts "triagebot/contracts/mq"
	"triagebot/internal/model"
	"triagebot/internal/service"
	"triagebot/pkg/trace"
)

func triageCmd() *cobra.Command {
	var (
		inputFile string
		mode      string
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "triage",
		Short: "Triage a batch of messages and print a priority-sorted digest",
		Long: `Reads one JSON message per line (fields: source_id, sender, subject, body)
from a file or stdin, runs every message through the pipeline and prints
the digest sorted by priority.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTriage(inputFile, model.ParseMode(mode), asJSON)
		},
	}

	cmd.Flags().StringVarP(&inputFile, "file", "f", "-", "JSON-lines input file, - for stdin")
	cmd.Flags().StringVar(&mode, "mode", "digest", "digest or track_unanswered")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print outcomes as JSON instead of the text digest")

	return cmd
}

func runTriage(inputFile string, mode model.Mode, asJSON bool) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer log.Sync()

	var in io.Reader = os.Stdin
	if inputFile != "-" {
		f, err := os.Open(inputFile)
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		in = f
	}

	msgs, err := readMessages(in)
	if err != nil {
		return err
	}

	ctx := trace.WithContext(context.Background(), trace.GenerateTraceID())
	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	outcomes, batchErr := a.pipeline.ProcessBatch(ctx, msgs, mode)
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(outcomes); err != nil {
			return err
		}
	} else if err := service.WriteDigest(os.Stdout, outcomes); err != nil {
		return err
	}
	return batchErr
}

// readMessages 解析 JSON-lines，空行跳过
func readMessages(r io.Reader) ([]model.InboundMessage, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var msgs []model.InboundMessage
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var p mqcontracts.MessageReceivedPayload
		if err := json.Unmarshal([]byte(text), &p); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		msgs = append(msgs, p.ToInboundMessage())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return msgs, nil
}
