package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"deckhand/internal/deck"
	"deckhand/internal/logging"
	"deckhand/internal/respcache"
)

func newPlayCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "play",
		Short: "Start playback",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransportCommand(ctx, cmd, deck.CommandRequest{Action: deck.ActionPlay})
		},
	}
}

func newStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop playback or recording",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransportCommand(ctx, cmd, deck.CommandRequest{Action: deck.ActionStop})
		},
	}
}

func newRecordCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "record",
		Short: "Start recording",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransportCommand(ctx, cmd, deck.CommandRequest{Action: deck.ActionRecord})
		},
	}
}

func newShuttleCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shuttle <rate>",
		Short: "Shuttle at the given rate (-30 to 30, 1 = play speed)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rate, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("parse shuttle rate %q: %w", args[0], err)
			}
			return runTransportCommand(ctx, cmd, deck.CommandRequest{Action: deck.ActionShuttle, Rate: rate})
		},
	}
	return cmd
}

func runTransportCommand(ctx *commandContext, cmd *cobra.Command, req deck.CommandRequest) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := ctx.ensureLogger()
	if err != nil {
		return err
	}

	endpoint, err := deck.ParseEndpoint(cfg.Deck.URL)
	if err != nil {
		return err
	}
	client := deck.NewClient(endpoint, cfg.RequestTimeout(),
		deck.WithLogger(logging.NewComponentLogger(logger, "deck")),
		deck.WithCache(respcache.New(cfg.CacheTTL(), cfg.Cache.MaxEntries)),
		deck.WithRetryPolicy(deck.NewPolicy(cfg.Retry.MaxAttempts, cfg.RetryBaseDelay(), cfg.RetryMaxDelay())),
	)

	req.Index = cfg.Deck.TransportIndex
	if _, err := client.Command(cmd.Context(), req); err != nil {
		return fmt.Errorf("%s transport %d: %w", req.Action, req.Index, err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, renderStatusLine(
		fmt.Sprintf("Transport %d", req.Index),
		statusOK,
		commandAck(req),
		shouldColorize(out),
	))
	return nil
}

func commandAck(req deck.CommandRequest) string {
	if req.Action == deck.ActionShuttle {
		return fmt.Sprintf("shuttle at %.2fx", req.Rate)
	}
	return string(req.Action) + " accepted"
}
