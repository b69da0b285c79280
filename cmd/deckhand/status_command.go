package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"deckhand/internal/deck"
	"deckhand/internal/health"
	"deckhand/internal/logging"
	"deckhand/internal/respcache"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show deck reachability and transport state",
		RunE: func(cmd *cobra.Command, args []string) error {
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
			manager := health.NewManager(client,
				health.WithLogger(logger),
				health.WithWindow(cfg.HealthWindow()),
				health.WithFailureThreshold(cfg.Polling.FailureThreshold),
			)

			state := manager.CheckNow(cmd.Context())
			var snapshot *deck.TransportStatus
			if state.Reachable() {
				if status, err := client.Transport(cmd.Context(), cfg.Deck.TransportIndex); err == nil {
					snapshot = &status
				}
			}

			if asJSON {
				return printJSON(cmd.OutOrStdout(), statusReport(endpoint, state, cfg.Deck.TransportIndex, snapshot))
			}
			renderStatus(cmd, endpoint, state, cfg.Deck.TransportIndex, snapshot)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit machine-readable JSON")
	return cmd
}

type statusPayload struct {
	Deck      string          `json:"deck"`
	State     string          `json:"state"`
	Transport int             `json:"transport"`
	Playback  string          `json:"playback,omitempty"`
	Timecode  string          `json:"timecode,omitempty"`
	Clip      string          `json:"clip,omitempty"`
	Raw       json.RawMessage `json:"raw,omitempty"`
}

func statusReport(endpoint deck.Endpoint, state health.State, index int, snapshot *deck.TransportStatus) statusPayload {
	payload := statusPayload{
		Deck:      endpoint.Host(),
		State:     state.String(),
		Transport: index,
	}
	if snapshot != nil {
		payload.Playback = snapshot.State
		payload.Timecode = snapshot.Timecode
		payload.Clip = snapshot.ClipName
		payload.Raw = snapshot.Raw
	}
	return payload
}

func renderStatus(cmd *cobra.Command, endpoint deck.Endpoint, state health.State, index int, snapshot *deck.TransportStatus) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	fmt.Fprintln(out, renderStatusLine("Deck "+endpoint.Host(), stateKind(state), state.String(), colorize))

	if snapshot == nil {
		fmt.Fprintln(out, renderStatusLine("Transport "+strconv.Itoa(index), statusWarn, "status unavailable", colorize))
		return
	}

	fmt.Fprintln(out, renderTransportTable(snapshot))
}

func stateKind(state health.State) statusKind {
	switch state {
	case health.StateConnected:
		return statusOK
	case health.StateDegraded:
		return statusWarn
	default:
		return statusError
	}
}

func clipLabel(name string) string {
	if name == "" {
		return "(none)"
	}
	return name
}
