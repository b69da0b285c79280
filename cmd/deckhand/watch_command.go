package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"deckhand/internal/health"
	"deckhand/internal/monitor"
	"deckhand/internal/session"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Poll the deck continuously and print status updates",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			// One watcher per deck: a second poller would double the load
			// on the device for no benefit.
			lock := flock.New(watchLockPath(cfg.Deck.URL))
			locked, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire watch lock: %w", err)
			}
			if !locked {
				return fmt.Errorf("another deckhand watch is already polling this deck")
			}
			defer func() { _ = lock.Unlock() }()

			sess, err := session.Connect(cfg, logger)
			if err != nil {
				return err
			}
			defer sess.Shutdown()

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			sess.SubscribeStateChanges(func(previous, current health.State) {
				fmt.Fprintln(out, renderStatusLine("Connection", stateKind(current),
					previous.String()+" -> "+current.String(), colorize))
			})
			sess.Subscribe(func(event monitor.Event) {
				fmt.Fprintln(out, renderEvent(event, colorize))
			})

			signalCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			<-signalCtx.Done()
			return nil
		},
	}
}

func watchLockPath(deckURL string) string {
	sanitized := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-':
			return r
		default:
			return '_'
		}
	}, deckURL)
	return filepath.Join(os.TempDir(), "deckhand-watch-"+sanitized+".lock")
}

func renderEvent(event monitor.Event, colorize bool) string {
	stamp := event.At.Format("15:04:05")
	if event.Err != nil {
		return stamp + " " + renderStatusLine("Status", statusWarn,
			event.State.String()+": status unavailable", colorize)
	}
	detail := fmt.Sprintf("%s  %s  %s",
		event.Status.State, event.Status.Timecode, clipLabel(event.Status.ClipName))
	kind := statusOK
	if event.State.String() != "Connected" {
		kind = statusWarn
	}
	return stamp + " " + renderStatusLine(event.State.String(), kind, detail, colorize)
}
