// Package health owns the deck reachability state machine.
//
// The manager turns probe outcomes into state transitions and never
// propagates probe errors upward. Check results are reused within a
// validity window so a status bar and a command pre-check hitting the
// manager in quick succession cost one network round trip, not several.
package health
