// Package session wires the deck client, response cache, health manager,
// and polling monitor into the handle consumers hold: Connect, State,
// Subscribe, SubscribeStateChanges, SendCommand, Status, Shutdown.
//
// A session owns its whole stack, with no process-wide shared state, so
// several decks can be driven from one process by opening one session per
// endpoint.
package session
