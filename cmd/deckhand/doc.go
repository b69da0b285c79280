// Command deckhand drives a HyperDeck-style broadcast deck from the
// terminal: one-shot transport commands, a status snapshot, and a
// continuous watch mode that mirrors the deck's state as it changes.
package main
