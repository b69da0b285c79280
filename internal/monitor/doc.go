// Package monitor runs the adaptive status polling loop.
//
// One background goroutine polls the deck's transport status, asking the
// health manager for the connection state each tick. The tick interval
// follows that state: fast while the deck is reachable, slow while it is
// not, so an absent deck does not get hammered or flood the logs. A failed
// tick is delivered to the consumer as an event and never stops the loop;
// only Stop does.
package monitor
