// Package notifications delivers render engine events to subscribers.
//
// The engine reports duration changes, unresolvable clips, refresh requests
// and playback progress through the Service interface. Hub fans events out to
// channel subscribers, coalesces refresh requests that arrive in bursts and
// never blocks the publisher: a subscriber that falls behind loses events
// rather than stalling the frame callback path.
//
// Extend this package if you need alternative transports; engine code depends
// only on the Service interface.
package notifications
