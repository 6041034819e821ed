// Package engine applies timeline edits to a multi-track composition and
// drives playback of the result.
//
// Engine owns the Tractor, the slow-motion producer cache, the playback
// Backend and the notification Service. Every edit follows the same shape:
// take the structural lock, block frame delivery, run playlist primitives,
// restore filters, then release both and request a refresh when the edited
// range covers the playhead. Failed edits leave the composition as they
// found it.
//
// Frame callbacks (OnFrame, OnConsumerStopped) never take the structural
// lock; they consult the atomic blocked state so a consumer thread cannot
// stall behind an edit.
package engine
