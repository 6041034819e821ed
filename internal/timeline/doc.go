// Package timeline holds the in-memory edit description: producers and the
// clips cut from them, track playlists of clips and blanks, filter stacks, and
// the tractor that composes tracks with transitions.
//
// Playlists are gapless by construction; entry positions are derived from the
// lengths of preceding entries. After any public mutation completes no two
// blanks are adjacent and no entry has zero length. The types here perform no
// locking; callers serialize access (see package engine).
package timeline
