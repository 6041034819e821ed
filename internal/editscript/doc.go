// Package editscript applies TOML edit scripts to an engine.
//
// A script declares the source producers it needs and an ordered list of
// [[op]] tables. Each op maps to one engine edit command and ops run in
// order, stopping at the first rejected edit:
//
//	[[producer]]
//	id       = "interview"
//	resource = "/media/interview.mp4"
//	length   = 9000
//
//	[[op]]
//	kind     = "insert"
//	track    = 3
//	start    = 0
//	end      = 250
//	producer = "interview"
package editscript
