// Package textutil holds small string helpers shared by the session layer
// and the CLI: file name sanitizing for lock and backup paths, and the
// yes/no rendering used by table output.
package textutil
