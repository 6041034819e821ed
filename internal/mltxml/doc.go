// Package mltxml serializes compositions to and from the MLT XML document
// format and rescales documents between frame rates.
package mltxml
