package mltxml_test

import (
	"encoding/xml"
	"strconv"
	"testing"
)

func xmlName(local string) xml.Name {
	return xml.Name{Local: local}
}

func atoi(t *testing.T, s string) int {
	t.Helper()
	n, err := strconv.Atoi(s)
	if err != nil {
		t.Fatalf("not an integer: %q", s)
	}
	return n
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
