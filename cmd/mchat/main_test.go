package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPrinterWritesOneLinePerCall(t *testing.T) {
	var buf bytes.Buffer
	p := newPrinter(&buf, "alice")

	p.message("[10:00:00] [alice] mine")
	p.message("[10:00:01] [bob] theirs")
	p.status("joined")
	p.failure(errors.New("multicast send: boom"))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	require.Contains(t, lines[0], "[10:00:00] [alice] mine")
	require.Contains(t, lines[1], "[10:00:01] [bob] theirs")
	require.Contains(t, lines[2], "* joined")
	require.Contains(t, lines[3], "! multicast send: boom")
}

func TestReadLines(t *testing.T) {
	lines := make(chan string)
	go readLines(strings.NewReader("hi\n/quit\n"), lines)

	var got []string
	for l := range lines {
		got = append(got, l)
	}
	require.Equal(t, []string{"hi", "/quit"}, got)
}
