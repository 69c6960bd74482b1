package chat

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Wire layout of one datagram, UTF-8, no escaping:
//
//	[HH:MM:SS] [<author>] <body>
const clockLayout = "15:04:05"

func Encode(m Message) []byte {
	b := make([]byte, 0, len(clockLayout)+len(m.Author)+len(m.Body)+6)
	b = append(b, '[')
	b = m.Timestamp.AppendFormat(b, clockLayout)
	b = append(b, "] ["...)
	b = append(b, m.Author...)
	b = append(b, "] "...)
	b = append(b, m.Body...)
	return b
}

// Decode parses a datagram using the current date for the timestamp.
func Decode(payload []byte) (Message, error) {
	return decodeAt(payload, time.Now())
}

// decodeAt splits on the first two bracket groups; the author ends at the
// first ']' and the trimmed remainder is the body. The clock is placed on the
// local calendar day of now.
func decodeAt(payload []byte, now time.Time) (Message, error) {
	if !utf8.Valid(payload) {
		return Message{}, fmt.Errorf("%w: invalid utf-8", ErrDecode)
	}
	s := string(payload)

	clock, rest, ok := bracketGroup(s)
	if !ok {
		return Message{}, fmt.Errorf("%w: missing timestamp", ErrDecode)
	}
	ts, err := time.ParseInLocation(clockLayout, clock, time.Local)
	if err != nil {
		return Message{}, fmt.Errorf("%w: bad timestamp %q", ErrDecode, clock)
	}

	if !strings.HasPrefix(rest, " ") {
		return Message{}, fmt.Errorf("%w: missing author", ErrDecode)
	}
	author, rest, ok := bracketGroup(rest[1:])
	if !ok || author == "" {
		return Message{}, fmt.Errorf("%w: missing author", ErrDecode)
	}

	body := strings.TrimSpace(rest)
	if body == "" {
		return Message{}, fmt.Errorf("%w: empty body", ErrDecode)
	}

	local := now.Local()
	at := time.Date(local.Year(), local.Month(), local.Day(),
		ts.Hour(), ts.Minute(), ts.Second(), 0, time.Local)

	return Message{Timestamp: at, Author: author, Body: body}, nil
}

// bracketGroup returns the text of a leading "[...]" group and what follows it.
func bracketGroup(s string) (inner, rest string, ok bool) {
	if !strings.HasPrefix(s, "[") {
		return "", "", false
	}
	end := strings.IndexByte(s, ']')
	if end < 0 {
		return "", "", false
	}
	return s[1:end], s[end+1:], true
}
