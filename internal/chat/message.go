package chat

import (
	"errors"
	"time"
)

var (
	ErrInvalidAuthor = errors.New("author must be non-empty valid UTF-8 free of ']'")
	ErrInvalidBody   = errors.New("body must be valid UTF-8")
	ErrDecode        = errors.New("malformed chat datagram")
)

// Message is one chat line. Timestamp has second precision in local time.
type Message struct {
	Timestamp time.Time
	Author    string
	Body      string
}

func NewMessage(author, body string, at time.Time) Message {
	return Message{
		Timestamp: at.Local().Truncate(time.Second),
		Author:    author,
		Body:      body,
	}
}

// String renders the message in its wire layout, which is also its display form.
func (m Message) String() string {
	return string(Encode(m))
}
