//go:generate go run go.uber.org/mock/mockgen -source=transport.go -destination=../mocks/mock_transport.go -package=mocks
package chat

// Transport is the datagram channel a Session drives. multicast.Channel is the
// production implementation.
type Transport interface {
	Send(payload []byte) error
	// Receive blocks until a datagram arrives or the transport is closed.
	Receive() ([]byte, error)
	Close() error
}
