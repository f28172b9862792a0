package core

import "context"

// Message is one delivery from the event stream.
type Message interface {
	Body() []byte
	Ack() error
	// Nack rejects the message. Without requeue it is dropped.
	Nack(requeue bool) error
}

type ISource interface {
	Consume(ctx context.Context) (<-chan Message, error)
	Close() error
}
