package core

import "errors"

var (
	ErrParseCmd = errors.New("cannot parse arguments")
	ErrHelp     = errors.New("")

	ErrRMQConn       = errors.New("rabbitmq connection failure")
	ErrUnknownSource = errors.New("unknown event source, use rabbitmq or kafka")
)

const DefaultPrefetch = 10
