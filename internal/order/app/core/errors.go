package core

import (
	"errors"
	"fmt"
)

var (
	ErrParseCmd = errors.New("cannot parse arguments")
	ErrHelp     = errors.New("")

	ErrDBConn  = errors.New("db connection failure")
	ErrRMQConn = errors.New("rabbitmq connection failure")

	ErrValidation        = errors.New("validation failed")
	ErrFieldIsEmpty      = errors.New("field is empty")
	ErrOrderNotFound     = errors.New("order not found")
	ErrPersistence       = errors.New("persistence failure")
	ErrOrderNumberTaken  = fmt.Errorf("%w: order number already taken, retry the request", ErrPersistence)
	ErrInvalidTransition = errors.New("status transition not allowed")
	ErrUnauthorized      = errors.New("invalid passphrase")
)
