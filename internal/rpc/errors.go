package rpc

import (
	"errors"
	"fmt"
)

var (
	ErrNotConnected = errors.New("rpc client not connected")
	ErrClosed       = errors.New("rpc connection closed")
)

// ConnectionError 传输层错误（拨号、读写）
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// Kind 错误类别
func (e *ConnectionError) Kind() string {
	return "ConnectionError"
}
