package session

import "errors"

var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrEmptySelection = errors.New("no symptoms selected")
)
