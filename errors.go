package wren

import "errors"

var (
	ErrServerClosed = errors.New("smtp: server closed")
	ErrClientClosed = errors.New("smtp: client closed")
	ErrNoConnection = errors.New("smtp: no connection established")
	ErrNoRecipients = errors.New("smtp: no recipients specified")
	ErrLineTooLong  = errors.New("smtp: line too long")
)
