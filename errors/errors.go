package errors

import (
	stderrors "errors"
	"fmt"
)

type ErrorCode int

const (
	InvalidConfiguration = iota + 1000
	Unavailable          = iota + 2000
	ConnectionError
	ProtocolError
	ResponseTruncated
	PayloadError
	InternalError = iota + 5000
)

func NewInvalidConfigurationError(msg string) PageStoreError {
	return NewPageStoreErrorf(InvalidConfiguration, "invalid configuration: %s", msg)
}

func NewConnectionError(msgFormat string, args ...interface{}) PageStoreError {
	return NewPageStoreErrorf(ConnectionError, msgFormat, args...)
}

func NewProtocolError(msgFormat string, args ...interface{}) PageStoreError {
	return NewPageStoreErrorf(ProtocolError, msgFormat, args...)
}

func NewPageStoreErrorf(errorCode ErrorCode, msgFormat string, args ...interface{}) PageStoreError {
	msg := fmt.Sprintf(msgFormat, args...)
	return PageStoreError{Code: errorCode, Msg: msg}
}

func NewPageStoreError(errorCode ErrorCode, msg string) PageStoreError {
	return PageStoreError{Code: errorCode, Msg: msg}
}

type PageStoreError struct {
	Code ErrorCode
	Msg  string
}

func (p PageStoreError) Error() string {
	return p.Msg
}

// ErrorCodeOf returns the code carried by err, or InternalError if err is
// not a PageStoreError.
func ErrorCodeOf(err error) ErrorCode {
	var perr PageStoreError
	if As(err, &perr) {
		return perr.Code
	}
	return InternalError
}

func New(msg string) error {
	return stderrors.New(msg)
}

func As(err error, target interface{}) bool {
	return stderrors.As(err, target)
}

func Is(err error, target error) bool {
	return stderrors.Is(err, target)
}
