package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPageStoreError(t *testing.T) {
	err := NewPageStoreErrorf(ProtocolError, "bad status %q", "oops")
	require.Equal(t, `bad status "oops"`, err.Error())
	require.Equal(t, ErrorCode(ProtocolError), err.Code)
}

func TestErrorCodeOf(t *testing.T) {
	require.Equal(t, ErrorCode(ConnectionError), ErrorCodeOf(NewConnectionError("nope")))
	require.Equal(t, ErrorCode(InternalError), ErrorCodeOf(New("plain error")))
}

func TestErrorCodeOfWrapped(t *testing.T) {
	err := fmt.Errorf("outer: %w", NewInvalidConfigurationError("bad port"))
	require.Equal(t, ErrorCode(InvalidConfiguration), ErrorCodeOf(err))
}
