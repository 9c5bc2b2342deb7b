package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewConfigErrorFormatsAndWraps(t *testing.T) {
	cause := errors.New("bad strategy name")
	err := NewConfigError("parsing %q: %w", "garbage", cause)

	require.Equal(t, `config error: parsing "garbage": bad strategy name`, err.Error())
	require.ErrorIs(t, err, cause)
}

func TestNewInvariantErrorFormatsAndWraps(t *testing.T) {
	cause := errors.New("unknown tag")
	err := NewInvariantError("envelope %d: %w", 7, cause)

	require.Equal(t, "invariant violation: envelope 7: unknown tag", err.Error())
	require.ErrorIs(t, err, cause)
}
