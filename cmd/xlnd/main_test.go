package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRejectReasonUsesErrorText(t *testing.T) {
	require.Equal(t, "unknown", rejectReason(nil))
	require.Equal(t, "boom", rejectReason(errors.New("boom")))
}
