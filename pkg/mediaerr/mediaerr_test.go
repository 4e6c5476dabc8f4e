package mediaerr

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{name: "nil", err: nil, want: Unknown},
		{name: "plain error", err: errors.New("boom"), want: Unknown},
		{name: "decode", err: E(Decode, "probe", errors.New("bad header")), want: Decode},
		{name: "wrapped twice", err: fmt.Errorf("run: %w", E(Encode, "png", errors.New("x"))), want: Encode},
		{name: "sentinel", err: ErrFrameOutOfRange, want: FrameOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestErrorIsSentinel(t *testing.T) {
	err := fmt.Errorf("pipeline: %w", E(IO, "write", context.Canceled))

	assert.ErrorIs(t, err, ErrIO)
	assert.NotErrorIs(t, err, ErrDecode)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "probe: bad header", E(Decode, "probe", errors.New("bad header")).Error())
	assert.Equal(t, "decode error", ErrDecode.Error())
	assert.Nil(t, E(IO, "noop", nil))
	assert.Equal(t, "frame_out_of_range", FrameOutOfRange.String())
}
