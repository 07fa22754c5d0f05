package faults

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestE_PreservesChain(t *testing.T) {
	t.Parallel()

	root := io.ErrUnexpectedEOF
	f := E(KindInput, "decode subtitles", root)

	require.ErrorIs(t, f, io.ErrUnexpectedEOF)
	assert.Equal(t, KindInput, KindOf(f))

	// Wrapping above the fault keeps the classification visible.
	wrapped := fmt.Errorf("job 42: %w", f)
	assert.Equal(t, KindInput, KindOf(wrapped))
	require.ErrorIs(t, wrapped, io.ErrUnexpectedEOF)
}

func TestKindOf_UnclassifiedIsInternal(t *testing.T) {
	t.Parallel()

	assert.Equal(t, KindInternal, KindOf(errors.New("who knows")))
}

func TestIsRetriable(t *testing.T) {
	t.Parallel()

	transient := E(KindResource, "insufficient memory", nil).Retriable()
	assert.True(t, IsRetriable(transient))
	assert.True(t, IsRetriable(fmt.Errorf("attempt 2: %w", transient)))

	terminal := E(KindResource, "backend load failed", nil)
	assert.False(t, IsRetriable(terminal))
	assert.False(t, IsRetriable(errors.New("plain")))
}

func TestExitCode_Mapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"validation rejection", E(KindValidation, "critical issue", nil), ExitValidation},
		{"tamper finding", E(KindIntegrity, "hash mismatch", nil), ExitValidation},
		{"bad input", E(KindInput, "malformed timestamp", nil), ExitInput},
		{"memory pressure", E(KindResource, "insufficient memory", nil).Retriable(), ExitResource},
		{"plain error", errors.New("boom"), ExitInternal},
		{"canceled", context.Canceled, ExitInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestIsCanceled(t *testing.T) {
	t.Parallel()

	assert.True(t, IsCanceled(fmt.Errorf("stage: %w", context.Canceled)))
	assert.False(t, IsCanceled(context.DeadlineExceeded))
	assert.False(t, IsCanceled(E(KindInternal, "boom", nil)))
}

func TestKindString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "input", KindInput.String())
	assert.Equal(t, "resource", KindResource.String())
	assert.Equal(t, "validation", KindValidation.String())
	assert.Equal(t, "integrity", KindIntegrity.String())
	assert.Equal(t, "internal", KindInternal.String())
}

func TestError_Formatting(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "input: empty plan", E(KindInput, "empty plan", nil).Error())
	assert.Equal(t, "resource: acquire backend: ceiling reached",
		E(KindResource, "acquire backend", errors.New("ceiling reached")).Error())
}
