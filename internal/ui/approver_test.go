package ui

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForcedApprover_CountsDownThenApproves(t *testing.T) {
	var out bytes.Buffer
	var slept []time.Duration
	a := &ForcedApprover{output: &out, sleepFn: func(d time.Duration) { slept = append(slept, d) }}

	ok, err := a.RequestApproval(context.Background(), "crm_prod")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Len(t, slept, 5)
	assert.Contains(t, out.String(), "DANGER")
	assert.Contains(t, out.String(), "'crm_prod'")
	assert.Contains(t, out.String(), "Resetting in: 1 seconds")
	assert.Contains(t, out.String(), "Proceeding with schema reset")
}

func TestForcedApprover_Cancelled(t *testing.T) {
	var out bytes.Buffer
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	a := &ForcedApprover{output: &out, sleepFn: func(time.Duration) {
		calls++
		if calls == 2 {
			cancel()
		}
	}}

	ok, err := a.RequestApproval(ctx, "crm")
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, ok)
	assert.Equal(t, 2, calls)
	assert.NotContains(t, out.String(), "Proceeding")
}

func TestNewForcedApprover(t *testing.T) {
	fa, ok := NewForcedApprover(true).(*ForcedApprover)
	require.True(t, ok)
	assert.True(t, fa.verbose)
	assert.NotNil(t, fa.output)
	assert.NotNil(t, fa.sleepFn)
}

func TestInteractiveApprover(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		approved bool
		message  string
	}{
		{"exact name", "crm\n", true, "Confirmed"},
		{"surrounding whitespace", "  crm  \n", true, "Confirmed"},
		{"no trailing newline", "crm", true, "Confirmed"},
		{"wrong name", "crm_prod\n", false, "'crm_prod' does not match"},
		{"case differs", "CRM\n", false, "does not match"},
		{"empty line", "\n", false, "does not match"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			a := &InteractiveApprover{input: strings.NewReader(tt.input), output: &out}

			ok, err := a.RequestApproval(context.Background(), "crm")
			require.NoError(t, err)
			assert.Equal(t, tt.approved, ok)
			assert.Contains(t, out.String(), "WARNING")
			assert.Contains(t, out.String(), "permanently delete")
			assert.Contains(t, out.String(), tt.message)
		})
	}
}

func TestInteractiveApprover_ReadError(t *testing.T) {
	a := &InteractiveApprover{input: &errorReader{err: io.ErrUnexpectedEOF}, output: io.Discard}

	ok, err := a.RequestApproval(context.Background(), "crm")
	require.Error(t, err)
	assert.False(t, ok)
	assert.Contains(t, err.Error(), "failed to read input")
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestInteractiveApprover_ClosedInput(t *testing.T) {
	a := &InteractiveApprover{input: strings.NewReader(""), output: io.Discard}
	ok, err := a.RequestApproval(context.Background(), "crm")
	assert.ErrorIs(t, err, io.EOF)
	assert.False(t, ok)
}

func TestInteractiveApprover_Cancelled(t *testing.T) {
	in := newBlockingReader()
	t.Cleanup(func() { _ = in.Close() })
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := &InteractiveApprover{input: in, output: io.Discard}
	ok, err := a.RequestApproval(ctx, "crm")
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, ok)
}

func TestNewInteractiveApprover(t *testing.T) {
	ia, ok := NewInteractiveApprover(false).(*InteractiveApprover)
	require.True(t, ok)
	assert.False(t, ia.verbose)
	assert.NotNil(t, ia.input)
	assert.NotNil(t, ia.output)
}

type errorReader struct {
	err error
}

func (r *errorReader) Read([]byte) (int, error) {
	return 0, r.err
}

type blockingReader struct {
	done chan struct{}
}

func newBlockingReader() *blockingReader {
	return &blockingReader{done: make(chan struct{})}
}

func (r *blockingReader) Read([]byte) (int, error) {
	<-r.done
	return 0, io.EOF
}

func (r *blockingReader) Close() error {
	select {
	case <-r.done:
	default:
		close(r.done)
	}
	return nil
}
