package message

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteReadFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte("SET foo bar")

	require.NoError(t, WriteFrame(&buf, payload))
	require.Equal(t, FrameLenWidth+len(payload), buf.Len())

	got, err := ReadFrame(&buf)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestWriteFrameEmptyPayload(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, nil))

	got, err := ReadFrame(&buf)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestReadFrameIncomplete(t *testing.T) {
	// A header promising 20 bytes but only 3 delivered must be fatal.
	buf := bytes.NewBufferString("        20abc")
	_, err := ReadFrame(buf)
	require.ErrorIs(t, err, ErrIncompleteFrame)
}

func TestReadFrameShortHeader(t *testing.T) {
	buf := bytes.NewBufferString("12")
	_, err := ReadFrame(buf)
	require.ErrorIs(t, err, ErrIncompleteFrame)
}

func TestReadFrameEOF(t *testing.T) {
	_, err := ReadFrame(bytes.NewReader(nil))
	require.ErrorIs(t, err, ErrIncompleteFrame)
}
