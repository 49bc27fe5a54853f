package wire

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFrameRoundTrip(t *testing.T) {
	cases := []Envelope{
		NewLog("hello world"),
		NewSearchRequest("req-1", "select * from logs", ShardMetadata{
			ID:         "shard-1",
			Name:       "logs",
			StorageKey: "logs.2026-07-29_10_00.shard-1.db",
			Timestamp:  time.Date(2026, 7, 29, 10, 0, 0, 0, time.UTC),
		}),
		NewSearchResponse("req-1", []map[string]string{
			{"id": "1", "message": "hi"},
			{"id": "2", "message": "there"},
		}),
		NewSearchResponse("req-2", nil),
	}

	for _, want := range cases {
		var buf bytes.Buffer
		require.NoError(t, WriteEnvelope(&buf, want))

		got, err := ReadEnvelope(&buf, 0)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

func TestReadFrame_TooLarge(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, make([]byte, 128)))

	_, err := ReadFrame(&buf, 64)
	var tooLarge *ErrFrameTooLarge
	require.True(t, errors.As(err, &tooLarge))
}

func TestReadEnvelope_BadFrameKeepsConnectionReadable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, []byte(`not json`)))
	require.NoError(t, WriteEnvelope(&buf, NewLog("after the bad frame")))

	_, err := ReadEnvelope(&buf, 0)
	var bad *BadFrameError
	require.True(t, errors.As(err, &bad))

	// The stream is not corrupted by the bad frame; the next frame reads fine.
	got, err := ReadEnvelope(&buf, 0)
	require.NoError(t, err)
	require.Equal(t, "after the bad frame", got.Log.Log)
}

func TestEnvelope_UnknownTag(t *testing.T) {
	var e Envelope
	err := e.UnmarshalJSON([]byte(`{"Bogus":{}}`))
	require.Error(t, err)
}

func TestEnvelope_MultipleTagsRejected(t *testing.T) {
	var e Envelope
	err := e.UnmarshalJSON([]byte(`{"Log":{"log":"a"},"SearchRequest":{}}`))
	require.Error(t, err)
}
