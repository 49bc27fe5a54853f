package wire

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
)

// DefaultMaxFrameBytes is the framing ceiling recommended by §4.1 when a
// caller does not configure one explicitly.
const DefaultMaxFrameBytes = 16 << 20 // 16 MiB

// ErrFrameTooLarge is returned by ReadFrame when a declared frame length
// exceeds the configured ceiling. The connection must be torn down.
type ErrFrameTooLarge struct {
	Declared uint32
	Max      uint32
}

func (e *ErrFrameTooLarge) Error() string {
	return fmt.Sprintf("wire: frame of %d bytes exceeds ceiling of %d bytes", e.Declared, e.Max)
}

// WriteFrame writes payload as one [length: big-endian u32][payload] unit.
// The length and payload are written in a single Write call where possible
// so a concurrent reader on the peer never observes a torn frame.
func WriteFrame(w io.Writer, payload []byte) error {
	buf := make([]byte, 4+len(payload))
	binary.BigEndian.PutUint32(buf[:4], uint32(len(payload)))
	copy(buf[4:], payload)
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("wire: write frame: %w", err)
	}
	return nil
}

// ReadFrame reads exactly one length-prefixed frame. A declared length
// beyond maxBytes is a protocol violation: the caller must close the
// connection. maxBytes of 0 selects DefaultMaxFrameBytes.
func ReadFrame(r io.Reader, maxBytes uint32) ([]byte, error) {
	if maxBytes == 0 {
		maxBytes = DefaultMaxFrameBytes
	}

	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, fmt.Errorf("wire: read frame length: %w", err)
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if n > maxBytes {
		return nil, &ErrFrameTooLarge{Declared: n, Max: maxBytes}
	}

	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("wire: read frame payload: %w", err)
	}
	return payload, nil
}

// WriteEnvelope serializes and frames an Envelope in one call.
func WriteEnvelope(w io.Writer, e Envelope) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("wire: marshal envelope: %w", err)
	}
	return WriteFrame(w, payload)
}

// ReadEnvelope reads one frame and decodes it as an Envelope. A JSON
// decode failure is distinct from an I/O failure: callers should drop the
// frame and keep the connection open on the former (see §4.1, §7) and tear
// down the connection on the latter.
func ReadEnvelope(r io.Reader, maxBytes uint32) (Envelope, error) {
	payload, err := ReadFrame(r, maxBytes)
	if err != nil {
		return Envelope{}, err
	}
	var e Envelope
	if err := json.Unmarshal(payload, &e); err != nil {
		return Envelope{}, &BadFrameError{Cause: err}
	}
	return e, nil
}

// BadFrameError wraps a frame that was read successfully but failed to
// decode as a valid Envelope. Readers distinguish this from a transport
// error: the frame is dropped but the connection stays open.
type BadFrameError struct {
	Cause error
}

func (e *BadFrameError) Error() string { return fmt.Sprintf("wire: bad frame: %v", e.Cause) }
func (e *BadFrameError) Unwrap() error  { return e.Cause }
