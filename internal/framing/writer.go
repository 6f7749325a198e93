package framing

import (
	"bytes"
	"errors"
	"io"
)

// ErrEmptyFrame is returned by Writer.WriteFrame for zero-length payloads.
var ErrEmptyFrame = errors.New("framing: empty frame")

// Writer emits frames to an underlying stream. Each WriteFrame issues exactly
// one Write containing the payload followed by a single Delimiter.
type Writer struct {
	w io.Writer
}

// NewWriter wraps w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteFrame writes payload as one frame. Payloads must not contain the
// delimiter; JSON produced by encoding/json never does.
func (fw *Writer) WriteFrame(payload []byte) error {
	if len(payload) == 0 {
		return ErrEmptyFrame
	}
	if bytes.IndexByte(payload, Delimiter) >= 0 {
		return errors.New("framing: payload contains frame delimiter")
	}
	frame := make([]byte, 0, len(payload)+1)
	frame = append(frame, payload...)
	frame = append(frame, Delimiter)
	n, err := fw.w.Write(frame)
	if err != nil {
		return err
	}
	if n != len(frame) {
		return io.ErrShortWrite
	}
	return nil
}
