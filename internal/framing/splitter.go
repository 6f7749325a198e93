// Package framing implements newline-delimited message framing for the stdio
// transport: a Splitter that turns arbitrarily chunked input into complete
// frames, and a Writer that emits one frame per write.
package framing

import "bytes"

// Delimiter terminates every frame on the wire.
const Delimiter = '\n'

// Splitter accumulates chunks of input and yields complete frames. A frame is
// the text preceding a Delimiter; the final, unterminated segment is retained
// until a later chunk completes it. Frames that are blank after trimming
// whitespace are dropped.
//
// The zero value is ready to use. A Splitter is not safe for concurrent use.
type Splitter struct {
	buf []byte
}

// Push appends chunk to the pending buffer and returns every frame it
// completes, in arrival order. Returned frames are trimmed of surrounding
// whitespace (so CRLF-terminated input is accepted) and never alias the
// caller's chunk.
func (s *Splitter) Push(chunk []byte) [][]byte {
	if len(chunk) == 0 {
		return nil
	}
	// The retained partial frame holds no delimiter, so only the new chunk
	// needs scanning.
	from := len(s.buf)
	s.buf = append(s.buf, chunk...)

	var frames [][]byte
	for {
		i := bytes.IndexByte(s.buf[from:], Delimiter)
		if i < 0 {
			break
		}
		i += from
		line := bytes.TrimSpace(s.buf[:i])
		if len(line) > 0 {
			frames = append(frames, bytes.Clone(line))
		}
		s.buf = s.buf[i+1:]
		from = 0
	}

	// Compact so the retained partial frame does not pin consumed input.
	if len(s.buf) == 0 {
		s.buf = nil
	} else if cap(s.buf)-len(s.buf) > 4096 {
		s.buf = bytes.Clone(s.buf)
	}
	return frames
}

// Pending returns the buffered, not yet terminated input.
func (s *Splitter) Pending() []byte {
	return s.buf
}

// Reset discards any buffered partial frame.
func (s *Splitter) Reset() {
	s.buf = nil
}
