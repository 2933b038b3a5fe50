// Package fmtx renders formatted text into caller-owned, fixed-capacity
// buffers. A render that does not fit is reported, never truncated silently.
package fmtx

import (
	"fmt"
	"io"

	"iocore-go/errcode"
)

func Sprintf(format string, a ...any) string                    { return fmt.Sprintf(format, a...) }
func Fprintf(w io.Writer, format string, a ...any) (int, error) { return fmt.Fprintf(w, format, a...) }
func Errorf(format string, a ...any) error                      { return fmt.Errorf(format, a...) }

// bounded is an io.Writer over a fixed slice that records overflow instead
// of growing.
type bounded struct {
	buf  []byte
	n    int
	over bool
}

func (b *bounded) Write(p []byte) (int, error) {
	room := len(b.buf) - b.n
	if len(p) > room {
		b.over = true
		p = p[:room]
	}
	b.n += copy(b.buf[b.n:], p)
	return len(p), nil
}

// Bprintf renders format into dst and returns the rendered length.
//
// The last byte of dst is reserved (the C-string convention of the wire
// format), so at most len(dst)-1 bytes are usable. errcode.Overflow is
// returned when the rendering does not fit and errcode.EmptyMessage when it
// renders to nothing. On error the contents of dst are unspecified.
func Bprintf(dst []byte, format string, a ...any) (int, error) {
	if len(dst) < 2 {
		return 0, errcode.Overflow
	}
	w := bounded{buf: dst[:len(dst)-1]}
	fmt.Fprintf(&w, format, a...)
	switch {
	case w.over:
		return 0, errcode.Overflow
	case w.n == 0:
		return 0, errcode.EmptyMessage
	}
	return w.n, nil
}
