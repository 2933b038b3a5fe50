package fmtx

import (
	"bytes"
	"strings"
	"testing"

	"iocore-go/errcode"
)

func TestSprintfVerbs(t *testing.T) {
	type C struct {
		fmt  string
		args []any
		want string
	}
	for _, c := range []C{
		{"hello %s", []any{"world"}, "hello world"},
		{"num %d hex %x HEX %X", []any{255, 255, 255}, "num 255 hex ff HEX FF"},
		{"literal %%", nil, "literal %"},
		{"trim: %.3s", []any{"abcdef"}, "trim: abc"},
	} {
		got := Sprintf(c.fmt, c.args...)
		if got != c.want {
			t.Fatalf("Sprintf(%q, ...) = %q, want %q", c.fmt, got, c.want)
		}
	}
}

func TestBprintfRendersIntoDst(t *testing.T) {
	dst := make([]byte, 32)
	n, err := Bprintf(dst, "MPU ODR:\t%x\r", 0x07)
	if err != nil {
		t.Fatalf("Bprintf error: %v", err)
	}
	if got := string(dst[:n]); got != "MPU ODR:\t7\r" {
		t.Fatalf("rendered %q", got)
	}
}

func TestBprintfBound(t *testing.T) {
	dst := make([]byte, 8)

	// len(dst)-1 bytes fit exactly.
	n, err := Bprintf(dst, "%s", "1234567")
	if err != nil || n != 7 {
		t.Fatalf("exact fit: n=%d err=%v", n, err)
	}

	// One more overflows and reports instead of truncating.
	if _, err := Bprintf(dst, "%s", "12345678"); err != errcode.Overflow {
		t.Fatalf("overflow err = %v", err)
	}
	if _, err := Bprintf(dst, "%s", strings.Repeat("x", 100)); err != errcode.Overflow {
		t.Fatalf("large overflow err = %v", err)
	}
}

func TestBprintfEmpty(t *testing.T) {
	if _, err := Bprintf(make([]byte, 8), "%s", ""); err != errcode.EmptyMessage {
		t.Fatalf("empty err = %v", err)
	}
	if _, err := Bprintf(nil, "x"); err != errcode.Overflow {
		t.Fatalf("nil dst err = %v", err)
	}
}

func TestFprintf(t *testing.T) {
	var buf bytes.Buffer
	if _, err := Fprintf(&buf, "v=%d", 7); err != nil {
		t.Fatalf("Fprintf error: %v", err)
	}
	if got, want := buf.String(), "v=7"; got != want {
		t.Fatalf("Fprintf wrote %q, want %q", got, want)
	}
}
