package errcode

import (
	"errors"
	"testing"
)

func TestCodesAreStableStrings(t *testing.T) {
	cases := map[string]Code{
		"invalid_id":          InvalidID,
		"uninitialised":       Uninitialised,
		"shape_mismatch":      ShapeMismatch,
		"port_inactive":       PortInactive,
		"timeout":             Timeout,
		"slave_busy":          SlaveBusy,
		"verify_mismatch":     VerifyMismatch,
		"overflow":            Overflow,
		"empty_message":       EmptyMessage,
		"already_initialised": AlreadyInitialised,
		"already_claimed":     AlreadyClaimed,
	}
	for want, c := range cases {
		if c.Error() != want {
			t.Fatalf("code %q mismatch: got %q", want, c.Error())
		}
	}
}

func TestWrapAndOf(t *testing.T) {
	if Wrap("spi.read", OK) != nil {
		t.Fatal("Wrap(OK) must be nil")
	}
	err := Wrap("spi.write", VerifyMismatch)
	if got := err.Error(); got != "spi.write: verify_mismatch" {
		t.Fatalf("Error() = %q", got)
	}
	if Of(err) != VerifyMismatch {
		t.Fatalf("Of = %q", Of(err))
	}
	if !errors.Is(err, VerifyMismatch) {
		t.Fatal("errors.Is should match the bare code")
	}
	if errors.Is(err, Timeout) {
		t.Fatal("errors.Is matched the wrong code")
	}
	if Of(nil) != OK || Of(errors.New("x")) != Error || Of(Timeout) != Timeout {
		t.Fatal("Of defaults incorrect")
	}
}
