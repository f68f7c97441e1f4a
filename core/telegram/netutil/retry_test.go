package netutil

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"testing"
)

func TestShouldRedial(t *testing.T) {
	dial := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
	read := &net.OpError{Op: "read", Net: "tcp", Err: errors.New("reset")}
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"dial", dial, true},
		{"wrapped dial", &url.Error{Op: "Post", URL: "https://api.telegram.org", Err: dial}, true},
		{"read", read, false},
		{"dns temporary", &net.DNSError{Err: "no such host", IsTemporary: true}, true},
		{"dns permanent", fmt.Errorf("x: %w", &net.DNSError{Err: "no such host"}), false},
		{"plain", errors.New("boom"), false},
	}
	for _, tc := range cases {
		if got := ShouldRedial(tc.err); got != tc.want {
			t.Fatalf("%s: ShouldRedial = %v, want %v", tc.name, got, tc.want)
		}
	}
}
