package netutil

import (
	"errors"
	"net"
)

// ShouldRedial reports whether err happened before the request reached the
// server: DNS failures and dial errors. Timeouts after the connection was
// made are not included because the call may already have taken effect.
func ShouldRedial(err error) bool {
	if err == nil {
		return false
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsTemporary || dnsErr.IsTimeout
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Op == "dial"
	}
	return false
}
