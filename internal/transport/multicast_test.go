package transport

import (
	"net"
	"testing"
)

func TestListenRejectsInvalidAddress(t *testing.T) {
	tests := []struct {
		name string
		addr string
	}{
		{name: "empty", addr: ""},
		{name: "hostname", addr: "gateway.local"},
		{name: "ipv6", addr: "fe80::1"},
		{name: "out of range octet", addr: "999.1.1.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, err := Listen(tt.addr)
			if err == nil {
				tr.Close()
				t.Fatalf("Listen(%q) succeeded, want an error", tt.addr)
			}
		})
	}
}

func TestInterfaceForIPUnknown(t *testing.T) {
	// TEST-NET-3 address, never assigned to a local interface
	if ifi := interfaceForIP(net.ParseIP("203.0.113.77")); ifi != nil {
		t.Errorf("interfaceForIP() = %v, want nil for an unassigned address", ifi)
	}
}
