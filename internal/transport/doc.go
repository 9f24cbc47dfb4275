// Package transport provides the multicast UDP socket used for SSDP
// discovery.
//
// Listen binds a socket on a caller-supplied LAN address, joins the SSDP
// multicast group 239.255.255.250 on that interface and sets the outbound
// multicast TTL to 1 so that M-SEARCH requests never leave the local
// segment. The discovery engine consumes the socket through the Transport
// interface, which also allows tests to substitute an in-memory fake.
package transport
