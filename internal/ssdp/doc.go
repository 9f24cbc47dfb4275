// Package ssdp implements the wire format of the Simple Service Discovery
// Protocol as used for UPnP gateway discovery.
//
// The package covers exactly what discovery needs: encoding M-SEARCH
// request datagrams, decoding inbound datagrams into a typed form, and
// generating the candidate parameter sets that fuzzy discovery probes
// with. It performs no network I/O; the transport and the discovery engine
// live in their own packages.
//
// # Wire Format
//
// SSDP datagrams are HTTP-shaped text over UDP. An M-SEARCH request looks
// like:
//
//	M-SEARCH * HTTP/1.1
//	HOST: 239.255.255.250:1900
//	MAN: "ssdp:discover"
//	MX: 1
//	ST: urn:schemas-upnp-org:device:InternetGatewayDevice:1
//
// and a gateway replies with a "HTTP/1.1 200 OK" status line followed by
// ST, LOCATION, SERVER and USN headers. Header names are matched
// case-insensitively.
package ssdp
