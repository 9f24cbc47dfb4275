package ssdp

import (
	"bufio"
	"bytes"
	"fmt"
	"net/textproto"
	"strconv"
	"strings"
)

// Well-known SSDP constants
const (
	// MulticastAddress is the IPv4 multicast group used by SSDP
	MulticastAddress = "239.255.255.250"

	// Port is the well-known SSDP port
	Port = 1900

	// RootDevice is the wildcard search target; a reply carrying it
	// satisfies any outstanding search for that gateway
	RootDevice = "upnp:rootdevice"

	// DefaultMan is the mandatory extension header value for M-SEARCH
	DefaultMan = `"ssdp:discover"`

	// DefaultMX is the default maximum response delay in seconds
	DefaultMX = 1
)

// Kind identifies the type of an SSDP datagram
type Kind int

const (
	// KindOK is a unicast reply to an M-SEARCH request
	KindOK Kind = iota
	// KindMSearch is an M-SEARCH request (ours or another host's)
	KindMSearch
	// KindNotify is an unsolicited NOTIFY advertisement
	KindNotify
)

// String returns a human-readable kind name
func (k Kind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindMSearch:
		return "m-search"
	case KindNotify:
		return "notify"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Datagram is a decoded SSDP datagram.
//
// Replies (KindOK) populate ST, Location, Server, USN and CacheControl.
// NOTIFY advertisements populate NT and NTS instead of ST. Fields absent
// from the wire datagram are left empty.
type Datagram struct {
	Kind Kind

	// ST is the search target (replies and M-SEARCH requests)
	ST string

	// Location is the URL of the device description document
	Location string

	// Server identifies the responding UPnP stack (e.g. "MiniUPnPd/2.1")
	Server string

	// USN is the unique service name of the responder
	USN string

	// CacheControl carries the advertisement max-age
	CacheControl string

	// NT and NTS are the notification type and sub-type (NOTIFY only)
	NT  string
	NTS string
}

// Status lines distinguishing the three datagram kinds
const (
	okStatusLine      = "HTTP/1.1 200 OK"
	mSearchStartLine  = "M-SEARCH * HTTP/1.1"
	notifyStartLine   = "NOTIFY * HTTP/1.1"
	mSearchMethodLine = "M-SEARCH * HTTP/1.1\r\n"
)

// SearchParams is one M-SEARCH parameter set. ST is required; the other
// fields fall back to protocol defaults when zero.
//
// HeaderOrder controls the order the MAN, MX and ST headers are emitted
// after HOST. Some gateways only answer requests with a specific header
// ordering, which is why fuzzy discovery varies it (see SearchCandidates).
type SearchParams struct {
	ST          string
	Man         string
	MX          int
	HeaderOrder []string
}

// defaultHeaderOrder is the ordering most gateways accept
var defaultHeaderOrder = []string{"MAN", "MX", "ST"}

// EncodeMSearch serializes an M-SEARCH request datagram from params.
// The HOST header always comes first; MAN, MX and ST follow in
// params.HeaderOrder (or the default ordering).
func EncodeMSearch(params SearchParams) []byte {
	man := params.Man
	if man == "" {
		man = DefaultMan
	}
	mx := params.MX
	if mx <= 0 {
		mx = DefaultMX
	}
	order := params.HeaderOrder
	if len(order) == 0 {
		order = defaultHeaderOrder
	}

	var b bytes.Buffer
	b.WriteString(mSearchMethodLine)
	fmt.Fprintf(&b, "HOST: %s:%d\r\n", MulticastAddress, Port)
	for _, name := range order {
		switch strings.ToUpper(name) {
		case "MAN":
			fmt.Fprintf(&b, "MAN: %s\r\n", man)
		case "MX":
			fmt.Fprintf(&b, "MX: %s\r\n", strconv.Itoa(mx))
		case "ST":
			fmt.Fprintf(&b, "ST: %s\r\n", params.ST)
		}
	}
	b.WriteString("\r\n")
	return b.Bytes()
}

// Decode parses an inbound SSDP datagram. It returns an error for anything
// that is not a well-formed OK reply, M-SEARCH request or NOTIFY
// advertisement; callers treat that as noise and discard it.
func Decode(data []byte) (*Datagram, error) {
	reader := bufio.NewReader(bytes.NewReader(data))
	tp := textproto.NewReader(reader)

	startLine, err := tp.ReadLine()
	if err != nil {
		return nil, fmt.Errorf("failed to read start line: %w", err)
	}

	var kind Kind
	switch strings.TrimSpace(startLine) {
	case okStatusLine:
		kind = KindOK
	case mSearchStartLine:
		kind = KindMSearch
	case notifyStartLine:
		kind = KindNotify
	default:
		return nil, fmt.Errorf("unrecognized start line %q", startLine)
	}

	header, err := tp.ReadMIMEHeader()
	if err != nil {
		// SSDP datagrams commonly omit the trailing blank line; a header
		// block that simply ran out of bytes is still usable.
		if len(header) == 0 {
			return nil, fmt.Errorf("failed to read headers: %w", err)
		}
	}

	return &Datagram{
		Kind:         kind,
		ST:           header.Get("St"),
		Location:     header.Get("Location"),
		Server:       header.Get("Server"),
		USN:          header.Get("Usn"),
		CacheControl: header.Get("Cache-Control"),
		NT:           header.Get("Nt"),
		NTS:          header.Get("Nts"),
	}, nil
}
