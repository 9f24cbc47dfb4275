package discovery

import (
	"net"
	"sync"

	"github.com/lanhound/upnpdisco/internal/ssdp"
	"github.com/lanhound/upnpdisco/internal/transport"
)

// mockTransport is an in-memory transport.Transport. Sent datagrams are
// recorded; an optional respond hook lets a test stand in for the gateway.
type mockTransport struct {
	mu      sync.Mutex
	handler transport.Handler
	sent    []sentDatagram
	localIP net.IP
	closed  int

	// respond, when set, is invoked in a goroutine for every Send, so a
	// test can deliver a reply the way a real gateway would
	respond func(m *mockTransport, payload []byte, dst *net.UDPAddr)
}

type sentDatagram struct {
	payload []byte
	dst     *net.UDPAddr
}

func (m *mockTransport) Send(payload []byte, dst *net.UDPAddr) error {
	m.mu.Lock()
	m.sent = append(m.sent, sentDatagram{payload: payload, dst: dst})
	respond := m.respond
	m.mu.Unlock()

	if respond != nil {
		go respond(m, payload, dst)
	}
	return nil
}

func (m *mockTransport) Start(h transport.Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handler = h
}

func (m *mockTransport) LocalIP() net.IP {
	return m.localIP
}

func (m *mockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed++
	return nil
}

// deliver injects an inbound datagram as if it arrived from src
func (m *mockTransport) deliver(payload []byte, src *net.UDPAddr) {
	m.mu.Lock()
	h := m.handler
	m.mu.Unlock()
	if h != nil {
		h(payload, src)
	}
}

func (m *mockTransport) sentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func (m *mockTransport) closeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// okReply builds the reply datagram a gateway sends for search target st
func okReply(st string) []byte {
	return []byte("HTTP/1.1 200 OK\r\n" +
		"CACHE-CONTROL: max-age=1800\r\n" +
		"LOCATION: http://192.168.1.1:49152/rootDesc.xml\r\n" +
		"SERVER: Test UPnP/1.1 MiniUPnPd/2.1\r\n" +
		"ST: " + st + "\r\n" +
		"USN: uuid:test-gateway::" + st + "\r\n" +
		"\r\n")
}

// echoGateway answers every M-SEARCH whose search target is st, from addr
func echoGateway(st string, addr *net.UDPAddr) func(*mockTransport, []byte, *net.UDPAddr) {
	return func(m *mockTransport, payload []byte, _ *net.UDPAddr) {
		req, err := ssdp.Decode(payload)
		if err != nil || req.ST != st {
			return
		}
		m.deliver(okReply(st), addr)
	}
}
