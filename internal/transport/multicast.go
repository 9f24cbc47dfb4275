package transport

import (
	"fmt"
	"net"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/net/ipv4"

	"github.com/lanhound/upnpdisco/internal/logging"
	"github.com/lanhound/upnpdisco/internal/ssdp"
)

const (
	// multicastTTL confines outbound M-SEARCH requests to the local
	// network segment
	multicastTTL = 1

	// readBufferSize is large enough for any SSDP datagram
	readBufferSize = 4096
)

// Handler receives one inbound datagram with its sender address
type Handler func(payload []byte, src *net.UDPAddr)

// Transport is the datagram transport consumed by the discovery engine.
// Implementations deliver received datagrams to the handler passed to
// Start until Close is called. Close is idempotent.
type Transport interface {
	// Send transmits payload to dst. It must not block on the receiver.
	Send(payload []byte, dst *net.UDPAddr) error

	// Start begins delivering inbound datagrams to h
	Start(h Handler)

	// LocalIP returns the local address the transport is bound to
	LocalIP() net.IP

	// Close releases the socket and stops delivery
	Close() error
}

// UDPTransport is the production Transport: a UDP socket bound to a LAN
// address, joined to the SSDP multicast group on that interface.
type UDPTransport struct {
	conn    *net.UDPConn
	pconn   *ipv4.PacketConn
	localIP net.IP

	closeOnce sync.Once
	closeErr  error
}

// Listen binds a UDP socket on lanAddress, joins the SSDP multicast group
// 239.255.255.250 on the interface owning that address, and sets the
// outbound multicast TTL to 1. Any bind, join or TTL failure is a
// transport setup failure; the socket never leaks on a partial setup.
func Listen(lanAddress string) (*UDPTransport, error) {
	ip := net.ParseIP(lanAddress)
	if ip == nil || ip.To4() == nil {
		return nil, fmt.Errorf("invalid LAN address %q", lanAddress)
	}

	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: ip})
	if err != nil {
		return nil, fmt.Errorf("failed to bind UDP socket on %s: %w", lanAddress, err)
	}

	pconn := ipv4.NewPacketConn(conn)
	group := &net.UDPAddr{IP: net.ParseIP(ssdp.MulticastAddress)}
	if err := pconn.JoinGroup(interfaceForIP(ip), group); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to join multicast group %s on %s: %w",
			ssdp.MulticastAddress, lanAddress, err)
	}
	if err := pconn.SetMulticastTTL(multicastTTL); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to set multicast TTL: %w", err)
	}

	logging.Debug("SSDP transport listening",
		zap.String("lan_address", lanAddress),
		zap.String("local_addr", conn.LocalAddr().String()),
	)

	return &UDPTransport{
		conn:    conn,
		pconn:   pconn,
		localIP: ip,
	}, nil
}

// interfaceForIP finds the network interface that owns ip, so the
// multicast group join lands on the caller-selected interface rather than
// the OS default route. Returns nil (OS default) when no interface
// matches.
func interfaceForIP(ip net.IP) *net.Interface {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil
	}
	for i := range ifaces {
		addrs, err := ifaces[i].Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipNet, ok := addr.(*net.IPNet)
			if ok && ipNet.IP.Equal(ip) {
				return &ifaces[i]
			}
		}
	}
	return nil
}

// Send transmits payload to dst. UDP writes do not block on the receiver.
func (t *UDPTransport) Send(payload []byte, dst *net.UDPAddr) error {
	n, err := t.conn.WriteToUDP(payload, dst)
	if err != nil {
		return fmt.Errorf("failed to send datagram to %s: %w", dst, err)
	}
	if n != len(payload) {
		return fmt.Errorf("partial datagram write to %s: %d of %d bytes", dst, n, len(payload))
	}
	return nil
}

// Start launches the read loop. The loop exits when the socket closes.
func (t *UDPTransport) Start(h Handler) {
	go t.readLoop(h)
}

func (t *UDPTransport) readLoop(h Handler) {
	buf := make([]byte, readBufferSize)
	for {
		n, src, err := t.conn.ReadFromUDP(buf)
		if err != nil {
			// Expected on Close; anything else still ends delivery.
			logging.Debug("SSDP read loop exiting", zap.Error(err))
			return
		}
		payload := make([]byte, n)
		copy(payload, buf[:n])
		h(payload, src)
	}
}

// LocalIP returns the LAN address the transport was bound to
func (t *UDPTransport) LocalIP() net.IP {
	return t.localIP
}

// Close releases the socket. Safe to call more than once.
func (t *UDPTransport) Close() error {
	t.closeOnce.Do(func() {
		t.closeErr = t.conn.Close()
	})
	return t.closeErr
}
