package discovery

import (
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/lanhound/upnpdisco/internal/ssdp"
)

const testTarget = "urn:schemas-upnp-org:service:WANIPConnection:1"

var gatewayAddr = &net.UDPAddr{IP: net.ParseIP("192.168.1.1"), Port: ssdp.Port}

// waitForSent polls until the mock has recorded at least n sends
func waitForSent(t *testing.T, m *mockTransport, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for m.sentCount() < n {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d sent datagrams, have %d", n, m.sentCount())
		}
		time.Sleep(time.Millisecond)
	}
}

func TestSearchReturnsMatchingReply(t *testing.T) {
	mock := &mockTransport{respond: echoGateway(testTarget, gatewayAddr)}
	eng := newEngine(mock)

	reply, err := eng.search(context.Background(), "192.168.1.1", 2*time.Second,
		[]ssdp.SearchParams{{ST: testTarget}})
	if err != nil {
		t.Fatalf("search() error = %v", err)
	}
	if reply.ST != testTarget {
		t.Errorf("reply.ST = %q, want %q", reply.ST, testTarget)
	}
	if mock.sentCount() != 1 {
		t.Errorf("sent %d datagrams, want 1", mock.sentCount())
	}
}

func TestSearchTimeout(t *testing.T) {
	mock := &mockTransport{}
	eng := newEngine(mock)

	start := time.Now()
	_, err := eng.search(context.Background(), "192.168.1.1", 50*time.Millisecond,
		[]ssdp.SearchParams{{ST: testTarget}})
	elapsed := time.Since(start)

	if !IsTimeout(err) {
		t.Fatalf("search() error = %v, want a timeout", err)
	}
	if !strings.Contains(err.Error(), "192.168.1.1:1900") {
		t.Errorf("timeout error %q does not name the gateway and port", err.Error())
	}
	if elapsed > time.Second {
		t.Errorf("timeout took %v, want on the order of 50ms", elapsed)
	}
}

func TestSearchEmptyTargetFailsFast(t *testing.T) {
	mock := &mockTransport{}
	eng := newEngine(mock)

	_, err := eng.search(context.Background(), "192.168.1.1", time.Second,
		[]ssdp.SearchParams{{ST: testTarget}, {}})
	if err == nil {
		t.Fatal("search() accepted an empty search target")
	}
	if mock.sentCount() != 0 {
		t.Errorf("sent %d datagrams before failing, want 0", mock.sentCount())
	}
}

func TestSearchNoParamSets(t *testing.T) {
	eng := newEngine(&mockTransport{})
	if _, err := eng.search(context.Background(), "192.168.1.1", time.Second, nil); err == nil {
		t.Fatal("search() accepted an empty parameter set list")
	}
}

func TestSearchInvalidGatewayAddress(t *testing.T) {
	mock := &mockTransport{}
	eng := newEngine(mock)

	_, err := eng.search(context.Background(), "not-an-ip", time.Second,
		[]ssdp.SearchParams{{ST: testTarget}})
	if err == nil {
		t.Fatal("search() accepted an invalid gateway address")
	}
	if mock.sentCount() != 0 {
		t.Errorf("sent %d datagrams before failing, want 0", mock.sentCount())
	}
}

func TestRootDeviceWildcardMatches(t *testing.T) {
	// A upnp:rootdevice reply satisfies a search for any specific target.
	mock := &mockTransport{
		respond: func(m *mockTransport, _ []byte, _ *net.UDPAddr) {
			m.deliver(okReply(ssdp.RootDevice), gatewayAddr)
		},
	}
	eng := newEngine(mock)

	reply, err := eng.search(context.Background(), "192.168.1.1", 2*time.Second,
		[]ssdp.SearchParams{{ST: testTarget}})
	if err != nil {
		t.Fatalf("search() error = %v", err)
	}
	if reply.ST != ssdp.RootDevice {
		t.Errorf("reply.ST = %q, want %q", reply.ST, ssdp.RootDevice)
	}
}

func TestReplyResolvesOnlyMatchingTarget(t *testing.T) {
	const otherTarget = "urn:schemas-upnp-org:device:WANDevice:1"

	mock := &mockTransport{}
	eng := newEngine(mock)

	type result struct {
		reply *ssdp.Datagram
		err   error
	}
	matching := make(chan result, 1)
	other := make(chan result, 1)

	go func() {
		reply, err := eng.search(context.Background(), "192.168.1.1", 2*time.Second,
			[]ssdp.SearchParams{{ST: testTarget}})
		matching <- result{reply, err}
	}()
	go func() {
		reply, err := eng.search(context.Background(), "192.168.1.1", 200*time.Millisecond,
			[]ssdp.SearchParams{{ST: otherTarget}})
		other <- result{reply, err}
	}()

	waitForSent(t, mock, 2)
	mock.deliver(okReply(testTarget), gatewayAddr)

	got := <-matching
	if got.err != nil {
		t.Fatalf("matching search error = %v", got.err)
	}
	if got.reply.ST != testTarget {
		t.Errorf("matching search reply.ST = %q, want %q", got.reply.ST, testTarget)
	}

	gotOther := <-other
	if !IsTimeout(gotOther.err) {
		t.Errorf("other search error = %v, want a timeout", gotOther.err)
	}
}

func TestReplyFromDifferentAddressIgnored(t *testing.T) {
	mock := &mockTransport{}
	eng := newEngine(mock)

	done := make(chan error, 1)
	go func() {
		_, err := eng.search(context.Background(), "192.168.1.1", 150*time.Millisecond,
			[]ssdp.SearchParams{{ST: testTarget}})
		done <- err
	}()

	waitForSent(t, mock, 1)
	mock.deliver(okReply(testTarget), &net.UDPAddr{IP: net.ParseIP("192.168.1.99"), Port: ssdp.Port})

	if err := <-done; !IsTimeout(err) {
		t.Errorf("search() error = %v, want a timeout despite the stray reply", err)
	}
}

func TestGarbageDatagramIgnored(t *testing.T) {
	mock := &mockTransport{}
	eng := newEngine(mock)

	done := make(chan error, 1)
	var reply *ssdp.Datagram
	go func() {
		var err error
		reply, err = eng.search(context.Background(), "192.168.1.1", 2*time.Second,
			[]ssdp.SearchParams{{ST: testTarget}})
		done <- err
	}()

	waitForSent(t, mock, 1)
	mock.deliver([]byte{0x00, 0x01, 0xfe, 0xff}, gatewayAddr)
	mock.deliver([]byte("GET / HTTP/1.1\r\n\r\n"), gatewayAddr)
	mock.deliver(okReply(testTarget), gatewayAddr)

	if err := <-done; err != nil {
		t.Fatalf("search() error = %v after garbage datagrams", err)
	}
	if reply.ST != testTarget {
		t.Errorf("reply.ST = %q, want %q", reply.ST, testTarget)
	}
}

func TestOwnAddressDatagramIgnored(t *testing.T) {
	lanIP := net.ParseIP("192.168.1.5")
	mock := &mockTransport{localIP: lanIP}
	eng := newEngine(mock)

	done := make(chan error, 1)
	go func() {
		_, err := eng.search(context.Background(), "192.168.1.1", 150*time.Millisecond,
			[]ssdp.SearchParams{{ST: testTarget}})
		done <- err
	}()

	waitForSent(t, mock, 1)
	// A looped-back copy of our own transmission must not resolve anything,
	// even if it happens to look like a matching reply.
	mock.deliver(okReply(testTarget), &net.UDPAddr{IP: lanIP, Port: ssdp.Port})

	if err := <-done; !IsTimeout(err) {
		t.Errorf("search() error = %v, want a timeout", err)
	}
}

func TestBatchSharesOneSlot(t *testing.T) {
	// A batch registers one pending search per parameter set, all sharing
	// a slot; a reply matching any of them settles the batch and the next
	// match pass drains every record of it.
	mock := &mockTransport{}
	eng := newEngine(mock)

	batch := []ssdp.SearchParams{
		{ST: "urn:schemas-upnp-org:device:InternetGatewayDevice:1"},
		{ST: testTarget},
	}

	done := make(chan error, 1)
	var reply *ssdp.Datagram
	go func() {
		var err error
		reply, err = eng.search(context.Background(), "192.168.1.1", 2*time.Second, batch)
		done <- err
	}()

	waitForSent(t, mock, 2)
	mock.deliver(okReply(testTarget), gatewayAddr)

	if err := <-done; err != nil {
		t.Fatalf("search() error = %v", err)
	}
	if reply.ST != testTarget {
		t.Errorf("reply.ST = %q, want %q", reply.ST, testTarget)
	}

	eng.mu.Lock()
	left := len(eng.pending)
	eng.mu.Unlock()
	if left != 0 {
		t.Errorf("%d pending searches left in the registry, want 0", left)
	}
}

func TestSearchContextCancellation(t *testing.T) {
	mock := &mockTransport{}
	eng := newEngine(mock)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := eng.search(ctx, "192.168.1.1", time.Minute,
			[]ssdp.SearchParams{{ST: testTarget}})
		done <- err
	}()

	waitForSent(t, mock, 1)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("search() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("search() did not return after context cancellation")
	}
}
