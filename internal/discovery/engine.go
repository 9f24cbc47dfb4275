package discovery

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lanhound/upnpdisco/internal/logging"
	"github.com/lanhound/upnpdisco/internal/ssdp"
	"github.com/lanhound/upnpdisco/internal/transport"
)

// pendingSearch is one in-flight M-SEARCH request awaiting a matching
// reply. A batch of parameter sets produces one record per request, all
// sharing a single resultSlot; each record carries its own timeout timer,
// and any timer firing cancels the shared slot.
type pendingSearch struct {
	gateway net.IP
	target  string
	slot    *resultSlot
	timer   *time.Timer
}

// engine matches inbound SSDP reply datagrams against the registry of
// pending searches. It borrows one Transport for its lifetime; the caller
// that dialed the transport is responsible for closing it.
//
// The registry is an insertion-ordered slice. The read-loop goroutine and
// request-issuing goroutines both touch it, so it is guarded by a mutex;
// the match pass partitions into keep/drop and rebuilds rather than
// mutating while iterating.
type engine struct {
	tr      transport.Transport
	localIP net.IP

	mu      sync.Mutex
	pending []*pendingSearch
}

// newEngine wires the engine to tr and starts datagram delivery
func newEngine(tr transport.Transport) *engine {
	e := &engine{
		tr:      tr,
		localIP: tr.LocalIP(),
	}
	tr.Start(e.onDatagram)
	return e
}

// search sends one M-SEARCH request per parameter set to gateway:1900 and
// waits for the first matching reply. All requests share one result slot;
// each has an independent timeout of the given duration, and whichever
// completion happens first (matching reply, timeout, ctx cancellation)
// wins.
//
// An empty search target in any parameter set is a caller programming
// error and fails before any network I/O.
func (e *engine) search(ctx context.Context, gateway string, timeout time.Duration, paramSets []ssdp.SearchParams) (*ssdp.Datagram, error) {
	if len(paramSets) == 0 {
		return nil, fmt.Errorf("no search parameter sets given")
	}
	for _, params := range paramSets {
		if params.ST == "" {
			return nil, fmt.Errorf("search parameter set has an empty search target")
		}
	}
	gatewayIP := net.ParseIP(gateway)
	if gatewayIP == nil {
		return nil, fmt.Errorf("invalid gateway address %q", gateway)
	}

	slot := newResultSlot()
	records := make([]*pendingSearch, 0, len(paramSets))
	for _, params := range paramSets {
		rec := &pendingSearch{
			gateway: gatewayIP,
			target:  params.ST,
			slot:    slot,
		}
		rec.timer = time.AfterFunc(timeout, func() {
			slot.cancel(&SearchTimeoutError{Gateway: gateway, Port: ssdp.Port})
		})
		records = append(records, rec)
	}

	e.mu.Lock()
	e.pending = append(e.pending, records...)
	e.mu.Unlock()

	e.sendSearchRequests(gateway, paramSets)

	select {
	case <-slot.done:
	case <-ctx.Done():
		slot.cancel(ctx.Err())
	}

	// Stop this batch's timers on every exit path; a timer that already
	// fired or lost the race is a harmless no-op.
	for _, rec := range records {
		rec.timer.Stop()
	}

	<-slot.done
	if slot.err != nil {
		return nil, slot.err
	}
	return slot.reply, nil
}

// sendSearchRequests encodes and transmits each parameter set to
// gateway:1900. Send failures are logged, not surfaced: the timeout on the
// pending search already covers a request that never made it out.
func (e *engine) sendSearchRequests(gateway string, paramSets []ssdp.SearchParams) {
	dst := &net.UDPAddr{IP: net.ParseIP(gateway), Port: ssdp.Port}
	for _, params := range paramSets {
		logging.Debug("sending M-SEARCH",
			zap.String("gateway", dst.String()),
			zap.String("st", params.ST),
		)
		if err := e.tr.Send(ssdp.EncodeMSearch(params), dst); err != nil {
			logging.Warn("failed to send M-SEARCH",
				zap.String("gateway", dst.String()),
				zap.String("st", params.ST),
				zap.Error(err),
			)
		}
	}
}

// onDatagram is the transport delivery callback. Datagrams looped back
// from our own multicast transmissions are ignored, undecodable datagrams
// are logged and discarded, and only OK replies reach the match pass;
// M-SEARCH requests from other hosts and NOTIFY advertisements are not
// processed.
func (e *engine) onDatagram(payload []byte, src *net.UDPAddr) {
	if e.localIP != nil && src.IP.Equal(e.localIP) {
		return
	}

	datagram, err := ssdp.Decode(payload)
	if err != nil {
		logging.Debug("discarding undecodable datagram",
			zap.String("from", src.String()),
			zap.Error(err),
		)
		logging.LogRawBytes("undecodable datagram bytes", payload)
		return
	}

	if datagram.Kind != ssdp.KindOK {
		logging.Debug("ignoring non-reply datagram",
			zap.String("from", src.String()),
			zap.Stringer("kind", datagram.Kind),
		)
		return
	}

	e.onReplyMatched(src.IP, datagram)
}

// onReplyMatched runs one match pass over the registry. A pending search
// matches when the sender is its gateway and the reply's search target
// equals its own, or is the upnp:rootdevice wildcard. Matching records
// have their timers stopped and their shared slot resolved (first
// resolution wins). Records whose slot completed earlier are dropped
// lazily here; live non-matching records keep their relative order.
func (e *engine) onReplyMatched(sender net.IP, reply *ssdp.Datagram) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, rec := range e.pending {
		if sender.Equal(rec.gateway) && (reply.ST == rec.target || reply.ST == ssdp.RootDevice) {
			rec.timer.Stop()
			rec.slot.resolve(reply)
		}
	}

	keep := make([]*pendingSearch, 0, len(e.pending))
	for _, rec := range e.pending {
		if rec.slot.resolved() {
			rec.timer.Stop()
			continue
		}
		keep = append(keep, rec)
	}
	e.pending = keep
}
