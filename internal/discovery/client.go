package discovery

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lanhound/upnpdisco/internal/logging"
	"github.com/lanhound/upnpdisco/internal/ssdp"
	"github.com/lanhound/upnpdisco/internal/transport"
)

// Default discovery parameters. Batch size and the verification timeout
// follow the behavior gateways in the field were tuned against; both are
// plain fields on Client, not invariants.
const (
	// DefaultSearchTimeout is the timeout for a single M-SEARCH
	DefaultSearchTimeout = 1 * time.Second

	// DefaultFuzzyTimeout is the total budget for the batch phase of
	// fuzzy discovery, divided evenly across all candidates
	DefaultFuzzyTimeout = 30 * time.Second

	// DefaultBatchSize is how many candidate requests fuzzy discovery
	// sends concurrently per batch
	DefaultBatchSize = 2

	// DefaultVerifyTimeout is the per-candidate timeout used when
	// disambiguating the batch that drew a reply
	DefaultVerifyTimeout = 3 * time.Second
)

// Dial opens a Transport bound to the given LAN address. Tests substitute
// an in-memory implementation here.
type Dial func(lanAddress string) (transport.Transport, error)

// Client performs SSDP gateway discovery. The zero value is not usable;
// construct with NewClient and adjust fields before the first call.
type Client struct {
	// Timeout bounds a single MSearch call
	Timeout time.Duration

	// FuzzyTimeout is the total batch-phase budget for FuzzyMSearch
	FuzzyTimeout time.Duration

	// BatchSize is the number of candidates probed together per batch
	BatchSize int

	// VerifyTimeout bounds each individual candidate retry during
	// disambiguation
	VerifyTimeout time.Duration

	// Dial opens the UDP transport for each operation
	Dial Dial
}

// NewClient returns a Client with default timeouts and the real multicast
// UDP transport.
func NewClient() *Client {
	return &Client{
		Timeout:       DefaultSearchTimeout,
		FuzzyTimeout:  DefaultFuzzyTimeout,
		BatchSize:     DefaultBatchSize,
		VerifyTimeout: DefaultVerifyTimeout,
		Dial: func(lanAddress string) (transport.Transport, error) {
			return transport.Listen(lanAddress)
		},
	}
}

// MSearch performs one discovery attempt against a known gateway address
// with a fully-specified search target. It binds a fresh transport for the
// attempt and always releases it, on success, timeout and error paths
// alike. A timeout surfaces as *SearchTimeoutError naming the gateway
// address and port.
func (c *Client) MSearch(ctx context.Context, lanAddress, gatewayAddress string, params ssdp.SearchParams) (*ssdp.Datagram, error) {
	return c.msearch(ctx, lanAddress, gatewayAddress, params, c.Timeout)
}

func (c *Client) msearch(ctx context.Context, lanAddress, gatewayAddress string, params ssdp.SearchParams, timeout time.Duration) (*ssdp.Datagram, error) {
	tr, err := c.Dial(lanAddress)
	if err != nil {
		return nil, fmt.Errorf("SSDP transport setup failed: %w", err)
	}
	defer tr.Close()

	eng := newEngine(tr)
	return eng.search(ctx, gatewayAddress, timeout, []ssdp.SearchParams{params})
}

// FuzzyMSearch discovers which search target a gateway accepts when it is
// not known in advance. It probes the full candidate list in small
// batches, each batch sharing one result slot and a slice of the total
// timeout budget; the first batch that draws a reply is then disambiguated
// by retrying its candidates one at a time with fresh, independent
// searches. Returns the first candidate that verifies, with its reply.
func (c *Client) FuzzyMSearch(ctx context.Context, lanAddress, gatewayAddress string) (ssdp.SearchParams, *ssdp.Datagram, error) {
	viable, err := c.fuzzyBatchPhase(ctx, lanAddress, gatewayAddress)
	if err != nil {
		return ssdp.SearchParams{}, nil, err
	}

	// A batched reply cannot reveal which of the concurrently-sent
	// requests it answered, so verify each candidate on its own. An
	// individual timeout only moves on to the next candidate.
	for _, params := range viable {
		reply, err := c.msearch(ctx, lanAddress, gatewayAddress, params, c.VerifyTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return ssdp.SearchParams{}, nil, ctx.Err()
			}
			logging.Debug("candidate did not verify individually",
				zap.String("st", params.ST),
				zap.Error(err),
			)
			continue
		}
		logging.Info("gateway discovered",
			zap.String("gateway", gatewayAddress),
			zap.String("st", params.ST),
		)
		return params, reply, nil
	}
	return ssdp.SearchParams{}, nil, ErrDiscoveryFailed
}

// fuzzyBatchPhase probes candidates in batches over one shared transport
// until a batch draws a reply, and returns that batch's parameter sets.
// The transport is released on every exit path.
func (c *Client) fuzzyBatchPhase(ctx context.Context, lanAddress, gatewayAddress string) ([]ssdp.SearchParams, error) {
	candidates := ssdp.SearchCandidates()
	if len(candidates) == 0 {
		return nil, fmt.Errorf("no search candidates available")
	}

	tr, err := c.Dial(lanAddress)
	if err != nil {
		return nil, fmt.Errorf("SSDP transport setup failed: %w", err)
	}
	defer tr.Close()
	eng := newEngine(tr)

	batchSize := c.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	batchTimeout := c.FuzzyTimeout / time.Duration(len(candidates))

	for start := 0; start < len(candidates); start += batchSize {
		end := start + batchSize
		if end > len(candidates) {
			end = len(candidates)
		}
		batch := candidates[start:end]

		logging.Debug("sending M-SEARCH batch",
			zap.Int("size", len(batch)),
			zap.Duration("timeout", batchTimeout),
		)
		if _, err := eng.search(ctx, gatewayAddress, batchTimeout, batch); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}
		return batch, nil
	}
	return nil, &SearchTimeoutError{Gateway: gatewayAddress, Port: ssdp.Port}
}
