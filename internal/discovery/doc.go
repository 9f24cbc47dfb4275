// Package discovery locates a UPnP-capable gateway on the local network
// segment using SSDP M-SEARCH requests over UDP multicast.
//
// # Discovery Process
//
// The engine sends M-SEARCH request datagrams to the gateway's SSDP port
// and keeps a registry of pending searches, each expecting a reply whose
// search target (ST) matches the one requested. A reply carrying the
// upnp:rootdevice wildcard satisfies any pending search for that gateway.
// Each pending search has its own timeout; the first matching reply or the
// first timeout to fire settles the result.
//
// Two operations are exposed through Client:
//
//   - MSearch: one discovery attempt with a known search target
//   - FuzzyMSearch: trial discovery for gateways whose accepted search
//     target is unknown, batching candidate requests under a shared
//     timeout budget and then disambiguating the batch that drew a reply
//
// # Usage Example
//
//	client := discovery.NewClient()
//	params, reply, err := client.FuzzyMSearch(ctx, "192.168.1.5", "192.168.1.1")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("gateway answers %s at %s\n", params.ST, reply.Location)
//
// # Network Requirements
//
//   - Requires multicast support on the selected interface
//   - The gateway must be on the same local segment (multicast TTL is 1)
//   - Each operation binds its own UDP socket and releases it on return
//
// NOTIFY advertisements are decoded but ignored; this package only
// correlates solicited replies with the requests that prompted them.
package discovery
