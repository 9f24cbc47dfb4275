package ssdp

// Search targets known to be accepted by consumer gateways. Which one a
// given gateway answers is firmware-specific, so fuzzy discovery tries
// them all.
var gatewayTargets = []string{
	"urn:schemas-upnp-org:device:InternetGatewayDevice:1",
	"urn:schemas-upnp-org:device:WANDevice:1",
	"urn:schemas-upnp-org:service:WANIPConnection:1",
	"urn:schemas-upnp-org:service:WANCommonInterfaceConfig:1",
	"urn:schemas-wifialliance-org:device:WFADevice:1",
	RootDevice,
	"ssdp:all",
}

// Header orderings observed in the wild. A handful of gateway firmwares
// only reply when MAN/MX/ST arrive in the order their parser expects.
var headerOrders = [][]string{
	{"MAN", "MX", "ST"},
	{"ST", "MAN", "MX"},
}

// SearchCandidates returns the ordered list of M-SEARCH parameter sets to
// try when the gateway's accepted search target is unknown. The list is
// deterministic: for each candidate target, every header ordering is
// produced before moving to the next target.
func SearchCandidates() []SearchParams {
	candidates := make([]SearchParams, 0, len(gatewayTargets)*len(headerOrders))
	for _, st := range gatewayTargets {
		for _, order := range headerOrders {
			candidates = append(candidates, SearchParams{
				ST:          st,
				Man:         DefaultMan,
				MX:          DefaultMX,
				HeaderOrder: order,
			})
		}
	}
	return candidates
}
