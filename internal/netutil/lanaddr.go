// Package netutil provides small helpers for picking discovery addresses
// when the user supplies none.
package netutil

import (
	"fmt"
	"net"
)

// LocalLANAddress returns the IPv4 address of the interface the OS would
// use for outbound traffic. Dialing UDP sends no packets; it only asks the
// kernel for a route.
func LocalLANAddress() (string, error) {
	conn, err := net.Dial("udp4", "8.8.8.8:53")
	if err != nil {
		return "", fmt.Errorf("cannot determine LAN address: %w", err)
	}
	defer conn.Close()

	localAddr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok || localAddr.IP == nil {
		return "", fmt.Errorf("cannot determine LAN address: unexpected local address %v", conn.LocalAddr())
	}
	return localAddr.IP.String(), nil
}

// GuessGateway guesses the gateway address for a LAN address by assuming
// the common home-network convention of the .1 host on a /24. Good enough
// as a flag default; users on other layouts pass --gateway explicitly.
func GuessGateway(lanAddress string) (string, error) {
	ip := net.ParseIP(lanAddress)
	if ip == nil {
		return "", fmt.Errorf("invalid LAN address %q", lanAddress)
	}
	ip4 := ip.To4()
	if ip4 == nil {
		return "", fmt.Errorf("LAN address %q is not IPv4", lanAddress)
	}

	guess := make(net.IP, len(ip4))
	copy(guess, ip4)
	guess[3] = 1
	return guess.String(), nil
}
