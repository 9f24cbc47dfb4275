// Package config provides user configuration management for upnpdisco.
//
// This package manages a YAML-based configuration file that stores default
// discovery settings: the LAN interface address to bind, the gateway to
// probe, and the discovery timeouts. The configuration follows OS-specific
// conventions for storage location.
//
// # Configuration File Location
//
//   - Linux: $XDG_CONFIG_HOME/upnpdisco/config.yaml or $HOME/.config/upnpdisco/config.yaml
//   - macOS: $HOME/.config/upnpdisco/config.yaml
//   - Windows: %LOCALAPPDATA%\upnpdisco\config.yaml
//
// # Usage Example
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	cfg.GatewayAddress = "192.168.1.1"
//	if err := cfg.Save(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Thread Safety
//
// File operations are protected by a mutex and use an atomic
// write-and-rename to avoid corrupting the file on crash.
package config
