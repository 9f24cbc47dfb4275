// Package logging provides structured logging for the upnpdisco tool.
//
// This package wraps zap logger with convenience functions for the logging
// patterns used throughout discovery: lifecycle events, per-datagram debug
// traces and raw dumps of undecodable datagrams.
//
// # Log Levels
//
// The package supports standard log levels:
//   - Debug: Detailed debugging info (sent requests, decode failures, hex dumps)
//   - Info: Normal operations (discovery started, gateway found)
//   - Warn: Non-fatal issues (send failures, retries)
//   - Error: Fatal issues (socket setup failures)
//
// # Structured Logging
//
// All log functions use structured fields for queryability:
//
//	logging.Debug("sending M-SEARCH",
//	    zap.String("gateway", "192.168.1.1"),
//	    zap.String("st", "upnp:rootdevice"),
//	)
//
// # Configuration
//
// Logging is silent by default so CLI output stays clean. Set the
// UPNPDISCO_LOG_LEVEL environment variable (or pass --log-level) to enable
// it:
//
//	UPNPDISCO_LOG_LEVEL=debug upnpdisco discover
//
// # Thread Safety
//
// All logging functions are safe for concurrent use. The underlying zap
// logger handles synchronization automatically.
package logging
