// Package config loads runtime configuration for the socialhub console
// client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON or YAML file selected via -c or -config.
//  3. SOCIALHUB_* environment variables.
//  4. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-a string        address:port of the backend gRPC endpoint
//	-m string        remote store: grpc or memory
//	-i duration      backend reachability check interval
//	-public-url      base of public object URLs
//	-log-format      json, text or zap
//	-log-level       debug, info, warn or error
//
// # File schema
//
// Durations can be strings like "3s" or integer nanoseconds:
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "mode": "grpc",
//	  "online_check_interval": "3s"
//	}
package config
