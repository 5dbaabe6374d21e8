// Package config loads runtime configuration for the FoodHub CLI client.
//
// Sources, later ones winning:
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c or -config.
//  3. FOODHUB_CLIENT_* environment variables.
//  4. Command-line flags.
//
// Supported flags
//
//	-a string   base URL of the FoodHub HTTP API
//	-i int      request timeout (seconds)
//	-d string   device id used for guest sessions
//
// JSON durations accept "10s" or integer nanoseconds:
//
//	{
//	  "server_url": "http://127.0.0.1:8080",
//	  "request_timeout": "10s",
//	  "device_id": "6a1f2a3e-59a4-4c55-9b0e-6f1f5c0a7d11"
//	}
package config
