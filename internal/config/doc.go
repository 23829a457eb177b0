// Package config handles configuration loading for pipedrive-gateway.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable expansion.
// The package provides validation and sensible defaults, so a gateway can also
// run from environment variables alone (see LoadOrDefault).
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from PIPEDRIVE_GATEWAY_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/pipedrive-gateway/gateway.yaml
//  3. ~/.config/pipedrive-gateway/gateway.yaml
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	auth:
//	  admin_token: "${MCP_ADMIN_TOKEN}"
//
// PORT, MCP_ADMIN_TOKEN and PIPEDRIVE_BASE_URL override the file when set.
//
// # Users
//
// Principals come from the users section and from MCP_USER_<ID> variables:
//
//	MCP_USER_alice=<bearer_token>:<pipedrive_api_token>:Alice:alice@example.com
//
// # Configuration Sections
//
//	server:
//	  http_addr: "0.0.0.0:8080"
//
//	rate_limit:
//	  max_requests: 100
//	  window: "1m"
//	  cleanup_interval: "5m"
//
//	pipedrive:
//	  base_url: "https://api.pipedrive.com/v1"
//	  timeout: "30s"
//
//	optimizer:
//	  max_tokens_per_response: 150000
//	  chars_per_token: 4
//
//	sessions:
//	  require_initialize: false
//
//	logging:
//	  level: "info"    # debug, info, warn, error
//	  format: "text"   # text, json
//
//	metrics:
//	  enabled: false
//	  path: "/metrics"
package config
