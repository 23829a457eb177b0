// Package gateway assembles the pipedrive-gateway HTTP server.
//
// # Overview
//
// New builds every process-scoped component once and passes them explicitly:
// the in-memory principal store (seeded from config and MCP_USER_* variables),
// the bearer authenticator, the per-principal rate limiter, the MCP session
// registry, the tool catalog and the MCP dispatcher. Each principal's tool
// calls reach Pipedrive with that principal's own API token.
//
// # Routes
//
//   - POST /mcp - authenticated, rate limited JSON-RPC endpoint
//   - GET /health - unauthenticated health and user stats
//   - GET / - server info; names the caller when a valid bearer token is sent
//   - /admin/users - principal management behind the admin secret
//   - GET /metrics - Prometheus exposition when metrics.enabled is set
//
// Every route runs inside Logging and Recovery middleware.
//
// # Lifecycle
//
//	gw, err := gateway.New(cfg, logger)
//	if err != nil { ... }
//	return gw.Run(ctx) // blocks until ctx is canceled
//
// Run shuts the HTTP server down gracefully and stops the rate limiter's
// background sweep.
package gateway
