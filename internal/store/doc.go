// Package store holds the gateway's principal registry.
//
// A Principal pairs an opaque bearer token issued by the gateway with the
// Pipedrive API token used for upstream calls on the principal's behalf.
// Principals are seeded at startup from configuration (users section and
// MCP_USER_<ID> environment variables) and managed at runtime through the
// admin API.
//
// MemoryStore is the only implementation. State lives for the process
// lifetime; a restart forgets runtime-created principals.
//
// Listings never expose the upstream credential: MaskUpstreamToken keeps the
// last four characters only.
package store
