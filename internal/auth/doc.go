// Package auth provides bearer token authentication for pipedrive-gateway.
//
// # Principal Tokens
//
// Every MCP request carries an opaque token issued by the gateway:
//
//	Authorization: Bearer mcp_<64 hex chars>
//
// The Authenticator resolves the token through a store.PrincipalStore. The
// scheme match is case-sensitive with exactly one space. Rejections carry one
// of four reasons (missing header, invalid format, missing token, invalid
// token); revoked and never-issued tokens are indistinguishable.
//
// # Middleware Modes
//
//	Middleware(a)            // required: 401 with JSON-RPC code -32001
//	OptionalMiddleware(a)    // anonymous on any rejection
//	AdminMiddleware(secret)  // 500 unconfigured, 401 bad header, 403 wrong token
//
// The authenticated principal is available to handlers via FromContext.
//
// # Logging
//
// Every attempt is logged with the client address. Tokens appear only as
// MaskToken output (prefix and suffix).
package auth
