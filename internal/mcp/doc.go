// Package mcp implements the Model Context Protocol endpoint of the gateway.
//
// # Protocol
//
// Clients speak JSON-RPC 2.0 over a single endpoint:
//
//	POST /mcp
//	Authorization: Bearer mcp_...
//
// Supported methods are initialize, notifications/initialized, tools/list,
// tools/call, prompts/list and prompts/get. Anything else answers -32601.
//
// # Sessions
//
// initialize records the session for the calling principal and echoes the id
// in the Mcp-Session-Id header. The id comes from that header when the client
// sends one, otherwise from the request id. With RequireInitialize set,
// tools/* and prompts/* are refused on sessions that never initialized.
//
// # Tool Execution
//
//	{
//	  "jsonrpc": "2.0",
//	  "method": "tools/call",
//	  "params": {"name": "get_deal", "arguments": {"id": 42}},
//	  "id": 2
//	}
//
// The tool result is serialized as indented JSON into a single text content
// block. Upstream failures stay in-band: the envelope carries success=false and
// the MCP result sets isError. Unknown tools answer 404 with -32601 and bad
// arguments answer 400 with -32602.
//
// Each principal's calls reach Pipedrive with that principal's own API token;
// the Server obtains a client per request from its UpstreamFactory.
package mcp
