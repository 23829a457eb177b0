// Package pipedrive is a typed client for the Pipedrive v1 REST API.
//
// A Client is bound to one API token and created per request from a shared
// Config; the http.Client inside Config is shared across principals. Every
// method returns an *Envelope, never an error: transport failures, non-2xx
// statuses and undecodable bodies become envelopes with Success=false,
// Error holding a short message and ErrorInfo the upstream's explanation.
//
// Resource types model the handful of fields the gateway reads explicitly.
// Everything else the API returns is kept in the ordered Extra map and written
// back after the core fields, so pass-through responses lose nothing.
package pipedrive
