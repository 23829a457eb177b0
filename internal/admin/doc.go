// Package admin provides the principal management API and a client for it.
//
// # Endpoints
//
// All endpoints require the shared admin secret:
//
//	Authorization: Bearer <ADMIN_TOKEN>
//
//   - POST /admin/users - Create a principal from {name, email, pipedriveApiToken}
//   - GET /admin/users - List principals (Pipedrive tokens masked) with stats
//   - DELETE /admin/users/{token} - Revoke the principal owning a bearer token
//
// # Client
//
// Client wraps the same endpoints for the pipedrive-admin CLI:
//
//	c := admin.NewClient("http://localhost:3000", adminToken)
//	created, err := c.CreateUser(ctx, admin.CreateUserRequest{...})
package admin
