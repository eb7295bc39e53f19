// Package users implements an account service core: signed session tokens,
// credential verification, current-user resolution, and layered access
// gates, plus the HTTP controllers that expose registration, login, social
// sign-in, token refresh, logout, and administrative account CRUD.
//
// Token flow:
//   - TokenService signs and validates short-lived bearer tokens whose
//     subject is the account email. Tokens are never persisted; validity is
//     purely time- and signature-based, so logout clears delivery (the
//     cookie) without invalidating copies already captured.
//   - CurrentUserResolver turns a raw token into a *User by validating the
//     token and re-querying the store on every request.
//
// Access gates:
//   - Guards run in a fixed order after resolution: resolved, active, then
//     superuser where required. The first denial wins, so a deactivated
//     superuser is refused as inactive, never as under-privileged.
//
// Persistence:
//   - Users is a Bun-backed repository with email as the natural key.
//     Registration enforces email uniqueness; the social sign-in path uses
//     GetOrCreate so repeated assertions for one email converge on a single
//     record.
package users
