// Package auth provides accounts, sessions and route gating.
//
// Two modes are supported, selected by AUTH_MODE:
//   - "local" (default): accounts in the users table, session cookies for
//     browsers and bearer tokens for API clients.
//   - "none": every request is anonymous and role checks are skipped.
//     Intended for local development only.
//
// Browsing places and events is public. Middleware.Handler identifies the
// caller when it can; RequireAuth guards favourites, reviews and the
// profile, and RequireRole(entities.UserRoleAdmin) guards the back-office.
//
// Extract the caller in handlers:
//
//	userID := auth.GetUserID(c) // DefaultUserID when anonymous
//	user := auth.GetUser(c)     // nil when anonymous
package auth
