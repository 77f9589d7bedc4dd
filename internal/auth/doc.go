// Package auth authenticates requests on the protected route set.
//
// The Authenticate middleware extracts the bearer credential, verifies it
// against the secret currently held by the secret store and makes the
// verified claims available to handlers through ClaimsFromContext. It does
// not enforce roles; handlers decide what a role may do.
package auth
