// Package jwt implements the bearer credential codec.
//
// Credentials are HS256-signed JWTs carrying exactly three claims:
//
//	{"sub": "<subject>", "role": "<role>", "exp": <epoch seconds>}
//
// Issue and Verify are pure functions: the signing secret and the current
// time are always passed in, so the codec holds no state and can be tested
// with a fixed clock. Verification accepts a token whose exp is in the past
// by less than the leeway and rejects a token signed with any other secret.
package jwt
