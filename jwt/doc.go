// Package jwt signs and verifies compact JWS tokens with caller-controlled
// headers.
//
// A Manager is bound to one algorithm and key pair. Encode accepts arbitrary
// JSON-shaped header and claim mappings and rejects anything without a JSON
// form before signing. Decode verifies structure, algorithm, signature and
// time claims, in that order, and returns the header exactly as it was signed.
package jwt
