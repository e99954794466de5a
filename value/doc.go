// Package value defines the closed JSON value model used for token headers and
// claims.
//
// A [Value] is one of null, bool, number, string, list, or object. Values are
// built from arbitrary Go data with [Of] and [MapOf], which walk the input
// structurally and reject anything that has no JSON representation (functions,
// channels, complex numbers, plain structs, non-finite floats, cyclic data).
// Once a [Map] exists it can always be encoded, so serialization failures surface
// at construction and never half-way through signing.
//
// Numbers keep their canonical JSON text, which makes encode/decode round trips
// exact: a value decoded from a token compares [Value.Equal] to the value that
// was signed.
package value
