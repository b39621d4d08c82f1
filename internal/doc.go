// Package internal contains helpers that are intentionally private to
// authgate, currently secure random token value generation.
//
// Nothing here may appear in the public API or be imported from outside
// the module.
package internal
