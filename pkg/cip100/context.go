package cip100

import (
	_ "embed"
)

// ContextURL is the published location of the CIP-100 common context.
const ContextURL = "https://raw.githubusercontent.com/cardano-foundation/CIPs/master/CIP-0100/cip-0100.common.jsonld"

//go:embed cip-0100.common.jsonld
var commonContext []byte

// Context returns a copy of the CIP-100 common context document.
func Context() []byte {
	out := make([]byte, len(commonContext))
	copy(out, commonContext)
	return out
}

// Preload returns the context documents to serve without network access,
// keyed by location.
func Preload() map[string][]byte {
	return map[string][]byte{ContextURL: Context()}
}
