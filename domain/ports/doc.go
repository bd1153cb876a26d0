// Package ports defines the host capability groups the SDK calls into.
//
// Each interface mirrors one versioned C table handed over by DOME's getAPI
// function. The cgo adapter in infrastructure/cabi implements them on top of
// the real host tables; testing/domehost implements them in memory.
//
// Pointer types are opaque. They are only ever passed back to the host that
// produced them and must not be retained past the callback they arrived in.
package ports
