// Package entities provides the core domain types of the SDK: the host ABI
// constants (API groups, versions, result sentinels, slot types, channel
// states), lifecycle events and the serializable plugin manifest.
// These types carry no host pointers and can be used without cgo.
package entities
