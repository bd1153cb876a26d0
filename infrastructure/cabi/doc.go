// Package cabi is the cgo side of the plugin: it exports the PLUGIN_*
// entry points DOME looks up, binds the host's C function tables to the
// ports interfaces and routes C callbacks back into Go.
//
// Importing the package is enough to make a c-shared build loadable by
// DOME; plugin code talks to the host through application/plugin only.
package cabi

//go:generate go run ./internal/gentramp -methods 256 -finalizers 64 -dir .
