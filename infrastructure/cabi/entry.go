package cabi

/*
#include "entry.h"
*/
import "C"

import "unsafe"

// EntryPoints holds the C addresses of the exported PLUGIN_* functions.
// DOME resolves them with dlsym; a host that links the plugin into its own
// binary can take them from here instead.
type EntryPoints struct {
	OnInit     unsafe.Pointer
	PreUpdate  unsafe.Pointer
	PostUpdate unsafe.Pointer
	PreDraw    unsafe.Pointer
	PostDraw   unsafe.Pointer
	OnShutdown unsafe.Pointer
}

// Entries returns the entry point addresses.
func Entries() EntryPoints {
	return EntryPoints{
		OnInit:     C.dome_entry_point(C.DOME_ENTRY_INIT),
		PreUpdate:  C.dome_entry_point(C.DOME_ENTRY_PRE_UPDATE),
		PostUpdate: C.dome_entry_point(C.DOME_ENTRY_POST_UPDATE),
		PreDraw:    C.dome_entry_point(C.DOME_ENTRY_PRE_DRAW),
		PostDraw:   C.dome_entry_point(C.DOME_ENTRY_POST_DRAW),
		OnShutdown: C.dome_entry_point(C.DOME_ENTRY_SHUTDOWN),
	}
}
