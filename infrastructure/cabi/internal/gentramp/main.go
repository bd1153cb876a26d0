// Command gentramp writes the C trampoline tables of the cgo bridge.
//
// Wren foreign methods and finalizers receive no user data, so every Go
// callback bound to the host needs its own C function. gentramp emits a
// fixed number of them; each forwards its slot index to Go.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/reglet-dev/dome-sdk/application/template"
)

const header = `// Code generated by gentramp. DO NOT EDIT.

#ifndef DOME_SDK_TRAMPOLINES_H
#define DOME_SDK_TRAMPOLINES_H

#define DOME_METHOD_SLOTS {{len .methods}}
#define DOME_FINALIZER_SLOTS {{len .finalizers}}

#endif
`

const source = `// Code generated by gentramp. DO NOT EDIT.

#include "_cgo_export.h"
#include "trampolines.h"

{{range .methods}}static void dome_method_{{.}}(WrenVM* vm) { domeForeignMethod({{.}}, vm); }
{{end}}
WrenForeignMethodFn dome_method_trampolines[DOME_METHOD_SLOTS] = {
{{range .methods}}  dome_method_{{.}},
{{end}}};

{{range .finalizers}}static void dome_finalizer_{{.}}(void* data) { domeFinalize({{.}}, data); }
{{end}}
WrenFinalizerFn dome_finalizer_trampolines[DOME_FINALIZER_SLOTS] = {
{{range .finalizers}}  dome_finalizer_{{.}},
{{end}}};

void dome_channel_mix(CHANNEL_REF ref, float* buffer, size_t requestedSamples) {
  domeChannelMix(ref, buffer, requestedSamples);
}

void dome_channel_update(CHANNEL_REF ref, WrenVM* vm) {
  domeChannelUpdate(ref, vm);
}

void dome_channel_finish(CHANNEL_REF ref, WrenVM* vm) {
  domeChannelFinish(ref, vm);
}
`

func main() {
	methods := flag.Int("methods", 256, "number of foreign method trampolines")
	finalizers := flag.Int("finalizers", 64, "number of finalizer trampolines")
	dir := flag.String("dir", ".", "output directory")
	flag.Parse()

	if err := run(*dir, *methods, *finalizers); err != nil {
		slog.Error("gentramp failed", "error", err)
		os.Exit(1)
	}
}

func run(dir string, methods, finalizers int) error {
	if methods < 1 || finalizers < 1 {
		return fmt.Errorf("slot counts must be positive, got %d methods and %d finalizers", methods, finalizers)
	}
	data := map[string]any{
		"methods":    seq(methods),
		"finalizers": seq(finalizers),
	}
	engine := template.NewGoTemplateEngine()
	for name, raw := range map[string]string{"trampolines.h": header, "trampolines.c": source} {
		out, err := engine.Render([]byte(raw), data)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if err := os.WriteFile(filepath.Join(dir, name), out, 0o644); err != nil {
			return err
		}
	}
	return nil
}

func seq(n int) []int {
	s := make([]int, n)
	for i := range s {
		s[i] = i
	}
	return s
}
