// Package capability loads the host capability table at plugin init.
package capability

import (
	"fmt"

	"github.com/reglet-dev/dome-sdk/domain/entities"
	"github.com/reglet-dev/dome-sdk/domain/errors"
	"github.com/reglet-dev/dome-sdk/domain/ports"
)

// Table is the set of capability groups bound once per plugin load.
// It is never mutated after Load returns.
type Table struct {
	dome  ports.DomeAPI
	wren  ports.WrenAPI
	audio ports.AudioAPI
}

// Dome returns the DOME API group.
func (t *Table) Dome() ports.DomeAPI { return t.dome }

// Wren returns the Wren slot API group.
func (t *Table) Wren() ports.WrenAPI { return t.wren }

// Audio returns the audio API group.
func (t *Table) Audio() ports.AudioAPI { return t.audio }

// Load requests every capability group at the version this SDK was built
// against. Any missing group fails the whole load with an
// *errors.InvalidCapabilityTableError.
func Load(provider ports.APIProvider) (*Table, error) {
	if provider == nil {
		return nil, &errors.InvalidCapabilityTableError{Reason: "nil getter"}
	}

	t := &Table{}
	for _, api := range entities.APITypes() {
		group := provider.GetAPI(api, api.Version())
		if group == nil {
			return nil, &errors.InvalidCapabilityTableError{API: api, Version: api.Version()}
		}
		if err := t.bind(api, group); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// New builds a table from already bound groups.
func New(dome ports.DomeAPI, wren ports.WrenAPI, audio ports.AudioAPI) (*Table, error) {
	return Load(ports.APIProviderFunc(func(api entities.APIType, _ int32) any {
		switch api {
		case entities.APIDome:
			if dome != nil {
				return dome
			}
		case entities.APIWren:
			if wren != nil {
				return wren
			}
		case entities.APIAudio:
			if audio != nil {
				return audio
			}
		}
		return nil
	}))
}

func (t *Table) bind(api entities.APIType, group any) error {
	ok := false
	switch api {
	case entities.APIDome:
		t.dome, ok = group.(ports.DomeAPI)
	case entities.APIWren:
		t.wren, ok = group.(ports.WrenAPI)
	case entities.APIAudio:
		t.audio, ok = group.(ports.AudioAPI)
	}
	if !ok {
		return &errors.InvalidCapabilityTableError{
			API:     api,
			Version: api.Version(),
			Reason:  fmt.Sprintf("%s API has unexpected type %T", api, group),
		}
	}
	return nil
}
