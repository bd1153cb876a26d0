package sdk

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is a package-level singleton for better performance.
var validate = validator.New()

// ValidateArgs checks foreign method arguments against a struct with
// validation tags. Slots 1..n are converted with SlotValue and decoded into
// target by slot number, which each field names in its json tag:
//
//	type playArgs struct {
//		Freq float64 `json:"1" validate:"gt=20,lt=20000"`
//		Ms   float64 `json:"2" validate:"gte=0"`
//	}
func ValidateArgs(vm *VM, target any) error {
	count, err := vm.SlotCount()
	if err != nil {
		return err
	}
	values := make(map[string]any, count)
	for slot := 1; slot < count; slot++ {
		v, err := SlotValue(vm, slot)
		if err != nil {
			return fmt.Errorf("failed to read argument %d: %w", slot, err)
		}
		values[fmt.Sprint(slot)] = v
	}
	return ValidateValues(values, target)
}

// ValidateValues decodes values into target through JSON and validates the
// result.
func ValidateValues(values map[string]any, target any) error {
	decoded, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("failed to marshal arguments: %w", err)
	}
	if err := json.Unmarshal(decoded, target); err != nil {
		return fmt.Errorf("failed to decode arguments: %w", err)
	}
	if err := validate.Struct(target); err != nil {
		return fmt.Errorf("argument validation failed: %w", err)
	}
	return nil
}
