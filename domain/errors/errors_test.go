package errors

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reglet-dev/dome-sdk/domain/entities"
)

func TestInvalidCapabilityTableError(t *testing.T) {
	err := &InvalidCapabilityTableError{API: entities.APIAudio, Version: 0}

	assert.Equal(t, "invalid capability table: host does not provide audio API v0", err.Error())
	assert.True(t, err.LoadFailure())
	assert.Equal(t, entities.ResultUnknown, entities.ResultFrom(err))
	assert.Equal(t, entities.ResultUnknown, entities.ResultFrom(fmt.Errorf("init: %w", err)))

	detail := err.ToErrorDetail()
	assert.Equal(t, "load", detail.Type)
	assert.Equal(t, "audio", detail.Code)
}

func TestInvalidCapabilityTableError_Reason(t *testing.T) {
	err := &InvalidCapabilityTableError{Reason: "nil getter"}
	assert.Equal(t, "invalid capability table: nil getter", err.Error())
}

func TestHookError(t *testing.T) {
	baseErr := fmt.Errorf("texture missing")
	err := &HookError{Event: entities.EventPreDraw, Err: baseErr}

	assert.Equal(t, "pre_draw hook failed: texture missing", err.Error())
	assert.True(t, errors.Is(err, baseErr))
	assert.Equal(t, entities.ResultFailure, entities.ResultFrom(err))

	var hookErr *HookError
	require.True(t, errors.As(err, &hookErr))
	assert.Equal(t, entities.EventPreDraw, hookErr.Event)

	detail := err.ToErrorDetail()
	assert.Equal(t, "hook", detail.Type)
	require.NotNil(t, detail.Wrapped)
	assert.Equal(t, "internal", detail.Wrapped.Type)
}

func TestHookError_WrappedLoadFailure(t *testing.T) {
	inner := fmt.Errorf("asset: %w", &InvalidCapabilityTableError{Reason: "stale table"})
	err := &HookError{Event: entities.EventPreUpdate, Err: inner}

	assert.False(t, err.LoadFailure())
	assert.Equal(t, entities.ResultFailure, entities.ResultFrom(err))
	assert.Equal(t, entities.ResultFailure, entities.ResultFrom(fmt.Errorf("dispatch: %w", err)))

	var tableErr *InvalidCapabilityTableError
	assert.True(t, errors.As(err, &tableErr), "the cause stays reachable")
}

func TestRegistrationError(t *testing.T) {
	tests := []struct {
		name string
		err  *RegistrationError
		want string
	}{
		{
			name: "module",
			err:  &RegistrationError{Module: "external"},
			want: "failed to register module external",
		},
		{
			name: "class",
			err:  &RegistrationError{Module: "external", Class: "ExternalClass"},
			want: "failed to register class ExternalClass in module external",
		},
		{
			name: "method with cause",
			err: &RegistrationError{
				Module: "external",
				Class:  "ExternalClass",
				Method: "ExternalClass.alert(_)",
				Err:    ErrTrampolinesExhausted,
			},
			want: "failed to register method ExternalClass.alert(_) in module external: callback trampolines exhausted",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
			assert.Equal(t, entities.ResultFailure, entities.ResultFrom(tt.err))
			assert.Equal(t, "registration", tt.err.ToErrorDetail().Type)
		})
	}

	wrapped := &RegistrationError{Module: "m", Err: ErrTrampolinesExhausted}
	assert.True(t, errors.Is(wrapped, ErrTrampolinesExhausted))
}

func TestSlotError(t *testing.T) {
	rangeErr := &SlotError{Op: "SlotDouble", Slot: 4, Count: 2}
	assert.Equal(t, "SlotDouble: slot 4 out of range (2 slots)", rangeErr.Error())

	typeErr := &SlotError{Op: "SlotString", Slot: 1, Count: 2, Want: entities.SlotString, Got: entities.SlotNum}
	assert.Equal(t, "SlotString: slot 1 holds Num, want String", typeErr.Error())
	assert.Equal(t, "slot", typeErr.ToErrorDetail().Type)
}

func TestPanicError(t *testing.T) {
	cause := fmt.Errorf("index out of range")
	err := &PanicError{Value: cause, Stack: []byte("goroutine 1")}

	assert.Equal(t, "index out of range", err.Error())
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, []byte("goroutine 1"), err.ToErrorDetail().Stack)

	plain := &PanicError{Value: "boom"}
	assert.Equal(t, "boom", plain.Error())
	assert.Nil(t, plain.Unwrap())
}

func TestToErrorDetail(t *testing.T) {
	assert.Nil(t, ToErrorDetail(nil))

	stale := fmt.Errorf("log: %w", ErrStaleContext)
	detail := ToErrorDetail(stale)
	assert.Equal(t, "context", detail.Type)

	reg := fmt.Errorf("init: %w", &RegistrationError{Module: "m"})
	assert.Equal(t, "registration", ToErrorDetail(reg).Type)

	assert.Equal(t, "internal", ToErrorDetail(errors.New("other")).Type)
}

func TestSlotError_Reason(t *testing.T) {
	err := &SlotError{Op: "SlotString", Slot: 2, Count: 3, Reason: "invalid UTF-8"}
	assert.Equal(t, "SlotString: slot 2: invalid UTF-8", err.Error())
}

func TestErrorDetail_Attrs(t *testing.T) {
	var nilDetail *entities.ErrorDetail
	assert.Nil(t, nilDetail.Attrs())

	reg := &RegistrationError{Module: "synth", Class: "Synth", Err: ErrHostRejected}
	detail := ToErrorDetail(&HookError{Event: entities.EventInit, Err: reg})

	var buf bytes.Buffer
	slog.New(slog.NewJSONHandler(&buf, nil)).Error("failed", detail.Attrs()...)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hook", entry["type"])
	assert.Equal(t, "init", entry["code"])
	assert.Equal(t, "registration: "+reg.Error()+" [synth]", entry["cause"])
	assert.NotContains(t, entry, "details")
	assert.NotContains(t, entry, "stack")

	buf.Reset()
	slog.New(slog.NewJSONHandler(&buf, nil)).Error("failed", reg.ToErrorDetail().Attrs()...)
	entry = nil
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, map[string]any{"module": "synth", "class": "Synth"}, entry["details"])
}
