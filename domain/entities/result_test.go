package entities

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

type loadErr struct{ fatal bool }

func (e loadErr) Error() string     { return "load" }
func (e loadErr) LoadFailure() bool { return e.fatal }

func TestResultFrom(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Result
	}{
		{name: "nil is success", err: nil, want: ResultSuccess},
		{name: "plain error is failure", err: errors.New("boom"), want: ResultFailure},
		{name: "load failure is unknown", err: loadErr{fatal: true}, want: ResultUnknown},
		{name: "wrapped load failure is unknown", err: fmt.Errorf("init: %w", loadErr{fatal: true}), want: ResultUnknown},
		{name: "non fatal load error is failure", err: loadErr{fatal: false}, want: ResultFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResultFrom(tt.err))
		})
	}
}

func TestResultValues(t *testing.T) {
	// The host compares these integers directly.
	assert.Equal(t, int32(0), int32(ResultSuccess))
	assert.Equal(t, int32(1), int32(ResultFailure))
	assert.Equal(t, int32(2), int32(ResultUnknown))

	assert.True(t, ResultSuccess.OK())
	assert.False(t, ResultFailure.OK())
	assert.Equal(t, "unknown", ResultUnknown.String())
	assert.Equal(t, "invalid", Result(9).String())
}

func TestEventString(t *testing.T) {
	assert.Equal(t, "init", EventInit.String())
	assert.Equal(t, "post_update", EventPostUpdate.String())
	assert.Equal(t, "unknown", Event(42).String())
	assert.True(t, EventPreDraw.HasDelta())
	assert.True(t, EventPostDraw.HasDelta())
	assert.False(t, EventPreUpdate.HasDelta())
}

func TestAPITypes(t *testing.T) {
	assert.Equal(t, []APIType{APIDome, APIWren, APIAudio}, APITypes())
	for _, api := range APITypes() {
		assert.Equal(t, int32(0), api.Version())
	}
	assert.Equal(t, int32(1), int32(APIWren))
	assert.Equal(t, "wren", APIWren.String())
}

func TestSlotTypeString(t *testing.T) {
	assert.Equal(t, "Num", SlotNum.String())
	assert.Equal(t, "Unknown", SlotUnknown.String())
	assert.Equal(t, "Invalid", SlotType(-1).String())
	assert.Equal(t, "playing", ChannelPlaying.String())
	assert.True(t, ChannelRef{}.IsZero())
	assert.False(t, ChannelRef{ID: 3}.IsZero())
}

func TestManifest(t *testing.T) {
	m := &Manifest{
		Name: "external",
		Modules: []ModuleManifest{
			{Name: "a", Classes: []ClassManifest{{Name: "A", Methods: []MethodManifest{{Name: "x"}, {Name: "y"}}}}},
			{Name: "b", Classes: []ClassManifest{{Name: "B", Methods: []MethodManifest{{Name: "z"}}}}},
		},
	}

	assert.Equal(t, 3, m.MethodCount())
	mod, ok := m.FindModule("b")
	assert.True(t, ok)
	assert.Equal(t, "B", mod.Classes[0].Name)
	_, ok = m.FindModule("c")
	assert.False(t, ok)
}
