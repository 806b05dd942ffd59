package channel

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlotsFollowDeclarationOrder(t *testing.T) {
	ch := New("Lab", "K1", "Temp", "Humidity", "Pressure")
	for i, f := range []string{"Temp", "Humidity", "Pressure"} {
		slot, ok := ch.Slot(f)
		require.True(t, ok, f)
		assert.Equal(t, "field"+string(rune('1'+i)), slot)
		idx, ok := ch.SlotIndex(f)
		require.True(t, ok)
		assert.Equal(t, i+1, idx)
	}
	_, ok := ch.Slot("Wind")
	assert.False(t, ok)
	assert.Equal(t, []string{"Temp", "Humidity", "Pressure"}, ch.Fields())
	assert.Equal(t, "Lab", ch.Name())
	assert.Equal(t, "K1", ch.WriteKey())
}

func TestChannelIsImmutable(t *testing.T) {
	fields := []string{"a", "b"}
	ch := New("c", "k", fields...)
	fields[0] = "z"
	got := ch.Fields()
	got[1] = "y"
	assert.Equal(t, []string{"a", "b"}, ch.Fields())
	slot, ok := ch.Slot("a")
	require.True(t, ok)
	assert.Equal(t, "field1", slot)
}

func TestRegistryGet(t *testing.T) {
	reg, err := NewRegistry(New("living room", "k1", "t"), New("bedroom", "k2", "t", "h"))
	require.NoError(t, err)
	assert.Equal(t, 2, reg.Len())
	assert.Equal(t, []string{"living room", "bedroom"}, reg.Names())

	ch, err := reg.Get("bedroom")
	require.NoError(t, err)
	assert.Equal(t, "k2", ch.WriteKey())

	_, err = reg.Get("attic")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownChannel))
	assert.Contains(t, err.Error(), "attic")
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	_, err := NewRegistry(New("a", "k", "f"), New("a", "k2", "g"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateChannel))
}

func TestEmptyRegistry(t *testing.T) {
	reg, err := NewRegistry()
	require.NoError(t, err)
	assert.Equal(t, 0, reg.Len())
	_, err = reg.Get("x")
	assert.True(t, errors.Is(err, ErrUnknownChannel))
}
