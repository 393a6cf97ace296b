package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataValueScan(t *testing.T) {
	t.Run("Valid call Value and Scan keep room data", func(t *testing.T) {
		original := Metadata{"room": "abc", "round": 2}

		value, err := original.Value()
		require.NoError(t, err, "Expected Value to not return an error")

		var restored Metadata
		err = restored.Scan(value)
		require.NoError(t, err, "Expected Scan to not return an error")
		assert.Equal(t, "abc", restored.String("room"), "Expected room to survive the round trip")
		assert.Equal(t, 2, restored.Int("round"), "Expected round to survive as a number")
	})

	t.Run("Valid call Scan with nil", func(t *testing.T) {
		var m Metadata

		err := m.Scan(nil)
		require.NoError(t, err, "Expected Scan of nil to not return an error")
		assert.NotNil(t, m, "Expected an empty metadata map")
		assert.Len(t, m, 0, "Expected no keys")
	})

	t.Run("Valid call Scan with string", func(t *testing.T) {
		var m Metadata

		err := m.Scan(`{"difficulty":"hard"}`)
		require.NoError(t, err, "Expected Scan of a JSON string to not return an error")
		assert.Equal(t, "hard", m.String("difficulty"), "Expected difficulty to be read")
	})

	t.Run("Valid call Scan with Metadata", func(t *testing.T) {
		var m Metadata

		err := m.Scan(Metadata{"key": "value"})
		require.NoError(t, err, "Expected Scan of metadata to not return an error")
		assert.Equal(t, "value", m.String("key"), "Expected key to be copied")
	})

	t.Run("Invalid call Scan with wrong type", func(t *testing.T) {
		var m Metadata

		err := m.Scan(12345)
		require.Error(t, err, "Expected Scan of an int to fail")
		assert.Contains(t, err.Error(), "type assertion", "Expected a type assertion error")
	})

	t.Run("Invalid call Scan with broken JSON", func(t *testing.T) {
		var m Metadata

		err := m.Scan([]byte(`{broken`))
		require.Error(t, err, "Expected Scan of broken JSON to fail")
	})
}

func TestMetadataAccessors(t *testing.T) {
	m := Metadata{"name": "Tom Hanks", "count": int64(7), "wrong": true}

	assert.Equal(t, "Tom Hanks", m.String("name"), "Expected the stored string")
	assert.Equal(t, "", m.String("wrong"), "Expected an empty string for a non string value")
	assert.Equal(t, "", m.String("missing"), "Expected an empty string for a missing key")
	assert.Equal(t, 7, m.Int("count"), "Expected int64 values to convert")
	assert.Equal(t, 0, m.Int("name"), "Expected zero for a non numeric value")
}
