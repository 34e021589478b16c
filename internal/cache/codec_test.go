package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		version  int64
		jsonData []byte
		expected string
	}{
		{name: "happy path", version: 42, jsonData: []byte(`{"label":"Header"}`), expected: `42|{"label":"Header"}`},
		{name: "max int64", version: 9223372036854775807, jsonData: []byte(`[]`), expected: `9223372036854775807|[]`},
		{name: "empty payload", version: 1, jsonData: nil, expected: "1|"},
		{name: "payload with pipes", version: 5, jsonData: []byte(`{"d":"a|b"}`), expected: `5|{"d":"a|b"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, encodeValue(tt.jsonData, tt.version))
		})
	}
}

func TestDecodeValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name            string
		encoded         string
		expectedPayload string
		expectedVersion int64
	}{
		{name: "happy path", encoded: `42|{"a":1}`, expectedPayload: `{"a":1}`, expectedVersion: 42},
		{name: "pipes inside payload", encoded: `5|{"d":"a|b"}`, expectedPayload: `{"d":"a|b"}`, expectedVersion: 5},
		{name: "empty payload", encoded: "1|", expectedPayload: "", expectedVersion: 1},
		{name: "no prefix", encoded: `{"a":1}`, expectedPayload: `{"a":1}`, expectedVersion: 0},
		{name: "non numeric prefix", encoded: `x|{"a":1}`, expectedPayload: `x|{"a":1}`, expectedVersion: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			payload, version := decodeValue(tt.encoded)
			assert.Equal(t, tt.expectedPayload, payload)
			assert.Equal(t, tt.expectedVersion, version)
		})
	}
}

func TestQueueMessage(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "placement:header:42", EncodeQueueMessage(PlacementKey("header"), 42))
	assert.Equal(t, "context:node:7:field_ad:3", EncodeQueueMessage(ContextKey("node:7:field_ad"), 3))

	tests := []struct {
		name            string
		message         string
		expectedKey     string
		expectedVersion int64
	}{
		{name: "placement", message: "placement:header:42", expectedKey: "placement:header", expectedVersion: 42},
		{name: "key with colons", message: "context:node:7:field_ad:3", expectedKey: "context:node:7:field_ad", expectedVersion: 3},
		{name: "no version", message: "legacy", expectedKey: "legacy", expectedVersion: 0},
		{name: "invalid version", message: "placement:not-a-number", expectedKey: "placement:not-a-number", expectedVersion: 0},
		{name: "overflow", message: "p:99999999999999999999999", expectedKey: "p:99999999999999999999999", expectedVersion: 0},
		{name: "only colon", message: ":", expectedKey: ":", expectedVersion: 0},
		{name: "empty key", message: ":123", expectedKey: "", expectedVersion: 123},
		{name: "empty", message: "", expectedKey: "", expectedVersion: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			key, version := DecodeQueueMessage(tt.message)
			assert.Equal(t, tt.expectedKey, key)
			assert.Equal(t, tt.expectedVersion, version)
		})
	}
}

func TestSplitKey(t *testing.T) {
	t.Parallel()

	kind, id, ok := SplitKey(ContextKey("node:7:field_ad"))
	assert.True(t, ok)
	assert.Equal(t, KindContext, kind)
	assert.Equal(t, "node:7:field_ad", id)

	_, _, ok = SplitKey("nokind")
	assert.False(t, ok)
}
