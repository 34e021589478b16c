package cache

import (
	"strconv"
	"strings"
)

// Read model keys and queue messages share one key space: "<kind>:<id>".
const (
	KindPlacement = "placement"
	KindContext   = "context"
)

// PlacementKey is the read model key of a placement.
func PlacementKey(id string) string {
	return KindPlacement + ":" + id
}

// ContextKey is the read model key of a field's assignments; ownerKey is
// store.FieldOwner.Key().
func ContextKey(ownerKey string) string {
	return KindContext + ":" + ownerKey
}

// SplitKey returns the kind and id of a read model key.
func SplitKey(key string) (kind, id string, ok bool) {
	return strings.Cut(key, ":")
}

// encodeValue stores the version ahead of the payload ("version|json") so the
// Lua script can compare versions without decoding JSON.
func encodeValue(jsonData []byte, version int64) string {
	return strconv.FormatInt(version, 10) + "|" + string(jsonData)
}

// decodeValue strips the version prefix. Values without one are returned as is.
func decodeValue(encoded string) (string, int64) {
	rawVersion, payload, found := strings.Cut(encoded, "|")
	if !found {
		return encoded, 0
	}
	version, err := strconv.ParseInt(rawVersion, 10, 64)
	if err != nil {
		return encoded, 0
	}
	return payload, version
}

// EncodeQueueMessage formats an update event as "key:version".
func EncodeQueueMessage(key string, version int64) string {
	return key + ":" + strconv.FormatInt(version, 10)
}

// DecodeQueueMessage is the inverse of EncodeQueueMessage. Keys may contain
// colons, so the version is taken after the last one. A message without a
// valid version is returned whole with version 0.
func DecodeQueueMessage(msg string) (string, int64) {
	idx := strings.LastIndex(msg, ":")
	if idx < 0 {
		return msg, 0
	}
	version, err := strconv.ParseInt(msg[idx+1:], 10, 64)
	if err != nil {
		return msg, 0
	}
	return msg[:idx], version
}
