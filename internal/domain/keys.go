package domain

import "strconv"

// KeyPrefix namespaces every key vecrag writes to a shared Redis/Valkey instance.
// Overridden from storage.key_prefix at startup, before any repository is built.
var KeyPrefix = "vecrag:"

// Key patterns: vecrag:collection:{name}, vecrag:{name}:idx, vecrag:{{name}}:{id}.
// Point keys carry the collection in a hash tag so one upsert batch maps to one
// cluster slot and can run inside MULTI/EXEC.

// CollectionMetaKey is the hash holding a collection's configuration.
func CollectionMetaKey(name string) string {
	return KeyPrefix + "collection:" + name
}

// IndexName is the FT index serving a collection's KNN queries.
func IndexName(name string) string {
	return KeyPrefix + name + ":idx"
}

// PointPrefix is the key prefix of every point hash in a collection.
func PointPrefix(name string) string {
	return KeyPrefix + "{" + name + "}:"
}

// PointKey is the hash key of one point.
func PointKey(name string, id uint64) string {
	return PointPrefix(name) + strconv.FormatUint(id, 10)
}
