// Package cache builds Redis clients and cache keys.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

const (
	GlobalKeyPrefix = "wikiquiz"

	ArtifactService = "artifact"
)

// GenerateCacheKey joins prefix, service, object type and identifier with ":".
// paramsKey, when given, are joined by "_" and appended as one more segment.
func GenerateCacheKey(serviceName, objectType, identifier string, paramsKey ...string) string {
	baseKey := strings.Join([]string{GlobalKeyPrefix, serviceName, objectType, identifier}, ":")
	if len(paramsKey) > 0 {
		return strings.Join([]string{baseKey, strings.Join(paramsKey, "_")}, ":")
	}
	return baseKey
}

// ArtifactURLKey hashes the URL so arbitrary characters never reach the key.
func ArtifactURLKey(url string) string {
	sum := sha256.Sum256([]byte(url))
	return GenerateCacheKey(ArtifactService, "url", hex.EncodeToString(sum[:]))
}

func ArtifactIDKey(id int64) string {
	return GenerateCacheKey(ArtifactService, "id", strconv.FormatInt(id, 10))
}
