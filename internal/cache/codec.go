package cache

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgallion1/docmerge/internal/generator"
)

const entryVersion = 1

// entry is the serialized form shared by the remote backends. Artifact
// data is base64 in JSON.
type entry struct {
	Version   int                  `json:"version"`
	Key       string               `json:"key"`
	CreatedAt time.Time            `json:"created_at"`
	ExpiresAt *time.Time           `json:"expires_at,omitempty"`
	Artifacts []generator.Artifact `json:"artifacts"`
}

func encodeEntry(key string, artifacts []generator.Artifact, ttl time.Duration, now time.Time) ([]byte, error) {
	e := entry{Version: entryVersion, Key: key, CreatedAt: now.UTC(), Artifacts: artifacts}
	if ttl > 0 {
		exp := now.Add(ttl).UTC()
		e.ExpiresAt = &exp
	}
	return json.Marshal(e)
}

// decodeEntry returns ok=false for expired entries.
func decodeEntry(key string, data []byte, now time.Time) ([]generator.Artifact, bool, error) {
	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, false, fmt.Errorf("decode entry: %w", err)
	}
	if e.Version != entryVersion {
		return nil, false, fmt.Errorf("unsupported entry version %d", e.Version)
	}
	if e.Key != key {
		return nil, false, fmt.Errorf("entry key mismatch: %q", e.Key)
	}
	if e.ExpiresAt != nil && now.After(*e.ExpiresAt) {
		return nil, false, nil
	}
	return e.Artifacts, true, nil
}
