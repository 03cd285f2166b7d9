package manager

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/dgallion1/docmerge/internal/placeholder"
)

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}

// Fingerprint derives the cache key for one render. Placeholder names are
// sorted so enumeration order does not change the key. Values are encoded
// as JSON after nested collections are flattened to maps, falling back to
// their Go representation.
func Fingerprint(docID string, content []byte, c placeholder.Collection, engineIdentity, transformIdentity string) string {
	type pair struct {
		Name  string          `json:"n"`
		Value json.RawMessage `json:"v"`
	}
	var pairs []pair
	if c != nil {
		names := c.Names()
		sort.Strings(names)
		pairs = make([]pair, 0, len(names))
		for _, name := range names {
			v, _ := c.Get(name)
			pairs = append(pairs, pair{Name: name, Value: encodeValue(v)})
		}
	}

	key := struct {
		Document     string `json:"document"`
		ContentHash  string `json:"content_hash"`
		Placeholders []pair `json:"placeholders"`
		Engine       string `json:"engine"`
		Transformers string `json:"transformers"`
	}{docID, ContentHashHex(content), pairs, engineIdentity, transformIdentity}

	// Values are pre-encoded, so marshalling the key can't fail.
	data, _ := json.Marshal(key)
	return ContentHashHex(data)
}

func encodeValue(v any) json.RawMessage {
	if data, err := json.Marshal(placeholder.Plain(v)); err == nil {
		return data
	}
	data, _ := json.Marshal(fmt.Sprintf("%T:%#v", v, v))
	return data
}
