package payload

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// ContentHash returns a hex SHA-256 digest of the document's canonical JSON
// form. The document is decoded and re-marshalled so object keys are sorted
// at every nesting level: two payloads that differ only in key order hash
// identically, while any value difference changes the digest. The digest is
// a dedup key, not a security boundary.
func ContentHash(raw []byte) (string, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return "", fmt.Errorf("content hash: decode payload: %w", err)
	}
	canonical, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("content hash: canonicalize payload: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
