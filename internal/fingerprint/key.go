package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
)

// textPrefixLen bounds how much item text participates in the key. Edits to
// content past this prefix do not produce a new fingerprint.
const textPrefixLen = 300

// Key derives the dedupe key for a source item. It is a pure function of the
// item id and the first 300 characters of its text; no other field affects
// the result.
func Key(itemID, text string) string {
	runes := []rune(text)
	if len(runes) > textPrefixLen {
		runes = runes[:textPrefixLen]
	}
	sum := sha256.Sum256([]byte(itemID + ":" + string(runes)))
	return hex.EncodeToString(sum[:])
}
