package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeTradeID computes a deterministic trade identifier using SHA256.
// Formula: SHA256(tx_signature|event_index|slot)
// Returns hex-encoded hash (64 characters). The same chain event always
// hashes to the same ID, which is what lets the detector deduplicate
// re-fetched transactions after a crash-restart.
func ComputeTradeID(txSignature string, eventIndex int, slot int64) string {
	data := fmt.Sprintf("%s|%d|%d", txSignature, eventIndex, slot)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
