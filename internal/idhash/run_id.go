package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/mr-tron/base58"
)

// ComputeConfigHash computes a deterministic hash of a canonical config encoding.
// Returns hex-encoded hash (64 characters).
func ComputeConfigHash(canonical []byte) string {
	hash := sha256.Sum256(canonical)
	return hex.EncodeToString(hash[:])
}

// ComputeRunID computes a deterministic run_id.
// Formula: base58(SHA256(from|to|initial_capital|config_hash)[:16])
// Same range and configuration always yield the same run.
func ComputeRunID(from, to time.Time, initialCapital float64, configHash string) string {
	data := fmt.Sprintf("%s|%s|%.4f|%s",
		from.Format("2006-01-02"),
		to.Format("2006-01-02"),
		initialCapital,
		configHash,
	)

	hash := sha256.Sum256([]byte(data))
	return base58.Encode(hash[:16])
}

// ComputeResultID computes a deterministic id for one instrument result.
// Formula: SHA256(run_id|date|code)
// Returns hex-encoded hash (64 characters).
func ComputeResultID(runID string, date time.Time, code string) string {
	data := fmt.Sprintf("%s|%s|%s",
		runID,
		date.Format("2006-01-02"),
		code,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
