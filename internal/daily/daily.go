package daily

import (
	"encoding/binary"
	"math/rand/v2"
	"time"

	"golang.org/x/crypto/blake2b"
)

// DateKey returns YYYY-MM-DD in UTC.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Seed returns the two PCG seed words for a date using BLAKE2b-256 keyed by
// the salt over YYYY-MM-DD. Salts of any length are accepted.
func Seed(date time.Time, salt string) (uint64, uint64) {
	key := blake2b.Sum256([]byte(salt))
	h, _ := blake2b.New256(key[:]) // 32-byte key is always valid
	h.Write([]byte(DateKey(date)))
	sum := h.Sum(nil)
	return binary.BigEndian.Uint64(sum[:8]), binary.BigEndian.Uint64(sum[8:16])
}

// Rand returns a generator that yields the same sequence for every caller on
// the same UTC day.
func Rand(date time.Time, salt string) *rand.Rand {
	return rand.New(rand.NewPCG(Seed(date, salt)))
}
