package utils

import (
	"encoding/binary"
	"encoding/hex"
	"math"
)

// Helpers for the canonical byte forms that ids and signatures are computed
// over. Numbers serialize fixed-width big-endian, so every value occupies
// the same eight bytes regardless of magnitude.

func BytesToHex(b []byte) string {
	return hex.EncodeToString(b)
}

func HexToBytes(s string) ([]byte, error) {
	return hex.DecodeString(s)
}

func Int64ToBytes(i int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(i))
	return b
}

func Float64ToBytes(f float64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, math.Float64bits(f))
	return b
}
