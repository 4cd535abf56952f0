package crypto

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/blake2s"
)

// HashU64 reduces a message to the first 8 bytes of its blake2s-256 digest,
// interpreted big-endian.
func HashU64(message string) uint64 {
	h := blake2s.Sum256([]byte(message))
	return binary.BigEndian.Uint64(h[:8])
}

// GenerateRandomNumbers derives the draw sequence for one bet. Element i is
// a pure function of (i, timestamp, clientSeed, serverSeed), so a player
// can reproduce every draw once the server seed is revealed.
func GenerateRandomNumbers(clientSeed, serverSeed string, timestamp uint64, amount uint64) []uint64 {
	postfix := fmt.Sprintf("%d%s%s", timestamp, clientSeed, serverSeed)

	numbers := make([]uint64, amount)
	for i := range numbers {
		numbers[i] = HashU64(fmt.Sprintf("%d%s", i, postfix))
	}
	return numbers
}
