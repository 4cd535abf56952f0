package crypto

import (
	"crypto/rand"
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// GenerateServerSeed mints a new server seed together with its public
// hidden form. The seed stays secret until the player rotates it.
func GenerateServerSeed() (seed string, hash string) {
	bytes := make([]byte, 32)
	rand.Read(bytes)

	seed = hex.EncodeToString(bytes)
	hash = HashServerSeed(seed)

	return
}

// HashServerSeed returns the public form of a hidden server seed. Players
// compare it against the revealed seed to prove no post-hoc manipulation.
func HashServerSeed(seed string) string {
	h := blake2b.Sum512([]byte(seed))
	return hex.EncodeToString(h[:])
}

// VerifySeed checks a revealed seed against its previously published hash.
func VerifySeed(seed, hash string) bool {
	return HashServerSeed(seed) == hash
}
