package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateRandomNumbersDeterministic(t *testing.T) {
	first := GenerateRandomNumbers("client", "server", 1700000000000, 16)
	second := GenerateRandomNumbers("client", "server", 1700000000000, 16)

	require.Len(t, first, 16)
	assert.Equal(t, first, second)
}

func TestGenerateRandomNumbersPrefixStable(t *testing.T) {
	short := GenerateRandomNumbers("client", "server", 1700000000000, 5)
	long := GenerateRandomNumbers("client", "server", 1700000000000, 10)

	assert.Equal(t, short, long[:5])
}

func TestGenerateRandomNumbersInputsMatter(t *testing.T) {
	base := GenerateRandomNumbers("client", "server", 1700000000000, 4)

	assert.NotEqual(t, base, GenerateRandomNumbers("client2", "server", 1700000000000, 4))
	assert.NotEqual(t, base, GenerateRandomNumbers("client", "server2", 1700000000000, 4))
	assert.NotEqual(t, base, GenerateRandomNumbers("client", "server", 1700000000001, 4))
}

func TestGenerateRandomNumbersIndexesDiffer(t *testing.T) {
	numbers := GenerateRandomNumbers("client", "server", 1700000000000, 2)
	assert.NotEqual(t, numbers[0], numbers[1])
}

func TestServerSeedRoundTrip(t *testing.T) {
	seed, hash := GenerateServerSeed()

	require.Len(t, seed, 64)
	assert.True(t, VerifySeed(seed, hash))
	assert.False(t, VerifySeed(seed+"00", hash))
}

func TestHashU64Deterministic(t *testing.T) {
	assert.Equal(t, HashU64("message"), HashU64("message"))
	assert.NotEqual(t, HashU64("message"), HashU64("massage"))
}
