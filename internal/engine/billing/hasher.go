package billing

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// Hasher turns a raw API key into its stored digest. The digest is keyed
// by a single process-wide salt, so the same secret always hashes to the
// same value and lookup is a plain equality match on key_hash. Raw
// secrets are server-generated and high-entropy, which is what makes the
// shared-salt trade-off acceptable.
type Hasher struct {
	key []byte
}

func NewHasher(salt string) *Hasher {
	key := []byte(salt)
	if len(key) > blake2b.Size {
		// BLAKE2b keys max out at 64 bytes
		sum := blake2b.Sum256(key)
		key = sum[:]
	}
	return &Hasher{key: key}
}

func (h *Hasher) Hash(rawSecret string) string {
	mac, err := blake2b.New256(h.key)
	if err != nil {
		// unreachable: key length is normalized in NewHasher
		panic(err)
	}
	mac.Write([]byte(rawSecret))
	return hex.EncodeToString(mac.Sum(nil))
}
