package password

import (
	"github.com/alexedwards/argon2id"
)

var argonParams = &argon2id.Params{
	Memory:      64 * 1024, // 64 MiB
	Iterations:  2,
	Parallelism: 4,
	SaltLength:  16,
	KeyLength:   32,
}

// Hasher hashes and verifies passwords with argon2id and a server-side pepper.
type Hasher struct {
	pepper string
	params *argon2id.Params
}

func NewHasher(pepper string) *Hasher {
	return &Hasher{pepper: pepper, params: argonParams}
}

// NewFastHasher uses minimal argon2 parameters; meant for tests only.
func NewFastHasher(pepper string) *Hasher {
	return &Hasher{pepper: pepper, params: &argon2id.Params{
		Memory:      1024,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}}
}

func (h *Hasher) Hash(secret string) (string, error) {
	return argon2id.CreateHash(secret+h.pepper, h.params)
}

// Verify reports whether secret matches the encoded hash. A malformed hash
// never matches.
func (h *Hasher) Verify(secret, encodedHash string) bool {
	if encodedHash == "" {
		return false
	}
	ok, err := argon2id.ComparePasswordAndHash(secret+h.pepper, encodedHash)
	return err == nil && ok
}
