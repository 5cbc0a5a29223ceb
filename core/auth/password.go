package auth

import (
	"encoding/base64"
	"errors"

	"fusionguard/core/utils"

	"golang.org/x/crypto/argon2"
)

const (
	argonTime    uint32 = 1
	argonMemory  uint32 = 64 * 1024
	argonThreads uint8  = 4
	argonKeyLen  uint32 = 32
	saltLen             = 16
)

var ErrEmptyHash = errors.New("empty hash or salt")

type PasswordHash struct {
	Hash string `json:"hash"`
	Salt string `json:"salt"`
}

// Hasher derives argon2id keys from password+pepper.
type Hasher struct {
	pepper string
}

func NewHasher(pepper string) *Hasher {
	return &Hasher{pepper: pepper}
}

func (h *Hasher) Hash(password string) (PasswordHash, error) {
	salt, err := utils.RandBytes(saltLen)
	if err != nil {
		return PasswordHash{}, err
	}
	return PasswordHash{
		Hash: base64.RawStdEncoding.EncodeToString(h.derive(password, salt)),
		Salt: base64.RawStdEncoding.EncodeToString(salt),
	}, nil
}

func (h *Hasher) MustHash(password string) PasswordHash {
	p, err := h.Hash(password)
	if err != nil {
		panic(err)
	}
	return p
}

// Verify reports whether password matches stored. A malformed stored hash is
// an error, a mismatch is not.
func (h *Hasher) Verify(password string, stored PasswordHash) (bool, error) {
	if stored.Hash == "" || stored.Salt == "" {
		return false, ErrEmptyHash
	}
	salt, err := base64.RawStdEncoding.DecodeString(stored.Salt)
	if err != nil {
		return false, err
	}
	expected, err := base64.RawStdEncoding.DecodeString(stored.Hash)
	if err != nil {
		return false, err
	}
	return utils.EqualSecret(h.derive(password, salt), expected), nil
}

func (h *Hasher) derive(password string, salt []byte) []byte {
	input := make([]byte, 0, len(password)+len(h.pepper))
	input = append(input, password...)
	input = append(input, h.pepper...)
	return argon2.IDKey(input, salt, argonTime, argonMemory, argonThreads, argonKeyLen)
}
