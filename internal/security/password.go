package security

import "golang.org/x/crypto/bcrypt"

// Hasher turns a plaintext password into the value stored in hashed_password.
type Hasher interface {
	Hash(plain string) (string, error)
}

type BcryptHasher struct {
	Cost int
}

func NewBcryptHasher(cost int) BcryptHasher {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}

	return BcryptHasher{Cost: cost}
}

// Hash hashes a plain text password with bcrypt.
func (h BcryptHasher) Hash(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), h.Cost)

	if err != nil {
		return "", err
	}

	return string(hash), nil
}
