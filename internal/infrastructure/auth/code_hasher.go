package auth

import (
	"golang.org/x/crypto/bcrypt"

	"github.com/you/dispatchsvc/domain"
)

// CodeHasherImpl implements domain.CodeHasher with bcrypt
type CodeHasherImpl struct {
	cost int
}

// NewCodeHasher creates a bcrypt code hasher. A cost outside bcrypt's range falls back to the default.
func NewCodeHasher(cost int) domain.CodeHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &CodeHasherImpl{cost: cost}
}

// Hash implements domain.CodeHasher
func (h *CodeHasherImpl) Hash(code string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(code), h.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Verify implements domain.CodeHasher
func (h *CodeHasherImpl) Verify(hash, code string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)) == nil
}
