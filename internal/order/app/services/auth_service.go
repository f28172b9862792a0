package services

import (
	"crypto/subtle"
	"fmt"

	"room-service/internal/order/app/core"
	"room-service/internal/xpkg/config"

	"golang.org/x/crypto/bcrypt"
)

// AuthService checks the shared staff passphrase. With neither a hash nor a
// plain passphrase configured every request is let through.
type AuthService struct {
	hash  []byte
	plain []byte
}

func NewAuthService(cfg *config.Auth) (*AuthService, error) {
	as := &AuthService{}
	if cfg == nil {
		return as, nil
	}
	if cfg.PassphraseHash != "" {
		if _, err := bcrypt.Cost([]byte(cfg.PassphraseHash)); err != nil {
			return nil, fmt.Errorf("auth.passphrase_hash is not a bcrypt hash: %w", err)
		}
		as.hash = []byte(cfg.PassphraseHash)
		return as, nil
	}
	if cfg.Passphrase != "" {
		as.plain = []byte(cfg.Passphrase)
	}
	return as, nil
}

func (as *AuthService) Enabled() bool {
	return len(as.hash) > 0 || len(as.plain) > 0
}

func (as *AuthService) Check(passphrase string) error {
	if !as.Enabled() {
		return nil
	}
	if passphrase == "" {
		return core.ErrUnauthorized
	}

	if len(as.hash) > 0 {
		if err := bcrypt.CompareHashAndPassword(as.hash, []byte(passphrase)); err != nil {
			return core.ErrUnauthorized
		}
		return nil
	}

	if subtle.ConstantTimeCompare(as.plain, []byte(passphrase)) != 1 {
		return core.ErrUnauthorized
	}
	return nil
}
