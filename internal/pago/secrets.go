package pago

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	dErrors "github.com/dewauriarte/SIGCERH-sub005/pkg/domain-errors"
)

// GenerateGatewayToken creates the shared token handed to the payment gateway
// at onboarding. The gateway sends it back on every webhook.
func GenerateGatewayToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("could not generate gateway token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// HashGatewayToken creates the bcrypt hash that is stored in configuration;
// the plaintext token lives only at the gateway.
func HashGatewayToken(token string) (string, error) {
	if token == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "el token no puede estar vacio")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", dErrors.New(dErrors.CodeInvalidInput, "el token es demasiado largo")
		}
		return "", fmt.Errorf("could not hash gateway token: %w", err)
	}
	return string(hashed), nil
}

// VerifyGatewayToken checks a webhook's bearer token against the stored hash.
func VerifyGatewayToken(token, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(token)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return dErrors.New(dErrors.CodeUnauthorized, "token de pasarela invalido")
		}
		return fmt.Errorf("could not verify gateway token: %w", err)
	}
	return nil
}
