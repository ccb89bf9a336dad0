/*
Package keeper resolves the token signing secret through a gocloud.dev secrets keeper.

When a keeper URI is configured the API_SECRET setting holds base64 ciphertext instead
of the plain secret, so the secret never sits in the environment or .env file in clear
text. Supported URIs: base64key:// (local, for development and tests) and hashivault://
(HashiCorp Vault transit).
*/
package keeper

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"gocloud.dev/secrets"

	_ "gocloud.dev/secrets/hashivault"
	_ "gocloud.dev/secrets/localsecrets"
)

// ErrEmptyCiphertext is returned when a keeper URI is configured but no ciphertext is.
var ErrEmptyCiphertext = errors.New("encrypted secret is empty")

// ResolveSecret returns value unchanged when keeperURI is empty. Otherwise value is
// decoded from base64 and decrypted with the keeper at keeperURI.
func ResolveSecret(ctx context.Context, keeperURI, value string) (string, error) {
	if keeperURI == "" {
		return value, nil
	}

	value = strings.TrimSpace(value)
	if value == "" {
		return "", ErrEmptyCiphertext
	}

	ciphertext, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return "", fmt.Errorf("decode encrypted secret: %w", err)
	}

	k, err := secrets.OpenKeeper(ctx, keeperURI)
	if err != nil {
		return "", fmt.Errorf("open secrets keeper: %w", err)
	}
	defer k.Close()

	plaintext, err := k.Decrypt(ctx, ciphertext)
	if err != nil {
		return "", fmt.Errorf("decrypt secret: %w", err)
	}
	return string(plaintext), nil
}

// EncryptSecret encrypts plaintext with the keeper at keeperURI and returns base64
// ciphertext suitable for API_SECRET.
func EncryptSecret(ctx context.Context, keeperURI, plaintext string) (string, error) {
	if keeperURI == "" {
		return "", errors.New("keeper uri is required")
	}

	k, err := secrets.OpenKeeper(ctx, keeperURI)
	if err != nil {
		return "", fmt.Errorf("open secrets keeper: %w", err)
	}
	defer k.Close()

	ciphertext, err := k.Encrypt(ctx, []byte(plaintext))
	if err != nil {
		return "", fmt.Errorf("encrypt secret: %w", err)
	}
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}
