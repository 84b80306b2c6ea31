// Generates the HMAC secret used to sign session tokens.
package main

import (
	"crypto/rand"
	"encoding/hex"
	"log/slog"
)

func generateSigningSecret() (string, error) {
	secret := make([]byte, 32)
	_, err := rand.Read(secret)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(secret), nil
}

func main() {
	secret, err := generateSigningSecret()
	if err != nil {
		slog.Error("Error generating secret", "err", err)
		return
	}

	slog.Info("Generated signing secret:", "secret", secret)
}
