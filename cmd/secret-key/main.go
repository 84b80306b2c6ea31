// Generates the AES-256 key used to encrypt assistant API keys at rest.
package main

import (
	"crypto/rand"
	"encoding/hex"
	"log/slog"
)

func generateEncryptionKey() (string, error) {
	key := make([]byte, 32)
	_, err := rand.Read(key)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(key), nil
}

func main() {
	key, err := generateEncryptionKey()
	if err != nil {
		slog.Error("Error generating key", "err", err)
		return
	}

	slog.Info("Generated encryption key:", "key", key)
}
