package utils

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"os"
	"strings"
)

// GenerateCredential returns an unguessable URL-safe opaque string drawn from
// the given number of random bytes. RawURLEncoding keeps the result free of
// padding and characters that need escaping in a query string.
func GenerateCredential(byteLength int) (string, error) {
	if byteLength < 1 {
		return "", errors.New("byte length must be greater than 0")
	}
	b := make([]byte, byteLength)
	_, err := rand.Read(b)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// GetSecret returns the secret from config or, when empty, the first
// non-blank line of the given file.
func GetSecret(conf string, file string) string {
	if conf != "" {
		return conf
	}

	if file == "" {
		return ""
	}

	contents, err := os.ReadFile(file)
	if err != nil {
		return ""
	}

	return ParseSecretFile(string(contents))
}

func ParseSecretFile(contents string) string {
	lines := strings.Split(contents, "\n")

	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		return strings.TrimSpace(line)
	}

	return ""
}
