package daemon

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const tokenBytes = 32

// LoadOrCreateToken returns the daemon's shared auth token, minting one on
// first start. The hook and sessions subcommands read the same file, so the
// token is the only coupling between the daemon and its local clients.
func LoadOrCreateToken(tokenPath string) (string, error) {
	token, err := readToken(tokenPath)
	switch {
	case err == nil && token != "":
		// Tighten stale modes left by older builds or manual edits.
		_ = os.Chmod(tokenPath, 0o600)
		return token, nil
	case err != nil && !os.IsNotExist(err):
		return "", fmt.Errorf("read daemon token: %w", err)
	}

	token, err = mintToken()
	if err != nil {
		return "", fmt.Errorf("mint daemon token: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(tokenPath), 0o700); err != nil {
		return "", fmt.Errorf("create token dir: %w", err)
	}
	if err := os.WriteFile(tokenPath, []byte(token+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("write daemon token: %w", err)
	}
	return token, nil
}

func readToken(tokenPath string) (string, error) {
	data, err := os.ReadFile(tokenPath)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// mintToken produces a URL-safe token: it must survive both Authorization
// headers and the stream endpoint's query parameter.
func mintToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
