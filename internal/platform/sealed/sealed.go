// Package sealed decrypts integration connection configs stored as
// base64-encoded age ciphertext, with a fallback for legacy rows that were
// written as plaintext JSON before encryption was introduced.
package sealed

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"filippo.io/age"
)

// ErrNoIdentity is returned by Decrypt when the opener has no key.
var ErrNoIdentity = errors.New("no decryption identity configured")

// Opener decrypts sealed connection configs.
type Opener struct {
	identity *age.X25519Identity
}

// NewOpener parses an AGE-SECRET-KEY-1... identity. An empty key yields an
// opener that only understands legacy plaintext rows.
func NewOpener(privateKey string) (*Opener, error) {
	privateKey = strings.TrimSpace(privateKey)
	if privateKey == "" {
		return &Opener{}, nil
	}
	identity, err := age.ParseX25519Identity(privateKey)
	if err != nil {
		return nil, fmt.Errorf("parsing private key: %w", err)
	}
	return &Opener{identity: identity}, nil
}

// Decrypt decrypts a base64-encoded age ciphertext.
func (o *Opener) Decrypt(blob []byte) ([]byte, error) {
	if o.identity == nil {
		return nil, ErrNoIdentity
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(blob)))
	if err != nil {
		return nil, fmt.Errorf("decoding base64 ciphertext: %w", err)
	}
	reader, err := age.Decrypt(bytes.NewReader(raw), o.identity)
	if err != nil {
		return nil, fmt.Errorf("decrypting: %w", err)
	}
	plaintext, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("reading decrypted plaintext: %w", err)
	}
	return plaintext, nil
}

// Open returns the decoded config map for blob. It tries decryption first,
// then a plaintext JSON parse for legacy rows, and finally an empty config.
// The returned bool reports whether the row was legacy plaintext.
func (o *Opener) Open(blob []byte) (map[string]any, bool) {
	if len(bytes.TrimSpace(blob)) == 0 {
		return map[string]any{}, false
	}
	if plaintext, err := o.Decrypt(blob); err == nil {
		var cfg map[string]any
		if json.Unmarshal(plaintext, &cfg) == nil && cfg != nil {
			return cfg, false
		}
	}
	var legacy map[string]any
	if err := json.Unmarshal(blob, &legacy); err == nil && legacy != nil {
		return legacy, true
	}
	return map[string]any{}, false
}

// Seal encrypts plaintext to the given age recipients. Used when storing
// connection configs and in tests.
func Seal(plaintext []byte, recipientKeys ...string) ([]byte, error) {
	if len(recipientKeys) == 0 {
		return nil, fmt.Errorf("at least one recipient is required")
	}
	recipients := make([]age.Recipient, 0, len(recipientKeys))
	for _, key := range recipientKeys {
		recipient, err := age.ParseX25519Recipient(key)
		if err != nil {
			return nil, fmt.Errorf("parsing recipient key %q: %w", key, err)
		}
		recipients = append(recipients, recipient)
	}

	var buf bytes.Buffer
	writer, err := age.Encrypt(&buf, recipients...)
	if err != nil {
		return nil, fmt.Errorf("creating age encryptor: %w", err)
	}
	if _, err := writer.Write(plaintext); err != nil {
		return nil, fmt.Errorf("writing plaintext to age encryptor: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("finalizing age encryption: %w", err)
	}
	return []byte(base64.StdEncoding.EncodeToString(buf.Bytes())), nil
}

// Recipient returns the public key matching the opener's identity, or "" when
// the opener has none.
func (o *Opener) Recipient() string {
	if o.identity == nil {
		return ""
	}
	return o.identity.Recipient().String()
}
