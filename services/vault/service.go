package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/crypto/scrypt"

	"github.com/sendwell/sendguard/interfaces"
	internal_config "github.com/sendwell/sendguard/internal/config"
	sendguard_errors "github.com/sendwell/sendguard/internal/errors"
)

const (
	ivLength  = 16
	tagLength = 16
	keyLength = 32

	// fixed KDF salt, must match the value used when secrets were written
	kdfSalt = "sendguard-credential-salt"
)

type vaultService struct {
	key []byte
}

// NewVaultService derives the symmetric key once at startup. A secret of
// exactly 64 hex chars is decoded straight into a 32-byte key; anything
// else goes through scrypt with the fixed salt.
func NewVaultService(cfg *internal_config.VaultConfig) (interfaces.CredentialVault, error) {
	if cfg == nil || cfg.EncryptionSecret == "" {
		return nil, errors.New("credential encryption secret is not configured")
	}

	key, err := deriveKey(cfg.EncryptionSecret)
	if err != nil {
		return nil, err
	}

	return &vaultService{key: key}, nil
}

func deriveKey(secret string) ([]byte, error) {
	if len(secret) == keyLength*2 {
		if key, err := hex.DecodeString(secret); err == nil {
			return key, nil
		}
	}
	return scrypt.Key([]byte(secret), []byte(kdfSalt), 1<<15, 8, 1, keyLength)
}

// Encrypt seals the plaintext into the iv:authTag:ciphertext hex token format
func (s *vaultService) Encrypt(plaintext string) (string, error) {
	block, err := aes.NewCipher(s.key)
	if err != nil {
		return "", err
	}

	gcm, err := cipher.NewGCMWithNonceSize(block, ivLength)
	if err != nil {
		return "", err
	}

	iv := make([]byte, ivLength)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", err
	}

	sealed := gcm.Seal(nil, iv, []byte(plaintext), nil)
	ciphertext := sealed[:len(sealed)-tagLength]
	tag := sealed[len(sealed)-tagLength:]

	return fmt.Sprintf("%s:%s:%s", hex.EncodeToString(iv), hex.EncodeToString(tag), hex.EncodeToString(ciphertext)), nil
}

// Decrypt opens an iv:authTag:ciphertext hex token. Malformed tokens and
// authentication failures both surface as ErrDecryptionFailed; plaintext is
// never partially returned.
func (s *vaultService) Decrypt(token string) (string, error) {
	parts := strings.Split(token, ":")
	if len(parts) != 3 {
		return "", errors.Wrap(sendguard_errors.ErrDecryptionFailed, "token must have iv:authTag:ciphertext segments")
	}

	iv, err := hex.DecodeString(parts[0])
	if err != nil || len(iv) != ivLength {
		return "", errors.Wrap(sendguard_errors.ErrDecryptionFailed, "malformed iv segment")
	}

	tag, err := hex.DecodeString(parts[1])
	if err != nil || len(tag) != tagLength {
		return "", errors.Wrap(sendguard_errors.ErrDecryptionFailed, "malformed auth tag segment")
	}

	ciphertext, err := hex.DecodeString(parts[2])
	if err != nil {
		return "", errors.Wrap(sendguard_errors.ErrDecryptionFailed, "malformed ciphertext segment")
	}

	block, err := aes.NewCipher(s.key)
	if err != nil {
		return "", err
	}

	gcm, err := cipher.NewGCMWithNonceSize(block, ivLength)
	if err != nil {
		return "", err
	}

	plaintext, err := gcm.Open(nil, iv, append(ciphertext, tag...), nil)
	if err != nil {
		return "", errors.Wrap(sendguard_errors.ErrDecryptionFailed, "authentication failed")
	}

	return string(plaintext), nil
}
