package utils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"io"
	"os"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

var contactKey []byte

func init() {
	secret := os.Getenv("CONTACT_SECRET")
	if secret == "" {
		// Default untuk development, ganti via env di produksi
		secret = "SeatingContactSecret"
	}
	contactKey = pbkdf2.Key([]byte(secret), []byte("restaurant-seating"), 4096, 32, sha256.New)
}

// EncryptContact mengenkripsi kontak tamu dengan AES-GCM, hasil base64
func EncryptContact(plain string) (string, error) {
	if plain == "" {
		return "", nil
	}

	block, err := aes.NewCipher(contactKey)
	if err != nil {
		return "", err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	sealed := gcm.Seal(nonce, nonce, []byte(plain), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// DecryptContact kebalikan dari EncryptContact
func DecryptContact(encoded string) (string, error) {
	if encoded == "" {
		return "", nil
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(contactKey)
	if err != nil {
		return "", err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	if len(raw) < gcm.NonceSize() {
		return "", errors.New("ciphertext too short")
	}

	plain, err := gcm.Open(nil, raw[:gcm.NonceSize()], raw[gcm.NonceSize():], nil)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

// MaskContact menutup bagian tengah kontak untuk tampilan
func MaskContact(contact string) string {
	if contact == "" {
		return ""
	}
	if len(contact) <= 4 {
		return strings.Repeat("*", len(contact))
	}
	return contact[:2] + strings.Repeat("*", len(contact)-4) + contact[len(contact)-2:]
}

// HashContact hash pencarian deterministik (hex sha256)
func HashContact(contact string) string {
	if contact == "" {
		return ""
	}
	sum := sha256.Sum256(append(contactKey[:8:8], []byte(contact)...))
	return hex.EncodeToString(sum[:])
}
