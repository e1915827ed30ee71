package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncryptDecryptContact(t *testing.T) {
	plain := "081234567890"

	encrypted, err := EncryptContact(plain)
	assert.NoError(t, err)
	assert.NotEmpty(t, encrypted)
	assert.NotEqual(t, plain, encrypted)

	decrypted, err := DecryptContact(encrypted)
	assert.NoError(t, err)
	assert.Equal(t, plain, decrypted)

	// Nonce acak: dua enkripsi nilai sama tidak identik
	again, err := EncryptContact(plain)
	assert.NoError(t, err)
	assert.NotEqual(t, encrypted, again)
}

func TestEncryptContactEmpty(t *testing.T) {
	encrypted, err := EncryptContact("")
	assert.NoError(t, err)
	assert.Empty(t, encrypted)

	decrypted, err := DecryptContact("")
	assert.NoError(t, err)
	assert.Empty(t, decrypted)
}

func TestDecryptContactGarbage(t *testing.T) {
	_, err := DecryptContact("not-base64!!")
	assert.Error(t, err)

	_, err = DecryptContact("YWJj")
	assert.Error(t, err)
}

func TestMaskContact(t *testing.T) {
	assert.Equal(t, "08********90", MaskContact("081234567890"))
	assert.Equal(t, "****", MaskContact("1234"))
	assert.Equal(t, "", MaskContact(""))
}

func TestHashContactDeterministic(t *testing.T) {
	a := HashContact("081234567890")
	b := HashContact("081234567890")
	c := HashContact("081234567891")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
	assert.Empty(t, HashContact(""))
}
