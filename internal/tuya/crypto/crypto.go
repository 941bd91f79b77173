// Package crypto implements the Tuya BLE v3 session crypto: MD5-based key
// derivation from the device's local key plus the handshake random, and
// AES-128-CBC payload encryption with zero padding. The padding is not
// self-delimiting; the frame's payload length field bounds it, and the CRC
// inside the frame catches corrupted or misordered ciphertext.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
)

// localKeyLen is how much of the credential local_key string actually feeds
// key derivation. Tuya truncates the key to its first six bytes.
const localKeyLen = 6

// srandLen is the length of the handshake random carried in the device
// info response.
const srandLen = 6

// ErrDecryption marks ciphertext that cannot be decrypted: wrong length or,
// detected one layer up via the frame CRC, a stale session key. The session
// layer treats it as a key mismatch and re-handshakes instead of retrying.
var ErrDecryption = errors.New("crypto: decryption failed")

// LoginKey derives the pre-session key used to encrypt the device info
// request, before any handshake material is available.
func LoginKey(localKey string) ([]byte, error) {
	if len(localKey) < localKeyLen {
		return nil, fmt.Errorf("crypto: local key must be at least %d bytes, got %d", localKeyLen, len(localKey))
	}
	sum := md5.Sum([]byte(localKey[:localKeyLen]))
	return sum[:], nil
}

// SessionKey derives the per-connection key from the local key and the
// 6-byte random the device sends in its device info response. Every session
// gets a key distinct from the raw local key.
func SessionKey(localKey string, srand []byte) ([]byte, error) {
	if len(localKey) < localKeyLen {
		return nil, fmt.Errorf("crypto: local key must be at least %d bytes, got %d", localKeyLen, len(localKey))
	}
	if len(srand) != srandLen {
		return nil, fmt.Errorf("crypto: handshake random must be %d bytes, got %d", srandLen, len(srand))
	}
	h := md5.New()
	h.Write([]byte(localKey[:localKeyLen]))
	h.Write(srand)
	return h.Sum(nil), nil
}

// NewIV returns a fresh random CBC initialization vector.
func NewIV() ([]byte, error) {
	iv := make([]byte, aes.BlockSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, fmt.Errorf("crypto: random IV: %w", err)
	}
	return iv, nil
}

// Encrypt zero-pads plaintext to the AES block size and encrypts it with
// AES-128-CBC under key and iv.
func Encrypt(key, iv, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: new cipher: %w", err)
	}
	if len(iv) != aes.BlockSize {
		return nil, fmt.Errorf("crypto: IV must be %d bytes, got %d", aes.BlockSize, len(iv))
	}

	padded := make([]byte, (len(plaintext)+aes.BlockSize-1)/aes.BlockSize*aes.BlockSize)
	copy(padded, plaintext)

	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)
	return out, nil
}

// Decrypt decrypts an AES-128-CBC ciphertext. The zero padding is left in
// place; the caller delimits the payload with the frame length field.
func Decrypt(key, iv, ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: new cipher: %w", err)
	}
	if len(iv) != aes.BlockSize {
		return nil, fmt.Errorf("crypto: IV must be %d bytes, got %d", aes.BlockSize, len(iv))
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: ciphertext length %d is not a block multiple", ErrDecryption, len(ciphertext))
	}

	out := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, ciphertext)
	return out, nil
}
