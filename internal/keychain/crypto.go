package keychain

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/nacl/box"

	"github.com/nhle/maillist/internal/model"
)

// Algorithm identifies the encryption scheme of encrypted bodies.
const Algorithm = "x25519-xsalsa20-poly1305"

const nonceSize = 24

// ErrDecrypt indicates a ciphertext could not be opened.
var ErrDecrypt = errors.New("decryption failed")

// DecryptBody returns the readable text of body. Unencrypted bodies are
// returned as is (HTML only bodies yield their HTML).
func (k *Keychain) DecryptBody(_ context.Context, body *model.Body) (string, error) {
	if body == nil {
		return "", fmt.Errorf("decrypting body: body not fetched")
	}
	if !body.Encrypted {
		if body.Text != "" {
			return body.Text, nil
		}
		return body.HTML, nil
	}

	priv, err := k.privateKey()
	if err != nil {
		return "", fmt.Errorf("decrypting body: %w", err)
	}
	plain, err := Open(body.Ciphertext, priv)
	if err != nil {
		return "", fmt.Errorf("decrypting body: %w", err)
	}
	return string(plain), nil
}

// Seal encrypts message for recipientPub with an ephemeral key pair.
// Output: ephemeral_public_key (32B) || nonce (24B) || ciphertext.
func Seal(message, recipientPub []byte) ([]byte, error) {
	if len(recipientPub) != KeySize {
		return nil, fmt.Errorf("invalid recipient public key size: %d", len(recipientPub))
	}

	ephemeralPub, ephemeralPriv, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate ephemeral key: %w", err)
	}

	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	var recipient [KeySize]byte
	copy(recipient[:], recipientPub)

	out := make([]byte, 0, KeySize+nonceSize+len(message)+box.Overhead)
	out = append(out, ephemeralPub[:]...)
	out = append(out, nonce[:]...)
	return box.Seal(out, message, &nonce, &recipient, ephemeralPriv), nil
}

// Open reverses Seal using the recipient's private key.
func Open(data, privateKey []byte) ([]byte, error) {
	if len(privateKey) != KeySize {
		return nil, fmt.Errorf("invalid private key size: %d", len(privateKey))
	}
	if len(data) < KeySize+nonceSize+box.Overhead {
		return nil, fmt.Errorf("ciphertext too short: %d bytes: %w", len(data), ErrDecrypt)
	}

	var ephemeralPub [KeySize]byte
	copy(ephemeralPub[:], data[:KeySize])

	var nonce [nonceSize]byte
	copy(nonce[:], data[KeySize:KeySize+nonceSize])

	var priv [KeySize]byte
	copy(priv[:], privateKey)

	plain, ok := box.Open(nil, data[KeySize+nonceSize:], &nonce, &ephemeralPub, &priv)
	if !ok {
		return nil, ErrDecrypt
	}
	return plain, nil
}

// GenerateKeyPair returns a fresh NaCl box key pair.
func GenerateKeyPair() (pub, priv []byte, err error) {
	p, s, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("generate key pair: %w", err)
	}
	return p[:], s[:], nil
}
