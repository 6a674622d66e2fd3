package aes

import (
	"crypto/aes"
	"crypto/cipher"

	"github.com/samber/oops"
)

// StreamState wraps a cipher.BlockMode so the session record layer (C6) can
// decrypt or encrypt one 16-byte block at a time and let the chaining state
// carry across calls, across the whole lifetime of the connection. There is
// no re-keying once the handshake completes: the CBC chain that exits the
// handshake is the same chain the frame layer continues.
type StreamState struct {
	mode cipher.BlockMode
}

// NewEncryptStream builds a block-at-a-time CBC encryptor seeded with key/iv.
func NewEncryptStream(key, iv []byte) (*StreamState, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, oops.Errorf("failed to create AES cipher: %w", err)
	}
	return &StreamState{mode: cipher.NewCBCEncrypter(block, iv)}, nil
}

// NewDecryptStream builds a block-at-a-time CBC decryptor seeded with key/iv.
func NewDecryptStream(key, iv []byte) (*StreamState, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, oops.Errorf("failed to create AES cipher: %w", err)
	}
	return &StreamState{mode: cipher.NewCBCDecrypter(block, iv)}, nil
}

// ProcessBlock encrypts or decrypts exactly one 16-byte block from src into
// dst (which may be the same slice), advancing the chain so the next call
// continues from this block's ciphertext.
func (s *StreamState) ProcessBlock(dst, src []byte) error {
	if len(src) != aes.BlockSize || len(dst) != aes.BlockSize {
		return oops.Errorf("stream block must be exactly %d bytes", aes.BlockSize)
	}
	s.mode.CryptBlocks(dst, src)
	return nil
}

// BlockSize is exported for callers computing frame padding.
const BlockSize = aes.BlockSize
