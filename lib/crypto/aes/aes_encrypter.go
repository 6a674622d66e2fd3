package aes

import (
	"crypto/aes"
	"crypto/cipher"

	"github.com/samber/oops"
)

// AESSymmetricEncrypter implements the Encrypter interface using AES-256-CBC.
// NTCP handshake records and post-handshake frames are always padded by the
// caller to a whole number of blocks before reaching here, so there is no
// PKCS#7 step.
type AESSymmetricEncrypter struct {
	Key []byte
	IV  []byte
}

// Encrypt encrypts data using AES-CBC into a newly allocated buffer; data
// itself is left unchanged. len(data) must be a multiple of the AES block
// size.
func (e *AESSymmetricEncrypter) Encrypt(data []byte) ([]byte, error) {
	log.WithField("data_length", len(data)).Debug("Encrypting data")

	if len(data)%aes.BlockSize != 0 {
		return nil, oops.Errorf("data length must be a multiple of block size")
	}

	block, err := aes.NewCipher(e.Key)
	if err != nil {
		log.WithError(err).Error("Failed to create AES cipher")
		return nil, err
	}

	ciphertext := make([]byte, len(data))
	mode := cipher.NewCBCEncrypter(block, e.IV)
	mode.CryptBlocks(ciphertext, data)

	log.WithField("ciphertext_length", len(ciphertext)).Debug("Data encrypted successfully")
	return ciphertext, nil
}
