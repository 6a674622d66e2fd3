package aes

import (
	"crypto/aes"
	"crypto/cipher"

	"github.com/go-i2p/logger"
	"github.com/samber/oops"
)

var log = logger.GetGoI2PLogger()

// AESSymmetricDecrypter implements the Decrypter interface using AES-256-CBC.
type AESSymmetricDecrypter struct {
	Key []byte
	IV  []byte
}

// Decrypt decrypts data in place using AES-CBC. len(data) must be a multiple
// of the AES block size.
func (d *AESSymmetricDecrypter) Decrypt(data []byte) ([]byte, error) {
	log.WithField("data_length", len(data)).Debug("Decrypting data")

	block, err := aes.NewCipher(d.Key)
	if err != nil {
		log.WithError(err).Error("Failed to create AES cipher")
		return nil, err
	}

	if len(data)%aes.BlockSize != 0 {
		log.Error("Ciphertext is not a multiple of the block size")
		return nil, oops.Errorf("ciphertext is not a multiple of the block size")
	}

	plaintext := make([]byte, len(data))
	mode := cipher.NewCBCDecrypter(block, d.IV)
	mode.CryptBlocks(plaintext, data)

	log.WithField("plaintext_length", len(plaintext)).Debug("Data decrypted successfully")
	return plaintext, nil
}

func NewCipher(c []byte) (cipher.Block, error) {
	return aes.NewCipher(c)
}
