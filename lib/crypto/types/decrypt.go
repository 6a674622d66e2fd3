package types

// Decrypter decrypts data previously produced by the matching Encrypter.
type Decrypter interface {
	// decrypt a block of data
	// return decrypted block or nil and error if error happens
	Decrypt(data []byte) ([]byte, error)
}

// Encrypter encrypts data for the holder of the matching Decrypter.
type Encrypter interface {
	Encrypt(data []byte) ([]byte, error)
}

// SymmetricKey can mint independent encrypter/decrypter halves from one key.
type SymmetricKey interface {
	Len() int
	Bytes() []byte
	NewEncrypter() (Encrypter, error)
	NewDecrypter() (Decrypter, error)
}
