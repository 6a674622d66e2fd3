package dsa

import (
	"crypto/dsa"
	"io"
	"math/big"

	"github.com/go-i2p/logger"
)

var log = logger.GetGoI2PLogger()

// generate a dsa keypair
func generateDSA(priv *dsa.PrivateKey, rand io.Reader) error {
	log.Debug("Generating DSA key pair")
	p, err := groupParameters()
	if err != nil {
		return err
	}
	priv.P = p.P
	priv.Q = p.Q
	priv.G = p.G
	if err := dsa.GenerateKey(priv, rand); err != nil {
		log.WithError(err).Error("Failed to generate DSA key pair")
		return err
	}
	log.Debug("DSA key pair generated successfully")
	return nil
}

// create i2p dsa public key given its public component
func createDSAPublicKey(Y *big.Int) (*dsa.PublicKey, error) {
	log.Debug("Creating DSA public key")
	p, err := groupParameters()
	if err != nil {
		return nil, err
	}
	return &dsa.PublicKey{
		Parameters: p,
		Y:          Y,
	}, nil
}

// create an i2p dsa private key given its secret component
func createDSAPrivkey(X *big.Int) (*dsa.PrivateKey, error) {
	log.Debug("Creating DSA private key")
	p, err := groupParameters()
	if err != nil {
		return nil, err
	}
	if X.Cmp(p.P) >= 0 {
		log.Warn("Failed to create DSA private key: X is not less than p")
		return nil, nil
	}
	Y := new(big.Int).Exp(p.G, X, p.P)
	k := &dsa.PrivateKey{
		PublicKey: dsa.PublicKey{
			Parameters: p,
			Y:          Y,
		},
		X: X,
	}
	log.Debug("DSA private key created successfully")
	return k, nil
}
