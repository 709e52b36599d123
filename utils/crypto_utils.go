package utils

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
)

// GenerateKeyPair generates a new RSA key pair.
func GenerateKeyPair(bits int) (*rsa.PrivateKey, *rsa.PublicKey) {
	privkey, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, nil
	}
	return privkey, &privkey.PublicKey
}

// PrivateKeyToBytes encodes a private key as a PEM block.
func PrivateKeyToBytes(priv *rsa.PrivateKey) []byte {
	return pem.EncodeToMemory(
		&pem.Block{
			Type:  "RSA PRIVATE KEY",
			Bytes: x509.MarshalPKCS1PrivateKey(priv),
		},
	)
}

// PublicKeyToBytes encodes a public key in PKIX, ASN.1 DER form. This is the
// byte form stored in outputs as the owner identity.
func PublicKeyToBytes(pub *rsa.PublicKey) []byte {
	pubASN1, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil
	}
	return pubASN1
}

// BytesToPrivateKey decodes a PEM encoded private key.
func BytesToPrivateKey(priv []byte) *rsa.PrivateKey {
	block, _ := pem.Decode(priv)
	if block == nil {
		return nil
	}
	key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil
	}
	return key
}

// BytesToPublicKey decodes a PKIX encoded public key. Returns nil on any
// malformed input.
func BytesToPublicKey(pub []byte) *rsa.PublicKey {
	ifc, err := x509.ParsePKIXPublicKey(pub)
	if err != nil {
		return nil
	}
	key, ok := ifc.(*rsa.PublicKey)
	if !ok {
		return nil
	}
	return key
}

// SHA256 hashes a message. Used to derive transaction and block identifiers.
func SHA256(msg []byte) []byte {
	h := crypto.SHA256.New()
	h.Write(msg)
	return h.Sum(nil)
}

// Sign a message's SHA256 digest with the provided private key.
func Sign(msg []byte, sk *rsa.PrivateKey) ([]byte, error) {
	digest := SHA256(msg)

	var opts rsa.PSSOptions
	opts.SaltLength = rsa.PSSSaltLengthAuto
	signature, err := rsa.SignPSS(rand.Reader, sk, crypto.SHA256, digest, &opts)
	if err != nil {
		return nil, err
	}
	return signature, nil
}

// Verify that the signature matches the message under the given public key.
// Pure function with no shared state.
func Verify(msg []byte, pk *rsa.PublicKey, signature []byte) bool {
	digest := SHA256(msg)

	var opts rsa.PSSOptions
	opts.SaltLength = rsa.PSSSaltLengthAuto
	return rsa.VerifyPSS(pk, crypto.SHA256, digest, signature, &opts) == nil
}
