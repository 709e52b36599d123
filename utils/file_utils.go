package utils

import (
	"crypto/rsa"
	"io/ioutil"
	"log"
	"os"

	"github.com/pkg/errors"
)

// ParseKeyFile loads the RSA key stored at fPath. With createNew set, a
// fresh key of the given size is generated and saved there instead.
func ParseKeyFile(fPath string, createNew bool, bits int) (*rsa.PrivateKey, error) {
	if fPath == "" {
		return nil, errors.New("key file path is missing")
	}
	if createNew {
		log.Println("generating a new key at", fPath)
		key, _ := GenerateKeyPair(bits)
		if key == nil {
			return nil, errors.New("failed to generate a new key")
		}
		if err := SavePrivateKeyToFile(key, fPath); err != nil {
			return nil, err
		}
		return key, nil
	}
	return ReadKeyFromFPath(fPath)
}

// SavePrivateKeyToFile writes the key to fpath in PEM form.
func SavePrivateKeyToFile(privkey *rsa.PrivateKey, fpath string) error {
	f, err := os.Create(fpath)
	if err != nil {
		return errors.Wrapf(err, "failed to open key file %s", fpath)
	}
	defer f.Close()
	if _, err := f.Write(PrivateKeyToBytes(privkey)); err != nil {
		return errors.Wrapf(err, "failed to save key in %s", fpath)
	}
	return nil
}

// ReadKeyFromFPath reads a PEM encoded private key from fPath.
func ReadKeyFromFPath(fPath string) (*rsa.PrivateKey, error) {
	fileContent, err := ioutil.ReadFile(fPath)
	if err != nil {
		return nil, err
	}
	key := BytesToPrivateKey(fileContent)
	if key == nil {
		return nil, errors.Errorf("%s does not hold a valid private key", fPath)
	}
	return key, nil
}
