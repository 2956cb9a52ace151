// Package sign clearsigns rendered changelogs with OpenPGP keys, the way
// Debian upload tools sign .changes and .dsc files.
package sign

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
	"github.com/ProtonMail/go-crypto/openpgp/clearsign"
)

var (
	// ErrNoPrivateKey is returned when the key ring holds no private key.
	ErrNoPrivateKey = errors.New("no private key found")

	// ErrNotSigned is returned by Verify when the input is not a clearsigned
	// message.
	ErrNotSigned = errors.New("no clearsigned message found")
)

// signer returns the first entity of the ASCII-armored key ring that holds a
// private key.
func signer(key string) (*openpgp.Entity, error) {
	entities, err := openpgp.ReadArmoredKeyRing(strings.NewReader(key))
	if err != nil {
		return nil, fmt.Errorf("reading key: %w", err)
	}
	for _, e := range entities {
		if e.PrivateKey != nil {
			return e, nil
		}
	}
	return nil, ErrNoPrivateKey
}

// Clearsign signs input using the ASCII-armored PGP private key.
// It returns the clearsigned message.
func Clearsign(input []byte, key string) ([]byte, error) {
	e, err := signer(key)
	if err != nil {
		return nil, err
	}

	var out bytes.Buffer
	w, err := clearsign.Encode(&out, e.PrivateKey, nil)
	if err != nil {
		return nil, fmt.Errorf("starting signature: %w", err)
	}
	if _, err := w.Write(input); err != nil {
		return nil, fmt.Errorf("signing: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("signing: %w", err)
	}
	return out.Bytes(), nil
}

// PublicKey extracts the public key from an ASCII-armored PGP private key.
// If armored is true, it returns the public key in ASCII-armored format.
// Otherwise, it returns the binary serialized public key.
func PublicKey(key string, armored bool) ([]byte, error) {
	e, err := signer(key)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if !armored {
		if err := e.Serialize(&buf); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	w, err := armor.Encode(&buf, openpgp.PublicKeyType, nil)
	if err != nil {
		return nil, err
	}
	if err := e.Serialize(w); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Verify checks a clearsigned message against the ASCII-armored public key
// ring and returns the signed text.
func Verify(signed []byte, publicKey string) ([]byte, error) {
	keyring, err := openpgp.ReadArmoredKeyRing(strings.NewReader(publicKey))
	if err != nil {
		return nil, fmt.Errorf("reading key: %w", err)
	}
	b, _ := clearsign.Decode(signed)
	if b == nil {
		return nil, ErrNotSigned
	}
	if _, err := openpgp.CheckDetachedSignature(keyring, bytes.NewReader(b.Bytes), b.ArmoredSignature.Body, nil); err != nil {
		return nil, fmt.Errorf("checking signature: %w", err)
	}
	return b.Plaintext, nil
}
