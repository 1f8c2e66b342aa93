package keyset

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
)

// The provider publishes keys as a JWK set. Only the members needed to
// rebuild RSA and EC public keys are decoded; other key types are
// skipped rather than failing the whole set.
type jwkDocument struct {
	Keys []jwkEntry `json:"keys"`
}

type jwkEntry struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	Alg string `json:"alg"`
	Use string `json:"use"`

	// RSA
	N string `json:"n"`
	E string `json:"e"`

	// EC
	Crv string `json:"crv"`
	X   string `json:"x"`
	Y   string `json:"y"`
}

func parseKeySet(raw []byte) (map[string]Key, error) {
	var doc jwkDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parsing key set json: %v", err)
	}

	out := make(map[string]Key, len(doc.Keys))
	for _, e := range doc.Keys {
		if e.Kid == "" {
			continue
		}
		if e.Use != "" && e.Use != "sig" {
			continue
		}
		var (
			pub any
			err error
		)
		switch e.Kty {
		case "RSA":
			pub, err = parseRSAKey(e)
		case "EC":
			pub, err = parseECKey(e)
		default:
			continue
		}
		if err != nil {
			return nil, err
		}
		out[e.Kid] = Key{ID: e.Kid, Algorithm: e.Alg, Public: pub}
	}
	return out, nil
}

func parseRSAKey(e jwkEntry) (*rsa.PublicKey, error) {
	if e.N == "" || e.E == "" {
		return nil, fmt.Errorf("invalid RSA key %q: missing n/e", e.Kid)
	}
	nBytes, err := base64.RawURLEncoding.DecodeString(e.N)
	if err != nil {
		return nil, fmt.Errorf("invalid RSA key %q: decoding n: %v", e.Kid, err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(e.E)
	if err != nil {
		return nil, fmt.Errorf("invalid RSA key %q: decoding e: %v", e.Kid, err)
	}
	exp := new(big.Int).SetBytes(eBytes)
	if !exp.IsInt64() || exp.Int64() <= 0 {
		return nil, fmt.Errorf("invalid RSA key %q: bad exponent", e.Kid)
	}
	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: int(exp.Int64()),
	}, nil
}

func parseECKey(e jwkEntry) (*ecdsa.PublicKey, error) {
	var curve elliptic.Curve
	switch e.Crv {
	case "P-256":
		curve = elliptic.P256()
	case "P-384":
		curve = elliptic.P384()
	case "P-521":
		curve = elliptic.P521()
	default:
		return nil, fmt.Errorf("invalid EC key %q: unsupported curve %q", e.Kid, e.Crv)
	}
	if e.X == "" || e.Y == "" {
		return nil, fmt.Errorf("invalid EC key %q: missing x/y", e.Kid)
	}
	xBytes, err := base64.RawURLEncoding.DecodeString(e.X)
	if err != nil {
		return nil, fmt.Errorf("invalid EC key %q: decoding x: %v", e.Kid, err)
	}
	yBytes, err := base64.RawURLEncoding.DecodeString(e.Y)
	if err != nil {
		return nil, fmt.Errorf("invalid EC key %q: decoding y: %v", e.Kid, err)
	}
	return &ecdsa.PublicKey{
		Curve: curve,
		X:     new(big.Int).SetBytes(xBytes),
		Y:     new(big.Int).SetBytes(yBytes),
	}, nil
}
