package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"loyalty-platform/internal/keyset"
)

// Verification failures form a closed set so the gate can log the
// precise kind without ever leaking verification internals to callers.
var (
	ErrMalformed        = errors.New("auth: malformed token")
	ErrUnknownKey       = errors.New("auth: unknown signing key")
	ErrSignatureInvalid = errors.New("auth: signature invalid")
	ErrExpired          = errors.New("auth: token expired")
	ErrNotYetValid      = errors.New("auth: token not yet valid")
	ErrIssuerMismatch   = errors.New("auth: issuer mismatch")
	ErrAudienceMismatch = errors.New("auth: audience mismatch")
)

// allowedAlgs is the signing-algorithm allowlist. Anything else the
// header names, including "none", is rejected before signature checks.
var allowedAlgs = []string{
	jwt.SigningMethodRS256.Alg(),
	jwt.SigningMethodES256.Alg(),
}

// clockSkewLeeway tolerates clock drift between the provider and the
// gateway when checking exp and nbf.
const clockSkewLeeway = 30 * time.Second

// Verifier checks bearer tokens against the cached provider key set.
// It is a pure function of its inputs plus the key cache; safe for
// concurrent use.
type Verifier struct {
	keys     *keyset.Cache
	issuer   string
	audience string
	now      func() time.Time
}

type VerifierConfig struct {
	Issuer   string
	Audience string

	// Now overrides the clock (tests).
	Now func() time.Time
}

func NewVerifier(keys *keyset.Cache, cfg VerifierConfig) (*Verifier, error) {
	if keys == nil {
		return nil, errors.New("auth: key cache is required")
	}
	if cfg.Issuer == "" {
		return nil, errors.New("auth: issuer is required")
	}
	if cfg.Audience == "" {
		return nil, errors.New("auth: audience is required")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Verifier{
		keys:     keys,
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		now:      cfg.Now,
	}, nil
}

// Verify parses and verifies a bearer token and returns its claims.
// Every failure maps to exactly one of the package's sentinel errors,
// except an unreachable key source, which surfaces as
// keyset.ErrSourceUnavailable for the gate to translate.
func (v *Verifier) Verify(ctx context.Context, token string) (Claims, error) {
	var claims Claims

	parser := jwt.NewParser(
		jwt.WithValidMethods(allowedAlgs),
		jwt.WithTimeFunc(v.now),
		jwt.WithLeeway(clockSkewLeeway),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(v.issuer),
		jwt.WithAudience(v.audience),
	)

	_, err := parser.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, ErrUnknownKey
		}
		key, err := v.keys.Key(ctx, kid)
		if err != nil {
			return nil, err
		}
		// A cached key must match the algorithm the token names.
		if key.Algorithm != "" && key.Algorithm != t.Method.Alg() {
			return nil, ErrSignatureInvalid
		}
		return key.Public, nil
	})
	if err != nil {
		kind := classify(err)
		// The library stops at a failed signature before validating
		// claims, but an already-dead token must report Expired no
		// matter how it was signed. The claims were decoded during
		// parsing, so exp is available here.
		if errors.Is(kind, ErrSignatureInvalid) && pastExpiry(claims, v.now()) {
			return Claims{}, ErrExpired
		}
		return Claims{}, kind
	}

	return claims, nil
}

// pastExpiry reports whether the decoded exp lies beyond the skew
// leeway in the past.
func pastExpiry(c Claims, now time.Time) bool {
	return c.ExpiresAt != nil && now.Sub(c.ExpiresAt.Time) > clockSkewLeeway
}

// classify maps library and keyfunc errors onto the closed error set.
func classify(err error) error {
	switch {
	case errors.Is(err, keyset.ErrSourceUnavailable):
		return err
	case errors.Is(err, ErrUnknownKey), errors.Is(err, keyset.ErrKeyNotFound):
		return ErrUnknownKey
	case errors.Is(err, ErrSignatureInvalid):
		return ErrSignatureInvalid
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrMalformed
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return ErrNotYetValid
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return ErrIssuerMismatch
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return ErrAudienceMismatch
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrSignatureInvalid
	default:
		return ErrMalformed
	}
}
