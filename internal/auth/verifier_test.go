package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"loyalty-platform/internal/keyset"
	"loyalty-platform/internal/rbac"
)

const (
	testIssuer   = "https://idp.test"
	testAudience = "loyalty-api"
	testKid      = "test-key"
)

func newTestKeys(t *testing.T) (*rsa.PrivateKey, *keyset.Cache) {
	t.Helper()

	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	doc, err := json.Marshal(map[string]any{"keys": []map[string]string{{
		"kid": testKid,
		"kty": "RSA",
		"alg": "RS256",
		"use": "sig",
		"n":   base64.RawURLEncoding.EncodeToString(priv.PublicKey.N.Bytes()),
		"e":   base64.RawURLEncoding.EncodeToString([]byte{1, 0, 1}),
	}}})
	if err != nil {
		t.Fatalf("marshal jwks: %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(doc)
	}))
	t.Cleanup(srv.Close)

	keys, err := keyset.New(keyset.Config{URL: srv.URL})
	if err != nil {
		t.Fatalf("keyset: %v", err)
	}
	return priv, keys
}

func newTestVerifier(t *testing.T) (*Verifier, *rsa.PrivateKey) {
	t.Helper()

	priv, keys := newTestKeys(t)
	v, err := NewVerifier(keys, VerifierConfig{Issuer: testIssuer, Audience: testAudience})
	if err != nil {
		t.Fatalf("verifier: %v", err)
	}
	return v, priv
}

func baseClaims(exp time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			Issuer:    testIssuer,
			Audience:  jwt.ClaimStrings{testAudience},
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-time.Minute)),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Role: "customer",
	}
}

func sign(t *testing.T, key *rsa.PrivateKey, kid string, claims Claims) string {
	t.Helper()

	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if kid != "" {
		tok.Header["kid"] = kid
	}
	s, err := tok.SignedString(key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func TestVerify_ValidToken(t *testing.T) {
	v, priv := newTestVerifier(t)

	claims := baseClaims(time.Now().Add(time.Hour))
	claims.Role = "shop_admin"
	claims.ShopID = "shop_1"

	got, err := v.Verify(context.Background(), sign(t, priv, testKid, claims))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if got.Subject != "user-1" || got.Role != "shop_admin" || got.ShopID != "shop_1" {
		t.Fatalf("unexpected claims: %+v", got)
	}
}

func TestVerify_ExpiredToken(t *testing.T) {
	v, priv := newTestVerifier(t)

	tok := sign(t, priv, testKid, baseClaims(time.Now().Add(-time.Hour)))
	if _, err := v.Verify(context.Background(), tok); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestVerify_NotYetValid(t *testing.T) {
	v, priv := newTestVerifier(t)

	claims := baseClaims(time.Now().Add(2 * time.Hour))
	claims.NotBefore = jwt.NewNumericDate(time.Now().Add(time.Hour))
	if _, err := v.Verify(context.Background(), sign(t, priv, testKid, claims)); !errors.Is(err, ErrNotYetValid) {
		t.Fatalf("expected ErrNotYetValid, got %v", err)
	}
}

func TestVerify_IssuerMismatch(t *testing.T) {
	v, priv := newTestVerifier(t)

	claims := baseClaims(time.Now().Add(time.Hour))
	claims.Issuer = "https://someone-else.test"
	if _, err := v.Verify(context.Background(), sign(t, priv, testKid, claims)); !errors.Is(err, ErrIssuerMismatch) {
		t.Fatalf("expected ErrIssuerMismatch, got %v", err)
	}
}

func TestVerify_AudienceMismatch(t *testing.T) {
	v, priv := newTestVerifier(t)

	claims := baseClaims(time.Now().Add(time.Hour))
	claims.Audience = jwt.ClaimStrings{"other-api"}
	if _, err := v.Verify(context.Background(), sign(t, priv, testKid, claims)); !errors.Is(err, ErrAudienceMismatch) {
		t.Fatalf("expected ErrAudienceMismatch, got %v", err)
	}
}

func TestVerify_UnknownKid(t *testing.T) {
	v, priv := newTestVerifier(t)

	tok := sign(t, priv, "rotated-away", baseClaims(time.Now().Add(time.Hour)))
	if _, err := v.Verify(context.Background(), tok); !errors.Is(err, ErrUnknownKey) {
		t.Fatalf("expected ErrUnknownKey, got %v", err)
	}
}

func TestVerify_MissingKid(t *testing.T) {
	v, priv := newTestVerifier(t)

	tok := sign(t, priv, "", baseClaims(time.Now().Add(time.Hour)))
	if _, err := v.Verify(context.Background(), tok); !errors.Is(err, ErrUnknownKey) {
		t.Fatalf("expected ErrUnknownKey, got %v", err)
	}
}

func TestVerify_WrongSigningKey(t *testing.T) {
	v, _ := newTestVerifier(t)

	other, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	tok := sign(t, other, testKid, baseClaims(time.Now().Add(time.Hour)))
	if _, err := v.Verify(context.Background(), tok); !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("expected ErrSignatureInvalid, got %v", err)
	}
}

// An already-dead token reports Expired no matter how it was signed.
func TestVerify_ExpiredWinsOverBadSignature(t *testing.T) {
	v, _ := newTestVerifier(t)

	other, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	tok := sign(t, other, testKid, baseClaims(time.Now().Add(-time.Hour)))
	if _, err := v.Verify(context.Background(), tok); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestVerify_RejectsNoneAlgorithm(t *testing.T) {
	v, _ := newTestVerifier(t)

	tok := jwt.NewWithClaims(jwt.SigningMethodNone, baseClaims(time.Now().Add(time.Hour)))
	tok.Header["kid"] = testKid
	s, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := v.Verify(context.Background(), s); !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("expected ErrSignatureInvalid, got %v", err)
	}
}

func TestVerify_MalformedToken(t *testing.T) {
	v, _ := newTestVerifier(t)

	if _, err := v.Verify(context.Background(), "not.a.token"); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestVerify_KeySourceUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	keys, err := keyset.New(keyset.Config{URL: srv.URL})
	if err != nil {
		t.Fatalf("keyset: %v", err)
	}
	v, err := NewVerifier(keys, VerifierConfig{Issuer: testIssuer, Audience: testAudience})
	if err != nil {
		t.Fatalf("verifier: %v", err)
	}

	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	tok := sign(t, priv, testKid, baseClaims(time.Now().Add(time.Hour)))
	if _, err := v.Verify(context.Background(), tok); !errors.Is(err, keyset.ErrSourceUnavailable) {
		t.Fatalf("expected ErrSourceUnavailable, got %v", err)
	}
}

// Round trip: a staff token with no explicit permission claim resolves
// to exactly the barista default set.
func TestVerifyThenAuthorize_StaffDefaultPermissions(t *testing.T) {
	v, priv := newTestVerifier(t)

	claims := baseClaims(time.Now().Add(time.Hour))
	claims.Role = "shop_staff"
	claims.ShopID = "shop_1"
	claims.StaffRole = "barista"

	got, err := v.Verify(context.Background(), sign(t, priv, testKid, claims))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}

	id, err := rbac.Authorize(got.ClaimSet(), nil)
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	want := rbac.DefaultStaffPermissions(rbac.StaffRoleBarista)
	if !reflect.DeepEqual(id.Permissions, want) {
		t.Fatalf("permissions = %v, want %v", id.Permissions.Strings(), want.Strings())
	}
}
