package provider_test

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const (
	testClientID = "test-client-1"
	testKeyID    = "test-key-1"
)

// fakeAuthServer is a minimal OpenID Connect provider.
type fakeAuthServer struct {
	*httptest.Server
	key            *rsa.PrivateKey
	discoveryHits  atomic.Int32
	tokenRequests  atomic.Int32
	idTokenAud     string
	lastTokenForm  atomic.Value
	noRegistration bool
}

func setupFakeAuthServer(t *testing.T) *fakeAuthServer {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	f := &fakeAuthServer{key: key, idTokenAud: testClientID}
	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", f.handleDiscovery)
	mux.HandleFunc("/keys", f.handleKeys)
	mux.HandleFunc("/token", f.handleToken)
	mux.HandleFunc("/register", f.handleRegister)
	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

func (f *fakeAuthServer) handleDiscovery(w http.ResponseWriter, r *http.Request) {
	f.discoveryHits.Add(1)
	doc := map[string]any{
		"issuer":                                f.URL,
		"authorization_endpoint":                f.URL + "/authorize",
		"token_endpoint":                        f.URL + "/token",
		"jwks_uri":                              f.URL + "/keys",
		"id_token_signing_alg_values_supported": []string{"RS256"},
	}
	if !f.noRegistration {
		doc["registration_endpoint"] = f.URL + "/register"
	}
	writeJSON(w, http.StatusOK, doc)
}

func (f *fakeAuthServer) handleKeys(w http.ResponseWriter, r *http.Request) {
	pub := f.key.PublicKey
	writeJSON(w, http.StatusOK, map[string]any{
		"keys": []map[string]string{{
			"kty": "RSA",
			"kid": testKeyID,
			"alg": "RS256",
			"use": "sig",
			"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
		}},
	})
}

func (f *fakeAuthServer) handleToken(w http.ResponseWriter, r *http.Request) {
	f.tokenRequests.Add(1)
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_request"})
		return
	}
	f.lastTokenForm.Store(r.PostForm)

	switch r.PostForm.Get("grant_type") {
	case "authorization_code":
		switch r.PostForm.Get("code") {
		case "good-code":
			if r.PostForm.Get("code_verifier") == "" {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant", "error_description": "missing verifier"})
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{
				"access_token":  "A1",
				"token_type":    "Bearer",
				"expires_in":    3600,
				"refresh_token": "R1",
				"id_token":      f.signIDToken(f.idTokenAud),
				"scope":         "openid profile",
			})
		case "server-error":
			http.Error(w, "boom", http.StatusInternalServerError)
		default:
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error":             "invalid_grant",
				"error_description": "code expired",
				"error_uri":         "https://example.com/errors/invalid_grant",
			})
		}
	case "refresh_token":
		if r.PostForm.Get("refresh_token") != "R1" || r.PostForm.Get("code") != "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token": "A2",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unsupported_grant_type"})
	}
}

func (f *fakeAuthServer) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_client_metadata"})
		return
	}
	if _, ok := body["redirect_uris"].([]any); !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":             "invalid_redirect_uri",
			"error_description": "redirect_uris is required",
		})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"client_id":                "registered-client",
		"client_secret":            "registered-secret",
		"client_id_issued_at":      1700000000,
		"client_secret_expires_at": 0,
		"client_name":              body["client_name"],
	})
}

func (f *fakeAuthServer) signIDToken(audience string) string {
	now := time.Now()
	tok := jwtlib.NewWithClaims(jwtlib.SigningMethodRS256, jwtlib.MapClaims{
		"iss": f.URL,
		"sub": "user-1",
		"aud": audience,
		"iat": now.Unix(),
		"exp": now.Add(time.Hour).Unix(),
	})
	tok.Header["kid"] = testKeyID
	signed, err := tok.SignedString(f.key)
	if err != nil {
		panic(err)
	}
	return signed
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
