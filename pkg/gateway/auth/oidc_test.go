package auth

import (
	"strings"
	"testing"

	"golang.org/x/oauth2"
)

func idToken(t *testing.T, claims map[string]interface{}) string {
	t.Helper()
	header, err := encodeSegment(map[string]string{"alg": "RS256", "typ": "JWT"})
	if err != nil {
		t.Fatalf("failed to encode header: %v", err)
	}
	payload, err := encodeSegment(claims)
	if err != nil {
		t.Fatalf("failed to encode claims: %v", err)
	}
	return header + "." + payload + ".sig"
}

func TestIdentityFromIDToken(t *testing.T) {
	authenticator, err := NewOIDCAuthenticator("https://idp.example.org", "regdocs", "secret")
	if err != nil {
		t.Fatalf("failed to build authenticator: %v", err)
	}

	token := (&oauth2.Token{AccessToken: "opaque"}).WithExtra(map[string]interface{}{
		"id_token": idToken(t, map[string]interface{}{
			"sub":   "idp-user-42",
			"email": "dr.a@example.org",
			"name":  "Dr. A",
		}),
	})

	identity, err := authenticator.Identity(token)
	if err != nil {
		t.Fatalf("failed to read identity: %v", err)
	}
	if identity.Email != "dr.a@example.org" {
		t.Fatalf("wrong email: %q", identity.Email)
	}
	if identity.Subject != "idp-user-42" || identity.Name != "Dr. A" {
		t.Fatalf("wrong subject claims: %+v", identity)
	}
}

func TestIdentityRejectsUnusableTokens(t *testing.T) {
	authenticator, err := NewOIDCAuthenticator("https://idp.example.org", "regdocs", "secret")
	if err != nil {
		t.Fatalf("failed to build authenticator: %v", err)
	}

	cases := map[string]*oauth2.Token{
		"no id_token": {AccessToken: "opaque"},
		"not a jwt": (&oauth2.Token{}).WithExtra(map[string]interface{}{
			"id_token": "garbage",
		}),
		"missing email claim": (&oauth2.Token{}).WithExtra(map[string]interface{}{
			"id_token": idToken(t, map[string]interface{}{"sub": "idp-user-42"}),
		}),
	}
	for name, token := range cases {
		if _, err := authenticator.Identity(token); err == nil {
			t.Errorf("%s: expected an error", name)
		}
	}
}

func TestAuthCodeURLPointsAtIssuer(t *testing.T) {
	authenticator, err := NewOIDCAuthenticator("https://idp.example.org", "regdocs", "secret")
	if err != nil {
		t.Fatalf("failed to build authenticator: %v", err)
	}
	url := authenticator.AuthCodeURL("state-1")
	if !strings.HasPrefix(url, "https://idp.example.org/authorize") {
		t.Fatalf("unexpected authorize URL: %s", url)
	}
	if !strings.Contains(url, "state=state-1") {
		t.Fatalf("state not propagated: %s", url)
	}
}
