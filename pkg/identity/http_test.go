package identity

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"

	"github.com/clinprot/regdocs/pkg/gateway/auth"
)

func TestPublicRoutesIncludeFullOIDCFlow(t *testing.T) {
	oidc, err := auth.NewOIDCAuthenticator("https://idp.example.org", "regdocs", "secret")
	if err != nil {
		t.Fatalf("failed to build authenticator: %v", err)
	}
	router := mux.NewRouter()
	NewHandler(nil, nil, oidc).RegisterPublic(router)

	for _, path := range []string{"/oidc/login", "/oidc/callback"} {
		var match mux.RouteMatch
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if !router.Match(req, &match) {
			t.Errorf("expected %s to be routed", path)
		}
	}
}

func TestPublicRoutesWithoutOIDC(t *testing.T) {
	router := mux.NewRouter()
	NewHandler(nil, nil, nil).RegisterPublic(router)

	var match mux.RouteMatch
	req := httptest.NewRequest(http.MethodGet, "/oidc/login", nil)
	if router.Match(req, &match) && match.MatchErr == nil {
		t.Error("OIDC routes must not be mounted when no provider is configured")
	}
}
