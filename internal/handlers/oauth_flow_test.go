package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/oauth2"
)

func TestOAuthProvidersSortedAndConfiguredOnly(t *testing.T) {
	configured := func(label string) OAuthProvider {
		return OAuthProvider{
			Label:  label,
			Config: &oauth2.Config{ClientID: "id", ClientSecret: "secret"},
		}
	}
	providers := map[string]OAuthProvider{
		"google":    configured("Google"),
		"facebook":  configured("Facebook"),
		"apple":     {Label: "Apple", Config: &oauth2.Config{}},
		"bitbucket": configured("Bitbucket"),
	}
	handler := NewAuthHandler(nil, nil, providers, "")

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/auth/providers?invitationToken=abc", nil)
		rec := httptest.NewRecorder()
		handler.OAuthProviders(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		var views []oauthProviderView
		if err := json.NewDecoder(rec.Body).Decode(&views); err != nil {
			t.Fatalf("decode: %v", err)
		}

		want := []string{"bitbucket", "facebook", "google"}
		if len(views) != len(want) {
			t.Fatalf("got %d providers, want %d", len(views), len(want))
		}
		for j, name := range want {
			if views[j].Name != name {
				t.Errorf("providers[%d] = %q, want %q", j, views[j].Name, name)
			}
		}
		if views[0].URL != "/api/auth/bitbucket/start?invitationToken=abc" {
			t.Errorf("URL = %q, want invitation token carried", views[0].URL)
		}
	}
}
