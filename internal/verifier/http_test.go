package verifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func verifyServer(t *testing.T, verified map[string]bool, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/verify" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		var in struct {
			SecretHash string `json:"secret_hash"`
		}
		_ = json.NewDecoder(r.Body).Decode(&in)
		_ = json.NewEncoder(w).Encode(map[string]bool{"verified": verified[in.SecretHash]})
	}))
}

func TestVerify_Verified(t *testing.T) {
	srv := verifyServer(t, map[string]bool{"h1": true}, http.StatusOK)
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "key", time.Second)
	if got := c.Verify(context.Background(), "h1"); got != StatusVerified {
		t.Fatalf("Verify = %v, want StatusVerified", got)
	}
}

func TestVerify_Denied(t *testing.T) {
	srv := verifyServer(t, map[string]bool{}, http.StatusOK)
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "", time.Second)
	if got := c.Verify(context.Background(), "unknown"); got != StatusDenied {
		t.Fatalf("Verify = %v, want StatusDenied", got)
	}
}

func TestVerify_Non200IsUnavailable(t *testing.T) {
	srv := verifyServer(t, nil, http.StatusInternalServerError)
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "", time.Second)
	if got := c.Verify(context.Background(), "h1"); got != StatusUnavailable {
		t.Fatalf("Verify = %v, want StatusUnavailable", got)
	}
}

func TestVerify_UnreachableIsUnavailable(t *testing.T) {
	c := NewHTTPClient("http://127.0.0.1:1", "", 200*time.Millisecond)
	if got := c.Verify(context.Background(), "h1"); got != StatusUnavailable {
		t.Fatalf("Verify = %v, want StatusUnavailable", got)
	}
}

func TestDisabled(t *testing.T) {
	if got := (Disabled{}).Verify(context.Background(), "h1"); got != StatusUnavailable {
		t.Fatalf("Disabled.Verify = %v, want StatusUnavailable", got)
	}
}
