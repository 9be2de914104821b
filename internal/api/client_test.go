package api_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kalambet/rotomdex/internal/api"
	"github.com/kalambet/rotomdex/internal/mockapi"
)

func newBackend(t *testing.T) *api.Client {
	t.Helper()
	h, err := mockapi.NewHandler()
	if err != nil {
		t.Fatalf("mockapi.NewHandler: %v", err)
	}
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return api.New(srv.URL + "/api/v1")
}

func testImage() api.Image {
	return api.Image{Data: []byte("fake image bytes"), MIMEType: "image/jpeg", Filename: "test.jpg"}
}

func TestAnalyze_Success(t *testing.T) {
	client := newBackend(t)

	result, err := client.Analyze(context.Background(), testImage(), 3)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if result.ID == "" {
		t.Error("result id missing")
	}
	if len(result.Matches) != 3 {
		t.Fatalf("matches = %d, want 3", len(result.Matches))
	}
	for i, m := range result.Matches {
		if m.Rank != i+1 {
			t.Errorf("rank[%d] = %d", i, m.Rank)
		}
		if m.Pokemon.Name == "" || len(m.Pokemon.Types) == 0 {
			t.Errorf("match %d missing required pokemon fields", i)
		}
	}
}

func TestAnalyze_TopNClampedLocally(t *testing.T) {
	client := newBackend(t)

	// 0 clamps up to 1; the backend must not reject it.
	result, err := client.Analyze(context.Background(), testImage(), 0)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(result.Matches) != 1 {
		t.Errorf("matches = %d, want clamped top_n of 1", len(result.Matches))
	}
}

func TestFetchPokemon(t *testing.T) {
	client := newBackend(t)

	p, err := client.FetchPokemon(context.Background(), 94)
	if err != nil {
		t.Fatalf("FetchPokemon: %v", err)
	}
	if p.Name != "gengar" || p.Stats == nil || p.Stats.SpecialAttack != 130 {
		t.Errorf("got %+v", p)
	}
}

func TestFetchPokemon_NotFound(t *testing.T) {
	client := newBackend(t)

	_, err := client.FetchPokemon(context.Background(), 9999)
	var reqErr *api.RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("err = %v, want *RequestError", err)
	}
	if reqErr.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", reqErr.StatusCode)
	}
	// The mock returns the message as a plain detail string.
	if reqErr.Message == "" || reqErr.Message == "404 Not Found" {
		t.Errorf("message = %q, want extracted detail string", reqErr.Message)
	}
}

func TestFetchAllPokemon(t *testing.T) {
	client := newBackend(t)

	list, err := client.FetchAllPokemon(context.Background())
	if err != nil {
		t.Fatalf("FetchAllPokemon: %v", err)
	}
	if len(list) < 5 {
		t.Errorf("list = %d entries, want the full dataset", len(list))
	}
}

func TestErrorMessagePriority(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"top-level message wins", `{"message":"top","detail":{"message":"nested"}}`, "top"},
		{"nested detail message", `{"detail":{"message":"nested"}}`, "nested"},
		{"plain detail string", `{"detail":"plain"}`, "plain"},
		{"unparsable body falls back to status", `<html>oops</html>`, "500 Internal Server Error"},
		{"empty object falls back to status", `{}`, "500 Internal Server Error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := api.New(srv.URL)
			_, err := client.FetchPokemon(context.Background(), 1)
			var reqErr *api.RequestError
			if !errors.As(err, &reqErr) {
				t.Fatalf("err = %v, want *RequestError", err)
			}
			if reqErr.Message != tt.want {
				t.Errorf("message = %q, want %q", reqErr.Message, tt.want)
			}
		})
	}
}

func TestCancellationIsDistinguishable(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(block)

	client := api.New(srv.URL)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.FetchAllPokemon(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	var reqErr *api.RequestError
	if errors.As(err, &reqErr) {
		t.Error("cancellation must not look like a request error")
	}
}

func TestValidateImage(t *testing.T) {
	tests := []struct {
		name     string
		mimeType string
		size     int
		wantErr  bool
	}{
		{"jpeg ok", "image/jpeg", 1024, false},
		{"png ok", "image/png", 1024, false},
		{"webp ok", "image/webp", 1024, false},
		{"uppercase ok", "IMAGE/JPEG", 1024, false},
		{"gif rejected", "image/gif", 1024, true},
		{"text rejected", "text/plain", 10, true},
		{"at limit ok", "image/jpeg", api.MaxUploadBytes, false},
		{"over limit rejected", "image/jpeg", api.MaxUploadBytes + 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := api.ValidateImage(tt.mimeType, tt.size)
			if tt.wantErr {
				var verr *api.ValidationError
				if !errors.As(err, &verr) {
					t.Errorf("ValidateImage = %v, want *ValidationError", err)
				}
			} else if err != nil {
				t.Errorf("ValidateImage = %v, want nil", err)
			}
		})
	}
}
