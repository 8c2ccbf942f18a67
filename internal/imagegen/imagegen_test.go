package imagegen

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var pngBytes = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewClient(
		WithBaseURL(srv.URL),
		WithAPIKey("test-key"),
		WithOutputDir(t.TempDir()),
		WithPublicURL("https://bot.example.com"),
		WithHTTPClient(srv.Client()),
	)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	c.nowFunc = func() time.Time { return time.UnixMilli(1700000000000) }
	return c
}

func TestGenerateDishImage(t *testing.T) {
	var gotPath, gotKey string
	var gotReq generateRequest
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		json.NewDecoder(r.Body).Decode(&gotReq)
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []any{map[string]any{
				"content": map[string]any{"parts": []any{
					map[string]any{"text": "Here is your image"},
					map[string]any{"inlineData": map[string]string{
						"mimeType": "image/png",
						"data":     base64.StdEncoding.EncodeToString(pngBytes),
					}},
				}},
			}},
		})
	}))

	url, err := c.GenerateDishImage(context.Background(), "Pollo al Horno", "Receta familiar para 4 personas")
	if err != nil {
		t.Fatalf("GenerateDishImage failed: %v", err)
	}

	if gotPath != "/models/"+DefaultModel+":generateContent" {
		t.Errorf("unexpected path %s", gotPath)
	}
	if gotKey != "test-key" {
		t.Errorf("expected API key header, got %q", gotKey)
	}
	prompt := gotReq.Contents[0].Parts[0].Text
	if !strings.Contains(prompt, "Pollo al Horno") || !strings.Contains(prompt, "white plate") {
		t.Errorf("unexpected prompt: %q", prompt)
	}

	want := "https://bot.example.com/images/1700000000000-pollo-al-horno.png"
	if url != want {
		t.Errorf("expected URL %q, got %q", want, url)
	}

	data, err := os.ReadFile(filepath.Join(c.outputDir, "1700000000000-pollo-al-horno.png"))
	if err != nil {
		t.Fatalf("expected image file on disk: %v", err)
	}
	if string(data) != string(pngBytes) {
		t.Error("image file content does not match generated bytes")
	}
}

func TestGenerateDishImageNoImageData(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []any{map[string]any{
				"content": map[string]any{"parts": []any{map[string]any{"text": "cannot help"}}},
			}},
		})
	}))

	if _, err := c.GenerateDishImage(context.Background(), "Ensalada", ""); err == nil {
		t.Fatal("expected error when response has no image data")
	}
}

func TestGenerateDishImageAPIError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"quota exceeded"}}`, http.StatusTooManyRequests)
	}))

	if _, err := c.GenerateDishImage(context.Background(), "Ensalada", ""); err == nil {
		t.Fatal("expected error on API failure")
	}
}

func TestSlugify(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Pollo al Horno", "pollo-al-horno"},
		{"Café con Leche!", "caf--con-leche"},
		{"  Arroz  ", "arroz"},
	}
	for _, tc := range cases {
		if got := slugify(tc.in); got != tc.want {
			t.Errorf("slugify(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
