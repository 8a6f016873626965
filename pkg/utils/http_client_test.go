package utils

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestDownloadImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/typed.png":
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write([]byte("png-bytes"))
		case "/gif":
			_, _ = w.Write([]byte("GIF89a\x01\x00\x01\x00"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := NewHTTPClient(5 * time.Second)
	ctx := context.Background()

	data, mimeType, err := DownloadImage(ctx, client, srv.URL+"/typed.png")
	if err != nil {
		t.Fatalf("DownloadImage() error = %v", err)
	}
	if string(data) != "png-bytes" || mimeType != "image/png" {
		t.Errorf("DownloadImage() = %q, %q", data, mimeType)
	}

	// 服务端没给 Content-Type 时 Go 会按内容嗅探
	_, mimeType, err = DownloadImage(ctx, client, srv.URL+"/gif")
	if err != nil {
		t.Fatalf("DownloadImage() error = %v", err)
	}
	if mimeType != "image/gif" {
		t.Errorf("mimeType = %q, want image/gif", mimeType)
	}

	_, _, err = DownloadImage(ctx, client, srv.URL+"/missing")
	if err == nil || !strings.Contains(err.Error(), "404") {
		t.Errorf("404 应返回错误, got %v", err)
	}
}
