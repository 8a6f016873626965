package service

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"obra_catalog/internal/model"
	"obra_catalog/pkg/errs"
	"obra_catalog/pkg/utils"
)

type fakeImageGenerator struct {
	dataURI string
	err     error
	calls   int
}

func (f *fakeImageGenerator) GenerateImage(ctx context.Context, p model.Product) (string, error) {
	f.calls++
	return f.dataURI, f.err
}

func newTestImageService(t *testing.T, gen ImageGenerator) (*ImageService, *CatalogService) {
	t.Helper()
	catalogSvc, _ := newTestCatalogService(t)
	local, _ := newMemStorage(t)
	storage := NewStorageService(local)
	svc := NewImageService(catalogSvc, storage, gen, utils.NewHTTPClient(5*time.Second), "http://cdn.example.com/", zap.NewNop())
	return svc, catalogSvc
}

func imageServer(t *testing.T) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.png":
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write(testPNG)
		case "/page.html":
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte("<html></html>"))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestImageService_DisplayURL(t *testing.T) {
	svc, _ := newTestImageService(t, nil)

	assert.Equal(t, "http://cdn.example.com/a/b.png", svc.DisplayURL(model.Product{Image: "a/b.png"}))
	assert.Equal(t, "https://x.test/y.png", svc.DisplayURL(model.Product{Image: "https://x.test/y.png"}))
	assert.True(t, utils.IsPlaceholder(svc.DisplayURL(model.Product{Name: "Desk"})))
}

func TestImageService_ValidateImageURL(t *testing.T) {
	svc, _ := newTestImageService(t, nil)
	srv := imageServer(t)
	ctx := context.Background()

	assert.NoError(t, svc.ValidateImageURL(ctx, srv.URL+"/ok.png"))
	assert.NoError(t, svc.ValidateImageURL(ctx, "data:image/png;base64,"+base64.StdEncoding.EncodeToString(testPNG)))

	tests := []struct {
		name string
		url  string
	}{
		{"404", srv.URL + "/missing.png"},
		{"不是图片", srv.URL + "/page.html"},
		{"非法 data URI", "data:text/plain;base64,aGVsbG8="},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.ValidateImageURL(ctx, tt.url)
			assert.True(t, errors.Is(err, errs.ErrInvalidImage), "got %v", err)
		})
	}
}

func TestImageService_SetImageURL(t *testing.T) {
	svc, catalogSvc := newTestImageService(t, nil)
	srv := imageServer(t)
	ctx := context.Background()

	p, err := svc.SetImageURL(ctx, "T2", srv.URL+"/ok.png")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(p.Image, "http://localhost:8080/uploads/"), p.Image)
	assert.True(t, strings.HasSuffix(p.Image, ".png"), p.Image)

	// data URI 先写入存储，商品只保存存储地址
	dataURI := "data:image/png;base64," + base64.StdEncoding.EncodeToString(testPNG)
	p, err = svc.SetImageURL(ctx, "D1", dataURI)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(p.Image, "http://localhost:8080/uploads/"), p.Image)

	got, err := catalogSvc.GetProduct(ctx, "D1")
	require.NoError(t, err)
	assert.Equal(t, p.Image, got.Image)

	_, err = svc.SetImageURL(ctx, "missing", srv.URL+"/ok.png")
	assert.ErrorIs(t, err, errs.ErrProductNotFound)

	_, err = svc.SetImageURL(ctx, "T1", srv.URL+"/page.html")
	assert.ErrorIs(t, err, errs.ErrInvalidImage)

	_, err = svc.SetImageURL(ctx, "T1", "  ")
	assert.ErrorIs(t, err, errs.ErrInvalidImage)
}

func TestImageService_SetImageURLCopiesRemote(t *testing.T) {
	catalogSvc, _ := newTestCatalogService(t)
	local, fs := newMemStorage(t)
	svc := NewImageService(catalogSvc, NewStorageService(local), nil, utils.NewHTTPClient(5*time.Second), "", zap.NewNop())
	srv := imageServer(t)
	ctx := context.Background()

	p, err := svc.SetImageURL(ctx, "T2", srv.URL+"/ok.png?size=large")
	require.NoError(t, err)
	require.True(t, local.Owns(p.Image), p.Image)

	key := strings.TrimPrefix(p.Image, "http://localhost:8080/uploads/")
	data, err := afero.ReadFile(fs, "/data/uploads/"+key)
	require.NoError(t, err)
	assert.Equal(t, testPNG, data)

	// 换图后旧的转存文件被删除
	_, err = svc.SetImageURL(ctx, "T2", srv.URL+"/ok.png")
	require.NoError(t, err)
	exists, err := afero.Exists(fs, "/data/uploads/"+key)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRemoteExt(t *testing.T) {
	assert.Equal(t, ".png", remoteExt("https://x.test/a/b.PNG?v=1"))
	assert.Equal(t, ".webp", remoteExt("https://x.test/b.webp"))
	assert.Equal(t, ".jpg", remoteExt("https://x.test/image"))
	assert.Equal(t, ".jpg", remoteExt("https://x.test/a.php"))
}

func TestImageService_GenerateForProduct(t *testing.T) {
	gen := &fakeImageGenerator{dataURI: "data:image/png;base64," + base64.StdEncoding.EncodeToString(testPNG)}
	svc, _ := newTestImageService(t, gen)
	ctx := context.Background()

	missing, err := svc.MissingImageIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"T2", "D1"}, missing)

	p, err := svc.GenerateForProduct(ctx, "T2")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(p.Image, ".png"), p.Image)
	assert.Equal(t, 1, gen.calls)

	missing, err = svc.MissingImageIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"D1"}, missing)
}

func TestImageService_GenerateErrors(t *testing.T) {
	svc, _ := newTestImageService(t, nil)
	_, err := svc.GenerateForProduct(context.Background(), "T2")
	assert.ErrorIs(t, err, errs.ErrAIUnavailable)

	gen := &fakeImageGenerator{err: errors.New("no image in response")}
	svc, _ = newTestImageService(t, gen)
	_, err = svc.GenerateForProduct(context.Background(), "T2")
	assert.Error(t, err)

	_, err = svc.GenerateForProduct(context.Background(), "missing")
	assert.ErrorIs(t, err, errs.ErrProductNotFound)
}

func TestImageService_ReplaceRemovesStoredImage(t *testing.T) {
	catalogSvc, _ := newTestCatalogService(t)
	local, fs := newMemStorage(t)
	gen := &fakeImageGenerator{dataURI: "data:image/png;base64," + base64.StdEncoding.EncodeToString(testPNG)}
	svc := NewImageService(catalogSvc, NewStorageService(local), gen, utils.NewHTTPClient(5*time.Second), "", zap.NewNop())
	srv := imageServer(t)
	ctx := context.Background()

	first, err := svc.GenerateForProduct(ctx, "D1")
	require.NoError(t, err)
	oldPath := "/data/uploads/" + strings.TrimPrefix(first.Image, "http://localhost:8080/uploads/")
	exists, _ := afero.Exists(fs, oldPath)
	require.True(t, exists, oldPath)

	_, err = svc.SetImageURL(ctx, "D1", srv.URL+"/ok.png")
	require.NoError(t, err)

	exists, _ = afero.Exists(fs, oldPath)
	assert.False(t, exists, "被替换的生成图应删除")
}
