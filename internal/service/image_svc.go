package service

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"obra_catalog/internal/model"
	"obra_catalog/pkg/errs"
	"obra_catalog/pkg/utils"
)

// ImageGenerator 商品图生成，返回 data URI
type ImageGenerator interface {
	GenerateImage(ctx context.Context, p model.Product) (string, error)
}

// ImageService 商品图片：地址解析、校验、设置和 AI 生成
type ImageService struct {
	catalog   *CatalogService
	storage   *StorageService
	generator ImageGenerator
	http      *resty.Client
	baseURL   string
	logger    *zap.Logger
}

// NewImageService 创建图片服务
func NewImageService(catalogSvc *CatalogService, storage *StorageService, generator ImageGenerator, httpClient *resty.Client, baseURL string, logger *zap.Logger) *ImageService {
	return &ImageService{
		catalog:   catalogSvc,
		storage:   storage,
		generator: generator,
		http:      httpClient,
		baseURL:   baseURL,
		logger:    logger,
	}
}

// ResolveImageURL 图片路径 → 可访问地址
func (s *ImageService) ResolveImageURL(imagePath string) string {
	return utils.ResolveImageURL(imagePath, s.baseURL)
}

// DisplayURL 商品展示用的图片地址，没有图片时返回占位图
func (s *ImageService) DisplayURL(p model.Product) string {
	if p.Image == "" {
		return utils.PlaceholderURL(p.Name)
	}
	return s.ResolveImageURL(p.Image)
}

// ValidateImageURL 请求图片地址，必须返回 200 且是图片
func (s *ImageService) ValidateImageURL(ctx context.Context, imageURL string) error {
	if strings.HasPrefix(imageURL, "data:") {
		_, _, err := DecodeDataURI(imageURL)
		return err
	}

	resolved := s.ResolveImageURL(imageURL)
	if !strings.HasPrefix(resolved, "http://") && !strings.HasPrefix(resolved, "https://") {
		return fmt.Errorf("%w: 不是有效的地址: %s", errs.ErrInvalidImage, imageURL)
	}

	resp, err := s.http.R().SetContext(ctx).SetDoNotParseResponse(true).Get(resolved)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrInvalidImage, err)
	}
	body := resp.RawBody()
	if body != nil {
		defer body.Close()
	}

	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("%w: HTTP %d", errs.ErrInvalidImage, resp.StatusCode())
	}
	if ct := resp.Header().Get("Content-Type"); !strings.HasPrefix(ct, "image/") {
		return fmt.Errorf("%w: Content-Type %q", errs.ErrInvalidImage, ct)
	}
	return nil
}

// SetImageURL 校验后保存商品图片
// data URI 和外部 http(s) 图片先落到存储，商品里只保存存储地址
func (s *ImageService) SetImageURL(ctx context.Context, id, imageURL string) (model.Product, error) {
	imageURL = strings.TrimSpace(imageURL)
	if imageURL == "" {
		return model.Product{}, fmt.Errorf("%w: 图片地址为空", errs.ErrInvalidImage)
	}
	old, err := s.catalog.GetProduct(ctx, id)
	if err != nil {
		return model.Product{}, err
	}

	if err := s.ValidateImageURL(ctx, imageURL); err != nil {
		return model.Product{}, err
	}

	if strings.HasPrefix(imageURL, "data:") {
		stored, err := s.storage.SaveDataURI(ctx, imageURL, id)
		if err != nil {
			return model.Product{}, err
		}
		imageURL = stored
	} else if isRemoteURL(imageURL) && !s.storage.Owns(imageURL) {
		stored, err := s.storage.UploadFromURL(ctx, imageURL, id+remoteExt(imageURL))
		if err != nil {
			return model.Product{}, fmt.Errorf("%w: 图片转存失败: %v", errs.ErrInvalidImage, err)
		}
		s.logger.Info("外部图片已转存", zap.String("product_id", id), zap.String("source", imageURL), zap.String("url", stored))
		imageURL = stored
	}

	updated, err := s.catalog.UpdateProductImage(ctx, id, imageURL)
	if err != nil {
		return model.Product{}, err
	}
	s.releaseImage(ctx, old.Image, imageURL)
	return updated, nil
}

// GenerateForProduct AI 生成商品图 → 存储 → 写回商品
func (s *ImageService) GenerateForProduct(ctx context.Context, id string) (model.Product, error) {
	if s.generator == nil {
		return model.Product{}, errs.ErrAIUnavailable
	}

	p, err := s.catalog.GetProduct(ctx, id)
	if err != nil {
		return model.Product{}, err
	}

	dataURI, err := s.generator.GenerateImage(ctx, p)
	if err != nil {
		return model.Product{}, err
	}

	stored, err := s.storage.SaveDataURI(ctx, dataURI, id)
	if err != nil {
		return model.Product{}, err
	}

	s.logger.Info("商品图已生成", zap.String("product_id", id), zap.String("url", stored))
	updated, err := s.catalog.UpdateProductImage(ctx, id, stored)
	if err != nil {
		return model.Product{}, err
	}
	s.releaseImage(ctx, p.Image, stored)
	return updated, nil
}

// releaseImage 删除被替换掉的旧图
// 只有自己存储里的文件能删掉，外部地址删除失败直接忽略
func (s *ImageService) releaseImage(ctx context.Context, oldURL, newURL string) {
	if oldURL == "" || oldURL == newURL || strings.HasPrefix(oldURL, "data:") {
		return
	}
	if err := s.storage.Delete(ctx, oldURL); err != nil {
		s.logger.Debug("旧图未删除", zap.String("url", oldURL), zap.Error(err))
	}
}

// MissingImageIDs 图片为空或仍是占位图的商品
func (s *ImageService) MissingImageIDs(ctx context.Context) ([]string, error) {
	products, err := s.catalog.ListProducts(ctx)
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, p := range products {
		if utils.IsPlaceholder(p.Image) {
			ids = append(ids, p.ID)
		}
	}
	return ids, nil
}

func isRemoteURL(u string) bool {
	return strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://")
}

// remoteExt 取地址里的图片扩展名，识别不了时用 .jpg
func remoteExt(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ".jpg"
	}
	switch ext := strings.ToLower(path.Ext(u.Path)); ext {
	case ".png", ".jpg", ".jpeg", ".webp", ".gif":
		return ext
	default:
		return ".jpg"
	}
}
