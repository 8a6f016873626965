package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/spf13/afero"

	"obra_catalog/pkg/config"
	"obra_catalog/pkg/errs"
	"obra_catalog/pkg/utils"
)

// ==================== 接口定义 ====================

// StorageProvider 图片存储提供者
type StorageProvider interface {
	// Upload 上传文件，返回公开访问URL
	Upload(ctx context.Context, data []byte, filename string, contentType string) (url string, err error)

	// UploadFromURL 从URL下载并上传
	UploadFromURL(ctx context.Context, sourceURL string, filename string) (url string, err error)

	// Delete 删除文件
	Delete(ctx context.Context, url string) error

	// Owns 地址是否指向本存储
	Owns(url string) bool
}

// ==================== 工厂方法 ====================

func NewStorageProvider(cfg config.StorageConfig, httpClient *resty.Client) (StorageProvider, error) {
	switch cfg.Provider {
	case "s3":
		return NewS3Storage(cfg, httpClient)
	case "cos":
		return NewCOSStorage(cfg, httpClient)
	case "local":
		return NewLocalStorage(cfg, afero.NewOsFs(), httpClient), nil
	default:
		return nil, fmt.Errorf("不支持的存储提供者: %s", cfg.Provider)
	}
}

// ==================== StorageService ====================

// StorageService 存储服务，包装 StorageProvider
type StorageService struct {
	provider StorageProvider
}

// NewStorageService 创建存储服务
func NewStorageService(provider StorageProvider) *StorageService {
	return &StorageService{provider: provider}
}

// Upload 上传文件
func (s *StorageService) Upload(ctx context.Context, data []byte, filename string, contentType string) (string, error) {
	return s.provider.Upload(ctx, data, filename, contentType)
}

// UploadFromURL 从URL下载并上传
func (s *StorageService) UploadFromURL(ctx context.Context, sourceURL string, filename string) (string, error) {
	return s.provider.UploadFromURL(ctx, sourceURL, filename)
}

// Delete 删除文件
func (s *StorageService) Delete(ctx context.Context, url string) error {
	return s.provider.Delete(ctx, url)
}

// Owns 地址是否已在存储中
func (s *StorageService) Owns(url string) bool {
	return s.provider.Owns(url)
}

// SaveDataURI 保存 data URI 图片 (AI 生成的图片)，返回存储后的地址
func (s *StorageService) SaveDataURI(ctx context.Context, dataURI string, prefix string) (string, error) {
	data, mimeType, err := DecodeDataURI(dataURI)
	if err != nil {
		return "", err
	}

	filename := fmt.Sprintf("%s_%s%s", prefix, uuid.New().String()[:8], extByMime(mimeType))
	return s.provider.Upload(ctx, data, filename, mimeType)
}

// ==================== S3 / COS 实现 ====================
// COS 兼容 S3 协议，两者只在端点和公开地址上不同

type objectStorage struct {
	client    *s3.Client
	http      *resty.Client
	name      string
	bucket    string
	host      string // 无 CDN 时的公开域名
	cdnDomain string
	basePath  string
}

func NewS3Storage(cfg config.StorageConfig, httpClient *resty.Client) (StorageProvider, error) {
	awsCfg, err := loadAWSConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("加载AWS配置失败: %v", err)
	}

	return &objectStorage{
		client:    s3.NewFromConfig(awsCfg),
		http:      httpClient,
		name:      "S3",
		bucket:    cfg.Bucket,
		host:      fmt.Sprintf("%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region),
		cdnDomain: cfg.CDNDomain,
		basePath:  cfg.BasePath,
	}, nil
}

func NewCOSStorage(cfg config.StorageConfig, httpClient *resty.Client) (StorageProvider, error) {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://cos.%s.myqcloud.com", cfg.Region)
	}

	awsCfg, err := loadAWSConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("加载COS配置失败: %v", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	return &objectStorage{
		client:    client,
		http:      httpClient,
		name:      "COS",
		bucket:    cfg.Bucket,
		host:      fmt.Sprintf("%s.cos.%s.myqcloud.com", cfg.Bucket, cfg.Region),
		cdnDomain: cfg.CDNDomain,
		basePath:  cfg.BasePath,
	}, nil
}

func loadAWSConfig(cfg config.StorageConfig) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
	)
}

func (s *objectStorage) Upload(ctx context.Context, data []byte, filename string, contentType string) (string, error) {
	key := generateKey(s.basePath, filename)

	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("上传%s失败: %v", s.name, err)
	}

	return s.publicURL(key), nil
}

func (s *objectStorage) UploadFromURL(ctx context.Context, sourceURL string, filename string) (string, error) {
	data, contentType, err := utils.DownloadImage(ctx, s.http, sourceURL)
	if err != nil {
		return "", err
	}
	return s.Upload(ctx, data, filename, contentType)
}

func (s *objectStorage) Delete(ctx context.Context, url string) error {
	key := s.extractKey(url)
	if key == "" {
		return fmt.Errorf("无法解析文件路径")
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return err
}

func (s *objectStorage) Owns(url string) bool {
	return s.extractKey(url) != ""
}

func (s *objectStorage) publicURL(key string) string {
	if s.cdnDomain != "" {
		return fmt.Sprintf("https://%s/%s", s.cdnDomain, key)
	}
	return fmt.Sprintf("https://%s/%s", s.host, key)
}

func (s *objectStorage) extractKey(url string) string {
	for _, host := range []string{s.cdnDomain, s.host} {
		if host == "" {
			continue
		}
		prefix := fmt.Sprintf("https://%s/", host)
		if strings.HasPrefix(url, prefix) {
			return strings.TrimPrefix(url, prefix)
		}
	}
	return ""
}

// ==================== 本地存储 ====================

// LocalStorage 写入本地目录，由 gin 静态路由对外提供
type LocalStorage struct {
	fs       afero.Fs
	http     *resty.Client
	basePath string
	baseURL  string
}

func NewLocalStorage(cfg config.StorageConfig, fs afero.Fs, httpClient *resty.Client) *LocalStorage {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "./uploads"
	}
	baseURL := strings.TrimSuffix(cfg.Endpoint, "/")
	if baseURL == "" {
		baseURL = "http://localhost:8080/uploads"
	}

	return &LocalStorage{
		fs:       fs,
		http:     httpClient,
		basePath: basePath,
		baseURL:  baseURL,
	}
}

func (s *LocalStorage) Upload(ctx context.Context, data []byte, filename string, contentType string) (string, error) {
	key := generateKey("", filename)
	fullPath := filepath.Join(s.basePath, filepath.FromSlash(key))

	if err := s.fs.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("创建目录失败: %v", err)
	}
	if err := afero.WriteFile(s.fs, fullPath, data, 0o644); err != nil {
		return "", fmt.Errorf("写入文件失败: %v", err)
	}

	return s.baseURL + "/" + key, nil
}

func (s *LocalStorage) UploadFromURL(ctx context.Context, sourceURL string, filename string) (string, error) {
	data, contentType, err := utils.DownloadImage(ctx, s.http, sourceURL)
	if err != nil {
		return "", err
	}
	return s.Upload(ctx, data, filename, contentType)
}

func (s *LocalStorage) Delete(ctx context.Context, url string) error {
	if !strings.HasPrefix(url, s.baseURL+"/") {
		return fmt.Errorf("无法解析文件路径")
	}
	key := strings.TrimPrefix(url, s.baseURL+"/")
	if strings.Contains(key, "..") {
		return fmt.Errorf("非法文件路径: %s", key)
	}
	return s.fs.Remove(filepath.Join(s.basePath, filepath.FromSlash(key)))
}

func (s *LocalStorage) Owns(url string) bool {
	return strings.HasPrefix(url, s.baseURL+"/")
}

// ==================== 工具函数 ====================

// generateKey 日期目录 + uuid 文件名
func generateKey(basePath, filename string) string {
	ext := filepath.Ext(filename)
	if ext == "" {
		ext = ".jpg"
	}
	newFilename := uuid.New().String() + ext

	datePath := time.Now().Format("2006/01/02")
	if basePath != "" {
		return path.Join(basePath, datePath, newFilename)
	}
	return path.Join(datePath, newFilename)
}

// DecodeDataURI 解析 data:image/png;base64,xxxx
// 只接受图片类型；没有前缀时按裸 base64 处理并嗅探类型
func DecodeDataURI(dataURI string) ([]byte, string, error) {
	mimeType := ""
	payload := dataURI

	if strings.HasPrefix(dataURI, "data:") {
		idx := strings.Index(dataURI, ",")
		if idx == -1 {
			return nil, "", fmt.Errorf("%w: data URI 格式错误", errs.ErrInvalidImage)
		}
		meta := dataURI[len("data:"):idx]
		if !strings.HasSuffix(meta, ";base64") {
			return nil, "", fmt.Errorf("%w: 只支持 base64 编码", errs.ErrInvalidImage)
		}
		mimeType = strings.TrimSuffix(meta, ";base64")
		payload = dataURI[idx+1:]
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("%w: Base64 解码失败: %v", errs.ErrInvalidImage, err)
	}
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, "", fmt.Errorf("%w: 不是图片 (%s)", errs.ErrInvalidImage, mimeType)
	}
	return data, mimeType, nil
}

func extByMime(mimeType string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".jpg"
	}
}
