package utils

import (
	"fmt"
	"net/url"
	"strings"
)

const placeholderHost = "placehold.co"

// ResolveImageURL 把商品里保存的图片路径解析为可访问的地址
// 绝对地址和 data URI 原样返回，相对路径拼接 baseURL
func ResolveImageURL(imagePath, baseURL string) string {
	if imagePath == "" {
		return ""
	}

	if strings.HasPrefix(imagePath, "http://") ||
		strings.HasPrefix(imagePath, "https://") ||
		strings.HasPrefix(imagePath, "data:") {
		return imagePath
	}

	if strings.HasPrefix(imagePath, "/") {
		return baseURL + imagePath
	}

	sep := "/"
	if strings.HasSuffix(baseURL, "/") {
		sep = ""
	}
	return baseURL + sep + imagePath
}

// PlaceholderURL 生成纯文字占位图地址
func PlaceholderURL(name string) string {
	return fmt.Sprintf("https://%s/400x400/f8fafc/64748b?text=%s", placeholderHost, url.QueryEscape(name))
}

// IsPlaceholder 判断图片是否还是占位图 (需要补图)
func IsPlaceholder(imageURL string) bool {
	return imageURL == "" || strings.Contains(imageURL, placeholderHost)
}

// PreviewURL 基础目录缺图时使用的即时生成预览图
// seed 由 id 的字符码累加得到，同一商品每次拿到同一张图
func PreviewURL(id, category, name string) string {
	seed := 0
	for _, r := range id {
		seed += int(r)
	}
	prompt := fmt.Sprintf("professional product photography of %s, %s, white background, soft studio lighting, modern furniture design, high resolution, 4k, minimalistic", name, category)
	return fmt.Sprintf("https://image.pollinations.ai/prompt/%s?width=800&height=800&nologo=true&seed=%d",
		url.PathEscape(prompt), seed)
}
