package tryon

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"net/url"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	nhttp "github.com/chaos-io/tryon/util/http"
)

// Source 图片来源：URL（http/https/data）或内存中的原始字节，Data 优先
type Source struct {
	URL  string
	Data []byte
}

func FromURL(u string) Source {
	return Source{URL: u}
}

func FromBytes(data []byte) Source {
	return Source{Data: data}
}

func (s Source) Empty() bool {
	return len(s.Data) == 0 && s.URL == ""
}

func (s Source) String() string {
	if len(s.Data) > 0 {
		return fmt.Sprintf("bytes(%d)", len(s.Data))
	}
	if strings.HasPrefix(s.URL, "data:") {
		return "data-url"
	}
	return s.URL
}

// key 缓存键：salt（去背景方式）加上 URL 或字节内容的 md5
func (s Source) key(salt string) string {
	h := md5.New()
	h.Write([]byte(salt))
	h.Write([]byte{0})
	if len(s.Data) > 0 {
		h.Write(s.Data)
	} else {
		h.Write([]byte(s.URL))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Item 目录服务提供的商品，引擎只关心 Image 和 Category
type Item struct {
	ID       string
	Title    string
	Price    float64
	Image    Source
	Category Category
}

// Profile 用户资料，对引擎不透明，只用于日志
type Profile struct {
	ID   string
	Name string
}

// Fetcher 按 URL 拉取原始字节
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
}

// HTTPFetcher 通过 util/http 客户端下载图片
type HTTPFetcher struct {
	cli      nhttp.IClient
	maxBytes int64
}

func NewHTTPFetcher(cli nhttp.IClient, maxBytes int64) *HTTPFetcher {
	if cli == nil {
		cli = nhttp.NewHTTPClient()
	}
	return &HTTPFetcher{cli: cli, maxBytes: maxBytes}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}

	var body []byte
	req := &nhttp.RequestParam{
		RequestURI:   rawURL,
		Method:       http.MethodGet,
		Response:     &body,
		MaxBodyBytes: f.maxBytes,
	}
	if err := f.cli.DoHTTPRequest(ctx, req); err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	return body, nil
}

// readSource 取出原始字节。data URL 直接本地解码，不走网络。
func readSource(ctx context.Context, f Fetcher, src Source) ([]byte, error) {
	if len(src.Data) > 0 {
		return src.Data, nil
	}
	if src.URL == "" {
		return nil, errors.New("empty image source")
	}
	if strings.HasPrefix(src.URL, "data:") {
		return decodeDataURL(src.URL)
	}
	if f == nil {
		return nil, errors.New("no fetcher configured")
	}
	return f.Fetch(ctx, src.URL)
}

// decodeDataURL 只支持 base64 形式：data:image/png;base64,....
func decodeDataURL(u string) ([]byte, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(u, "data:"), ",")
	if !ok {
		return nil, errors.New("malformed data url")
	}
	if !strings.HasSuffix(meta, ";base64") {
		return nil, fmt.Errorf("unsupported data url encoding %q", meta)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decode data url: %w", err)
	}
	return data, nil
}

// DecodeImage 解码并按 EXIF 方向摆正，统一成原点在 (0,0) 的 NRGBA
func DecodeImage(data []byte) (*image.NRGBA, error) {
	return DecodeImageWithin(data, 0)
}

// DecodeImageWithin 同 DecodeImage，但先读图片头，宽高乘积超过 maxPixels 时不做完整解码。
// maxPixels <= 0 表示不限制。
func DecodeImageWithin(data []byte, maxPixels int) (*image.NRGBA, error) {
	if maxPixels > 0 {
		cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrImageDecode, err)
		}
		if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > int64(maxPixels) {
			return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrImageDecode, cfg.Width, cfg.Height, maxPixels)
		}
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageDecode, err)
	}
	buf := ToNRGBA(img)
	if err := validateBuffer(buf); err != nil {
		return nil, err
	}
	return buf, nil
}
