package tryon

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

var (
	white = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	skin  = color.NRGBA{R: 200, G: 150, B: 120, A: 255}
)

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := NewBuffer(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func pngBytes(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func dataURL(t *testing.T, img image.Image) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes(t, img))
}

// bodyPhoto 400x800 白底，皮肤像素只在 (100,50) 和 (300,750)
func bodyPhoto() *image.NRGBA {
	img := solid(400, 800, white)
	img.SetNRGBA(100, 50, skin)
	img.SetNRGBA(300, 750, skin)
	return img
}

// garment 白底中间一块纯色
func garment(w, h int, c color.NRGBA) *image.NRGBA {
	img := solid(w, h, white)
	for y := h / 4; y < h-h/4; y++ {
		for x := w / 4; x < w-w/4; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

type mapFetcher struct {
	data  map[string][]byte
	calls atomic.Int32
}

func (f *mapFetcher) Fetch(_ context.Context, rawURL string) ([]byte, error) {
	f.calls.Add(1)
	data, ok := f.data[rawURL]
	if !ok {
		return nil, fmt.Errorf("%s: not found", rawURL)
	}
	return data, nil
}

// gateFetcher 收到请求后阻塞，直到 release 被关闭
type gateFetcher struct {
	data    []byte
	started chan struct{}
	release chan struct{}
}

func newGateFetcher(data []byte) *gateFetcher {
	return &gateFetcher{data: data, started: make(chan struct{}, 1), release: make(chan struct{})}
}

func (f *gateFetcher) Fetch(ctx context.Context, _ string) ([]byte, error) {
	f.started <- struct{}{}
	select {
	case <-f.release:
		return f.data, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type mapCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMapCache() *mapCache {
	return &mapCache{data: make(map[string][]byte)}
}

func (c *mapCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.data[key]
	return data, ok, nil
}

func (c *mapCache) Set(_ context.Context, key string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = data
	return nil
}

func (c *mapCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}
