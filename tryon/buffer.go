package tryon

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/png"

	"github.com/nfnt/resize"
)

// NewBuffer 创建原点在 (0,0) 的透明 buffer
func NewBuffer(width, height int) *image.NRGBA {
	return image.NewNRGBA(image.Rect(0, 0, width, height))
}

// ToNRGBA 转成原点在 (0,0) 的 NRGBA，已经满足条件时直接返回原对象
func ToNRGBA(img image.Image) *image.NRGBA {
	b := img.Bounds()
	if nrgba, ok := img.(*image.NRGBA); ok && b.Min == (image.Point{}) {
		return nrgba
	}
	dst := NewBuffer(b.Dx(), b.Dy())
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// CloneBuffer 深拷贝，结果的 Stride 紧凑
func CloneBuffer(src *image.NRGBA) *image.NRGBA {
	b := src.Bounds()
	dst := NewBuffer(b.Dx(), b.Dy())
	for y := 0; y < b.Dy(); y++ {
		srcOff := src.PixOffset(b.Min.X, b.Min.Y+y)
		copy(dst.Pix[y*dst.Stride:(y+1)*dst.Stride], src.Pix[srcOff:srcOff+b.Dx()*4])
	}
	return dst
}

func validateBuffer(img *image.NRGBA) error {
	if img == nil {
		return fmt.Errorf("%w: nil buffer", ErrProcessing)
	}
	if img.Bounds().Dx() <= 0 || img.Bounds().Dy() <= 0 {
		return fmt.Errorf("%w: zero-dimension buffer %v", ErrProcessing, img.Bounds())
	}
	return nil
}

// resizeWithinMax 最长边超过 maxSize 时等比缩小
func resizeWithinMax(img *image.NRGBA, maxSize int) *image.NRGBA {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	longest := max(w, h)
	if maxSize <= 0 || longest <= maxSize {
		return img
	}

	scale := float64(maxSize) / float64(longest)
	newW := max(1, int(float64(w)*scale))
	newH := max(1, int(float64(h)*scale))

	return ToNRGBA(resize.Resize(uint(newW), uint(newH), img, resize.Lanczos3))
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
