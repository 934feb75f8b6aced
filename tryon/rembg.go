package tryon

import (
	"context"
	"fmt"
	"image"
)

// Remover 把商品图转换成带透明背景的新 buffer，不修改输入
type Remover interface {
	Remove(ctx context.Context, img *image.NRGBA) (*image.NRGBA, error)
}

// Fingerprinter 由 Remover 选择实现，输出相同时标识相同，用于区分缓存
type Fingerprinter interface {
	Fingerprint() string
}

func removerFingerprint(r Remover) string {
	if f, ok := r.(Fingerprinter); ok {
		return f.Fingerprint()
	}
	return fmt.Sprintf("%T", r)
}

// WhiteStripper 把接近白色的棚拍背景变透明，RGB 不动
type WhiteStripper struct {
	t BackgroundThresholds
}

func NewWhiteStripper(t BackgroundThresholds) *WhiteStripper {
	return &WhiteStripper{t: t}
}

func (w *WhiteStripper) Fingerprint() string {
	return fmt.Sprintf("white:%d:%d:%d:%d", w.t.Hard, w.t.Soft, w.t.SoftMinAlpha, w.t.SoftAlphaDrop)
}

func (w *WhiteStripper) Remove(ctx context.Context, img *image.NRGBA) (*image.NRGBA, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateBuffer(img); err != nil {
		return nil, err
	}
	return StripBackground(img, w.t), nil
}

// StripBackground 逐像素处理 alpha，对已经处理过的图再跑一次结果不变
func StripBackground(src *image.NRGBA, t BackgroundThresholds) *image.NRGBA {
	out := CloneBuffer(src)
	for i := 0; i < len(out.Pix); i += 4 {
		r, g, b, a := out.Pix[i], out.Pix[i+1], out.Pix[i+2], out.Pix[i+3]
		switch {
		case r > t.Hard && g > t.Hard && b > t.Hard:
			out.Pix[i+3] = 0
		case r > t.Soft && g > t.Soft && b > t.Soft && a > t.SoftMinAlpha:
			out.Pix[i+3] = uint8(max(0, int(a)-int(t.SoftAlphaDrop)))
		}
	}
	return out
}
