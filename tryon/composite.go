package tryon

import (
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
)

// Compositor 把商品图等比缩放后居中叠加到目标区域
type Compositor struct {
	Opacity      float64
	Interpolator draw.Interpolator
}

// FitPlacement 计算等比缩放并居中后的放置矩形，结果一定落在 region 内
func FitPlacement(itemW, itemH int, region Region) (Region, error) {
	if itemW <= 0 || itemH <= 0 {
		return Region{}, fmt.Errorf("%w: zero-dimension item %dx%d", ErrProcessing, itemW, itemH)
	}
	if region.Empty() {
		return Region{}, fmt.Errorf("%w: empty target region %+v", ErrProcessing, region)
	}

	scale := math.Min(float64(region.Width)/float64(itemW), float64(region.Height)/float64(itemH))
	sw := min(region.Width, max(1, int(math.Round(float64(itemW)*scale))))
	sh := min(region.Height, max(1, int(math.Round(float64(itemH)*scale))))

	return Region{
		X:      region.X + (region.Width-sw)/2,
		Y:      region.Y + (region.Height-sh)/2,
		Width:  sw,
		Height: sh,
	}, nil
}

// Composite 计算放置位置并叠加到 dst，返回放置矩形。出错时 dst 不变。
func (c Compositor) Composite(dst, item *image.NRGBA, region Region) (Region, error) {
	if err := validateBuffer(item); err != nil {
		return Region{}, err
	}
	placement, err := FitPlacement(item.Bounds().Dx(), item.Bounds().Dy(), region)
	if err != nil {
		return Region{}, err
	}
	c.Draw(dst, item, placement)
	return placement, nil
}

// Draw 把 item 缩放到 placement 大小后以 source-over 叠加，商品 alpha 乘以 Opacity
func (c Compositor) Draw(dst, item *image.NRGBA, placement Region) {
	scaled := NewBuffer(placement.Width, placement.Height)
	c.interpolator().Scale(scaled, scaled.Bounds(), item, item.Bounds(), draw.Src, nil)

	// 只在 placement 范围内做 Overlay，再把结果写回 dst
	area, ok := dst.SubImage(placement.Rect()).(*image.NRGBA)
	if !ok || area.Bounds().Empty() {
		return
	}
	at := image.Pt(placement.X, placement.Y)
	blended := imaging.Overlay(area, scaled, at, c.Opacity)
	pasteRows(dst, area.Bounds().Min, blended)
}

func (c Compositor) interpolator() draw.Interpolator {
	if c.Interpolator == nil {
		return draw.CatmullRom
	}
	return c.Interpolator
}

// pasteRows 按行把 src 原样写入 dst 的 at 处，不做混合
func pasteRows(dst *image.NRGBA, at image.Point, src *image.NRGBA) {
	b := src.Bounds()
	for y := 0; y < b.Dy(); y++ {
		si := src.PixOffset(b.Min.X, b.Min.Y+y)
		di := dst.PixOffset(at.X, at.Y+y)
		copy(dst.Pix[di:di+b.Dx()*4], src.Pix[si:si+b.Dx()*4])
	}
}
