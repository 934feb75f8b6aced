package tryon

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"golang.org/x/image/draw"
)

// Band 以身体包围盒宽高为基准的比例矩形
type Band struct {
	Top    float64 `mapstructure:"top"`
	Height float64 `mapstructure:"height"`
	Left   float64 `mapstructure:"left"`
	Width  float64 `mapstructure:"width"`
}

// SkinThresholds 肤色判定阈值，上下界都是开区间
type SkinThresholds struct {
	RMin, RMax uint8
	GMin, GMax uint8
	BMin, BMax uint8
}

// BackgroundThresholds 白底去除阈值
//
//	r,g,b > Hard                          -> alpha = 0
//	r,g,b > Soft 且 alpha > SoftMinAlpha   -> alpha -= SoftAlphaDrop（不低于 0）
type BackgroundThresholds struct {
	Hard          uint8
	Soft          uint8
	SoftMinAlpha  uint8
	SoftAlphaDrop uint8
}

// Options 合成引擎的全部魔数。零值不可用，从 DefaultOptions 开始改。
type Options struct {
	// Skin 为 nil 时使用 SkinThresholds.Classify
	Skin           SkinPredicate
	SkinThresholds SkinThresholds
	// MinSkinAlpha 像素 alpha 必须大于该值才参与肤色统计
	MinSkinAlpha uint8

	// Bands 身体五段的比例表，纵向必须首尾相接覆盖 [0,1]
	Bands [regionCount]Band
	// Accessory 配饰区域相对 torso 的比例
	Accessory Band

	Background BackgroundThresholds

	// Opacity 叠加时乘到商品 alpha 上的系数
	Opacity float64
	// Interpolator 商品图缩放算法
	Interpolator draw.Interpolator
	// MaxBaseSize 用户照片最长边上限，0 表示不限制
	MaxBaseSize int
	// MaxPixels 解码前按图片头拒绝超过该像素数的输入，0 表示不限制
	MaxPixels int
}

var DefaultSkinThresholds = SkinThresholds{
	RMin: 95, RMax: 220,
	GMin: 40, GMax: 200,
	BMin: 20, BMax: 170,
}

var DefaultBackgroundThresholds = BackgroundThresholds{
	Hard:          240,
	Soft:          220,
	SoftMinAlpha:  200,
	SoftAlphaDrop: 100,
}

// DefaultBands 头 15% / 躯干 35% / 腰 5% / 腿 30% / 脚 15%
var DefaultBands = [regionCount]Band{
	Head:  {Top: 0, Height: 0.15, Left: 0, Width: 1},
	Torso: {Top: 0.15, Height: 0.35, Left: 0.10, Width: 0.80},
	Waist: {Top: 0.50, Height: 0.05, Left: 0.05, Width: 0.90},
	Legs:  {Top: 0.55, Height: 0.30, Left: 0.10, Width: 0.80},
	Feet:  {Top: 0.85, Height: 0.15, Left: 0.15, Width: 0.70},
}

// DefaultAccessoryBand torso 右上象限
var DefaultAccessoryBand = Band{Top: 0, Height: 0.25, Left: 0.65, Width: 0.30}

func DefaultOptions() Options {
	return Options{
		SkinThresholds: DefaultSkinThresholds,
		MinSkinAlpha:   200,
		Bands:          DefaultBands,
		Accessory:      DefaultAccessoryBand,
		Background:     DefaultBackgroundThresholds,
		Opacity:        0.95,
		Interpolator:   draw.CatmullRom,
		MaxBaseSize:    2048,
		MaxPixels:      40_000_000,
	}
}

const fracEpsilon = 1e-9

// Validate 检查比例表是否自洽
func (o Options) Validate() error {
	if o.Opacity <= 0 || o.Opacity > 1 {
		return fmt.Errorf("opacity must be in (0, 1], got %v", o.Opacity)
	}
	if o.Interpolator == nil {
		return errors.New("interpolator is nil")
	}
	if o.MaxBaseSize < 0 {
		return fmt.Errorf("max base size must not be negative, got %d", o.MaxBaseSize)
	}
	if o.MaxPixels < 0 {
		return fmt.Errorf("max pixels must not be negative, got %d", o.MaxPixels)
	}

	next := 0.0
	for name := Head; name < regionCount; name++ {
		b := o.Bands[name]
		if math.Abs(b.Top-next) > fracEpsilon {
			return fmt.Errorf("band %s starts at %v, want %v", name, b.Top, next)
		}
		if b.Height <= 0 || b.Width <= 0 || b.Left < 0 || b.Left+b.Width > 1+fracEpsilon {
			return fmt.Errorf("band %s out of range: %+v", name, b)
		}
		next = b.Top + b.Height
	}
	if math.Abs(next-1) > fracEpsilon {
		return fmt.Errorf("bands end at %v, want 1", next)
	}

	a := o.Accessory
	if a.Width <= 0 || a.Height <= 0 || a.Left < 0 || a.Top < 0 ||
		a.Left+a.Width > 1+fracEpsilon || a.Top+a.Height > 1+fracEpsilon {
		return fmt.Errorf("accessory band out of range: %+v", a)
	}
	return nil
}

func (o Options) skinPredicate() SkinPredicate {
	if o.Skin != nil {
		return o.Skin
	}
	return o.SkinThresholds.Classify
}

// InterpolatorByName 配置文件里的缩放算法名
func InterpolatorByName(name string) (draw.Interpolator, error) {
	switch strings.ToLower(name) {
	case "", "catmullrom":
		return draw.CatmullRom, nil
	case "bilinear":
		return draw.BiLinear, nil
	case "approxbilinear":
		return draw.ApproxBiLinear, nil
	case "nearest", "nearestneighbor":
		return draw.NearestNeighbor, nil
	}
	return nil, fmt.Errorf("unknown interpolator %q", name)
}
