package tryon

import (
	"github.com/lucasb-eyer/go-colorful"
)

// SkinPredicate 判断一个像素是否像皮肤
type SkinPredicate func(r, g, b uint8) bool

// IsSkinTone 默认的 RGB 肤色启发式：
// 95<r<220, 40<g<200, 20<b<170 且 r>g>b。
// 只是粗略的经验规则，不保证正确，偏暗或偏冷的肤色会漏检。
func IsSkinTone(r, g, b uint8) bool {
	return DefaultSkinThresholds.Classify(r, g, b)
}

// Classify 按阈值判定
func (t SkinThresholds) Classify(r, g, b uint8) bool {
	return r > t.RMin && r < t.RMax &&
		g > t.GMin && g < t.GMax &&
		b > t.BMin && b < t.BMax &&
		r > g && r > b && g > b
}

// HSVSkinPredicate 基于 HSV 的替代判定，hue 单位为度
func HSVSkinPredicate(hueMin, hueMax, satMin, satMax, valMin float64) SkinPredicate {
	return func(r, g, b uint8) bool {
		c := colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}
		h, s, v := c.Hsv()
		return h >= hueMin && h <= hueMax &&
			s >= satMin && s <= satMax &&
			v >= valMin
	}
}
