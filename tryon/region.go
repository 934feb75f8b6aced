package tryon

import (
	"fmt"
	"image"
	"math"
)

// RegionName 身体区域名
type RegionName int

const (
	Head RegionName = iota
	Torso
	Waist
	Legs
	Feet

	regionCount
)

var regionNames = [regionCount]string{"head", "torso", "waist", "legs", "feet"}

// RegionNames 自上而下的区域名
func RegionNames() []RegionName {
	return []RegionName{Head, Torso, Waist, Legs, Feet}
}

func (n RegionName) String() string {
	if n < Head || n >= regionCount {
		return fmt.Sprintf("region(%d)", int(n))
	}
	return regionNames[n]
}

// Region 像素坐标下的矩形
type Region struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

func RegionFromRect(r image.Rectangle) Region {
	return Region{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}

func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

func (r Region) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Contains 判断 o 是否完全落在 r 内
func (r Region) Contains(o Region) bool {
	return o.X >= r.X && o.Y >= r.Y &&
		o.X+o.Width <= r.X+r.Width &&
		o.Y+o.Height <= r.Y+r.Height
}

// RegionSet 一次底图加载得到的全部区域，值类型，创建后不再修改
type RegionSet struct {
	// Body 身体包围盒（没检测到皮肤时为整张图）
	Body    Region
	regions [regionCount]Region
}

func (s RegionSet) Get(name RegionName) Region {
	if name < Head || name >= regionCount {
		return Region{}
	}
	return s.regions[name]
}

// Map 便于序列化
func (s RegionSet) Map() map[string]Region {
	m := make(map[string]Region, regionCount)
	for name := Head; name < regionCount; name++ {
		m[name.String()] = s.regions[name]
	}
	return m
}

// EstimateRegions 肤色包围盒 + 比例切分
func EstimateRegions(img *image.NRGBA, opts Options) RegionSet {
	body, ok := SkinBounds(img, opts.skinPredicate(), opts.MinSkinAlpha)
	if !ok {
		// 没有皮肤像素或包围盒退化时用整张图，避免零面积区域
		body = image.Rect(0, 0, img.Bounds().Dx(), img.Bounds().Dy())
	}
	return Partition(body, opts.Bands)
}

// SkinBounds 统计 alpha > minAlpha 且被判为皮肤的像素，返回包围盒
// 返回的 Max 是最后一个皮肤像素的坐标（不加 1），因此 Dx() == maxX-minX。
// 包围盒宽或高为 0 时第二个返回值为 false。
func SkinBounds(img *image.NRGBA, skin SkinPredicate, minAlpha uint8) (image.Rectangle, bool) {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()

	minX, minY := w, h
	maxX, maxY := -1, -1

	for y := 0; y < h; y++ {
		row := img.PixOffset(img.Bounds().Min.X, img.Bounds().Min.Y+y)
		for x := 0; x < w; x++ {
			p := img.Pix[row+x*4 : row+x*4+4 : row+x*4+4]
			if p[3] <= minAlpha || !skin(p[0], p[1], p[2]) {
				continue
			}
			minX = min(minX, x)
			maxX = max(maxX, x)
			minY = min(minY, y)
			maxY = max(maxY, y)
		}
	}

	if maxX < 0 || maxX == minX || maxY == minY {
		return image.Rectangle{}, false
	}
	return image.Rect(minX, minY, maxX, maxY), true
}

// Partition 按比例表把包围盒切成五段。
// 每条边都由 min + round(比例 × 边长) 得到，相邻两段共享同一条边，所以纵向没有缝隙。
func Partition(body image.Rectangle, bands [regionCount]Band) RegionSet {
	w, h := body.Dx(), body.Dy()
	set := RegionSet{Body: RegionFromRect(body)}

	for name := Head; name < regionCount; name++ {
		b := bands[name]
		x0 := edge(body.Min.X, w, b.Left)
		x1 := edge(body.Min.X, w, b.Left+b.Width)
		y0 := edge(body.Min.Y, h, b.Top)
		y1 := edge(body.Min.Y, h, b.Top+b.Height)
		set.regions[name] = Region{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
	}
	return set
}

// subRegion 在 parent 内按比例取子矩形
func subRegion(parent Region, b Band) Region {
	x0 := edge(parent.X, parent.Width, b.Left)
	x1 := edge(parent.X, parent.Width, b.Left+b.Width)
	y0 := edge(parent.Y, parent.Height, b.Top)
	y1 := edge(parent.Y, parent.Height, b.Top+b.Height)
	return Region{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

func edge(origin, extent int, frac float64) int {
	// 0.15+0.35 这类累加会有 1e-17 级误差，先规整再乘，保证与下一段的起点一致
	frac = math.Round(frac*1e9) / 1e9
	return origin + int(math.Round(frac*float64(extent)))
}
