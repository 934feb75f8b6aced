package tryon

import (
	"fmt"
	"strings"
)

// Category 服装类别，枚举顺序即叠放顺序
type Category int

const (
	Top Category = iota
	Bottom
	Shoes
	Accessory

	categoryCount
)

var categoryNames = [categoryCount]string{"top", "bottom", "shoes", "accessory"}

// Categories 按叠放顺序返回全部类别
func Categories() []Category {
	return []Category{Top, Bottom, Shoes, Accessory}
}

func (c Category) Valid() bool {
	return c >= Top && c < categoryCount
}

func (c Category) String() string {
	if !c.Valid() {
		return fmt.Sprintf("category(%d)", int(c))
	}
	return categoryNames[c]
}

// ParseCategory 只在 HTTP/CLI 边界使用，内部一律传枚举
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "top", "tops":
		return Top, nil
	case "bottom", "bottoms":
		return Bottom, nil
	case "shoes", "shoe":
		return Shoes, nil
	case "accessory", "accessories":
		return Accessory, nil
	}
	return 0, fmt.Errorf("unknown clothing category %q", s)
}

func (c Category) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("unknown clothing category %d", int(c))
	}
	return []byte(c.String()), nil
}

func (c *Category) UnmarshalText(text []byte) error {
	parsed, err := ParseCategory(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// regionFor 类别到身体区域的映射表
//
//	Top       -> torso
//	Bottom    -> waist 顶部开始，宽度取 legs，高度 waist+legs
//	Shoes     -> feet
//	Accessory -> torso 右上象限内的子矩形（比例见 Options.Accessory）
func (s RegionSet) regionFor(c Category, accessory Band) (Region, error) {
	switch c {
	case Top:
		return s.Get(Torso), nil
	case Bottom:
		legs, waist := s.Get(Legs), s.Get(Waist)
		return Region{
			X:      legs.X,
			Y:      waist.Y,
			Width:  legs.Width,
			Height: legs.Height + waist.Height,
		}, nil
	case Shoes:
		return s.Get(Feet), nil
	case Accessory:
		torso := s.Get(Torso)
		return subRegion(torso, accessory), nil
	}
	return Region{}, fmt.Errorf("%w: unknown clothing category %d", ErrProcessing, int(c))
}
