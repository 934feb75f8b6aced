package tryon

// Selection 当前选中的商品：上衣、下装、鞋各至多一件，配饰可多件
type Selection struct {
	Top         *Item
	Bottom      *Item
	Shoes       *Item
	Accessories []Item
}

// SelectedItem 带类别的选中项
type SelectedItem struct {
	Item     Item
	Category Category
}

// Toggle 再次选中同一件商品即取消；上衣/下装/鞋会替换已选的同类商品
func (s *Selection) Toggle(item Item, c Category) {
	if c == Accessory {
		for i, a := range s.Accessories {
			if a.ID == item.ID {
				s.Accessories = append(s.Accessories[:i:i], s.Accessories[i+1:]...)
				return
			}
		}
		s.Accessories = append(s.Accessories, item)
		return
	}

	slot := s.slot(c)
	if slot == nil {
		return
	}
	if *slot != nil && (*slot).ID == item.ID {
		*slot = nil
		return
	}
	it := item
	*slot = &it
}

func (s *Selection) slot(c Category) **Item {
	switch c {
	case Top:
		return &s.Top
	case Bottom:
		return &s.Bottom
	case Shoes:
		return &s.Shoes
	}
	return nil
}

// Items 按叠放顺序 Top, Bottom, Shoes, Accessory 返回，与点击顺序无关
func (s Selection) Items() []SelectedItem {
	items := make([]SelectedItem, 0, 3+len(s.Accessories))
	for _, c := range []Category{Top, Bottom, Shoes} {
		if it := *s.slot(c); it != nil {
			items = append(items, SelectedItem{Item: *it, Category: c})
		}
	}
	for _, a := range s.Accessories {
		items = append(items, SelectedItem{Item: a, Category: Accessory})
	}
	return items
}

func (s Selection) Len() int {
	return len(s.Items())
}
