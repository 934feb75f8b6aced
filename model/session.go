package model

import "github.com/chaos-io/tryon/tryon"

// SessionView 会话状态
type SessionView struct {
	ID         string                  `json:"id"`
	State      string                  `json:"state"`
	Generation uint64                  `json:"generation"`
	Width      int                     `json:"width"`
	Height     int                     `json:"height"`
	Body       *tryon.Region           `json:"body,omitempty"`
	Regions    map[string]tryon.Region `json:"regions,omitempty"`
	Layers     []LayerView             `json:"layers"`
}

// LayerView 已叠加的图层
type LayerView struct {
	Category  string       `json:"category"`
	ItemID    string       `json:"item_id"`
	Placement tryon.Region `json:"placement"`
}

// CreateSessionRequest JSON 方式创建会话
type CreateSessionRequest struct {
	ProfileID   string `json:"profile_id"`
	ProfileName string `json:"profile_name"`
	ImageURL    string `json:"image_url"`
}

// BaseImageRequest JSON 方式替换底图
type BaseImageRequest struct {
	ImageURL string `json:"image_url" binding:"required"`
}

// ItemRequest 商品，image 为 http(s) 或 data URL
type ItemRequest struct {
	ID       string  `json:"id" binding:"required"`
	Title    string  `json:"title"`
	Price    float64 `json:"price"`
	Image    string  `json:"image" binding:"required"`
	Category string  `json:"category"`
}

// SelectionRequest 完整的选择，服务端按固定顺序重绘
type SelectionRequest struct {
	Top         *ItemRequest  `json:"top"`
	Bottom      *ItemRequest  `json:"bottom"`
	Shoes       *ItemRequest  `json:"shoes"`
	Accessories []ItemRequest `json:"accessories"`
}

// Response 通用成功响应
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorResponse 错误响应
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// ToItem 转成引擎的商品，category 非法时返回错误
func (r ItemRequest) ToItem() (tryon.Item, error) {
	c, err := tryon.ParseCategory(r.Category)
	if err != nil {
		return tryon.Item{}, err
	}
	return tryon.Item{
		ID:       r.ID,
		Title:    r.Title,
		Price:    r.Price,
		Image:    tryon.FromURL(r.Image),
		Category: c,
	}, nil
}

// ToSelection 槽位决定类别，请求里的 category 可以省略
func (r SelectionRequest) ToSelection() tryon.Selection {
	var sel tryon.Selection
	slot := func(req *ItemRequest, c tryon.Category) *tryon.Item {
		if req == nil {
			return nil
		}
		return &tryon.Item{ID: req.ID, Title: req.Title, Price: req.Price, Image: tryon.FromURL(req.Image), Category: c}
	}
	sel.Top = slot(r.Top, tryon.Top)
	sel.Bottom = slot(r.Bottom, tryon.Bottom)
	sel.Shoes = slot(r.Shoes, tryon.Shoes)
	for _, a := range r.Accessories {
		sel.Accessories = append(sel.Accessories, *slot(&a, tryon.Accessory))
	}
	return sel
}

// NewSessionView 从会话生成快照视图
func NewSessionView(id string, s *tryon.Session) SessionView {
	view := SessionView{
		ID:         id,
		State:      s.State().String(),
		Generation: s.Generation(),
		Layers:     []LayerView{},
	}
	if regions, ok := s.Regions(); ok {
		body := regions.Body
		view.Body = &body
		view.Regions = regions.Map()
	}
	if snap := s.Snapshot(); snap != nil {
		view.Width, view.Height = snap.Bounds().Dx(), snap.Bounds().Dy()
	}
	for _, l := range s.Layers() {
		view.Layers = append(view.Layers, LayerView{
			Category:  l.Category.String(),
			ItemID:    l.ItemID,
			Placement: l.Placement,
		})
	}
	return view
}
