package tryon

import (
	"context"
	"fmt"
	"image"
	"io"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// State 试穿会话状态
type State int

const (
	StateEmpty State = iota
	StateBaseLoaded
	StateRegionsDetected
	StateComposited
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateBaseLoaded:
		return "base_loaded"
	case StateRegionsDetected:
		return "regions_detected"
	case StateComposited:
		return "composited"
	default:
		return "unknown"
	}
}

// transitions 允许的状态迁移
var transitions = map[State][]State{
	StateEmpty:           {StateBaseLoaded},
	StateBaseLoaded:      {StateRegionsDetected},
	StateRegionsDetected: {StateBaseLoaded, StateRegionsDetected, StateComposited},
	StateComposited:      {StateBaseLoaded, StateRegionsDetected, StateComposited},
}

// Layer 一件已叠加的商品
type Layer struct {
	Category  Category
	ItemID    string
	Buffer    *image.NRGBA // 去背景后的商品图，只读
	Placement Region
}

// ItemCache 缓存去背景后的商品图（PNG 字节）
type ItemCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte) error
}

// Session 一张用户照片对应的试穿会话。
//
// 栅格、图层列表只在持有 mu 时修改；下载、解码、去背景在锁外进行。
// 每次提交前比对 generation，开始之后被 reset 或换图的结果直接丢弃。
// 换底图只比对 loadEpoch：期间的 reset/render 不影响新照片的提交。
type Session struct {
	profile    Profile
	opts       Options
	logger     *slog.Logger
	fetcher    Fetcher
	remover    Remover
	cache      ItemCache
	compositor Compositor

	mu         sync.Mutex
	state      State
	base       *image.NRGBA
	raster     *image.NRGBA
	regions    RegionSet
	layers     []Layer
	generation uint64
	loadEpoch  uint64
}

type SessionOption func(*Session)

// WithOptions 替换整套阈值配置
func WithOptions(opts Options) SessionOption {
	return func(s *Session) { s.opts = opts }
}

func WithLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithFetcher(f Fetcher) SessionOption {
	return func(s *Session) { s.fetcher = f }
}

func WithRemover(r Remover) SessionOption {
	return func(s *Session) { s.remover = r }
}

func WithCache(c ItemCache) SessionOption {
	return func(s *Session) { s.cache = c }
}

// WithSkinPredicate 替换肤色判定
func WithSkinPredicate(p SkinPredicate) SessionOption {
	return func(s *Session) { s.opts.Skin = p }
}

// NewSession 创建空会话，画布由会话自己持有
func NewSession(profile Profile, opts ...SessionOption) *Session {
	s := &Session{
		profile: profile,
		opts:    DefaultOptions(),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		state:   StateEmpty,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.fetcher == nil {
		s.fetcher = NewHTTPFetcher(nil, 0)
	}
	if s.remover == nil {
		s.remover = NewWhiteStripper(s.opts.Background)
	}
	s.compositor = Compositor{Opacity: s.opts.Opacity, Interpolator: s.opts.Interpolator}
	s.logger = s.logger.With("profile", profile.ID)
	return s
}

func (s *Session) Profile() Profile {
	return s.profile
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// Regions 返回当前区域，未加载底图时第二个返回值为 false
func (s *Session) Regions() (RegionSet, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.regions, s.base != nil
}

// Layers 按叠放顺序返回图层副本
func (s *Session) Layers() []Layer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.layers)
}

// Snapshot 当前栅格的拷贝，未加载底图时返回 nil
func (s *Session) Snapshot() *image.NRGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.raster == nil {
		return nil
	}
	return CloneBuffer(s.raster)
}

// LoadBaseImage 任何状态下都可调用。成功后替换底图、清空图层、重新检测区域。
// 解码失败返回 ErrImageDecode，会话保持原样。
func (s *Session) LoadBaseImage(ctx context.Context, src Source) error {
	start := time.Now()
	s.mu.Lock()
	epoch := s.loadEpoch
	s.mu.Unlock()

	data, err := readSource(ctx, s.fetcher, src)
	if err != nil {
		return fmt.Errorf("%w: load base image %s: %v", ErrImageDecode, src, err)
	}
	base, err := DecodeImageWithin(data, s.opts.MaxPixels)
	if err != nil {
		return fmt.Errorf("load base image: %w", err)
	}
	base = resizeWithinMax(base, s.opts.MaxBaseSize)
	regions := EstimateRegions(base, s.opts)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadEpoch != epoch {
		return fmt.Errorf("load base image: %w", ErrStaleRender)
	}

	s.base = base
	s.raster = CloneBuffer(base)
	s.layers = nil
	s.loadEpoch++
	s.generation++
	s.transition(StateBaseLoaded)
	s.regions = regions
	s.transition(StateRegionsDetected)

	s.logger.Info("base image loaded",
		"width", base.Bounds().Dx(),
		"height", base.Bounds().Dy(),
		"body", regions.Body,
		"generation", s.generation,
		"cost", time.Since(start))
	s.logger.Debug("body regions detected", "regions", regions.Map())
	return nil
}

// ApplyClothing 下载商品图、去背景、叠加到对应区域
func (s *Session) ApplyClothing(ctx context.Context, item Item, category Category) error {
	if !category.Valid() {
		return fmt.Errorf("%w: unknown clothing category %d", ErrProcessing, int(category))
	}

	s.mu.Lock()
	if err := s.require("apply clothing", StateRegionsDetected, StateComposited); err != nil {
		s.mu.Unlock()
		return err
	}
	gen := s.generation
	s.mu.Unlock()

	buf, err := s.prepareItem(ctx, item)
	if err != nil {
		return err
	}
	return s.commitLayer(gen, item, category, buf)
}

// ResetCanvas 清空图层，只保留底图
func (s *Session) ResetCanvas() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resetLocked()
}

func (s *Session) resetLocked() error {
	if err := s.require("reset canvas", StateRegionsDetected, StateComposited); err != nil {
		return err
	}
	s.layers = nil
	s.raster = CloneBuffer(s.base)
	s.generation++
	s.transition(StateRegionsDetected)
	return nil
}

// ExportOutfit 导出当前栅格的 PNG，只读
func (s *Session) ExportOutfit() ([]byte, error) {
	s.mu.Lock()
	if err := s.require("export outfit", StateComposited); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	snapshot := CloneBuffer(s.raster)
	s.mu.Unlock()

	data, err := encodePNG(snapshot)
	if err != nil {
		return nil, fmt.Errorf("encode outfit: %w", err)
	}
	return data, nil
}

// Render 选择变化后的重绘：reset，再按 Top, Bottom, Shoes, Accessory 顺序叠加全部选中项。
// 商品图并发准备，提交严格按顺序。期间若有新的 Render/reset，本次结果作废。
func (s *Session) Render(ctx context.Context, sel Selection) error {
	s.mu.Lock()
	if err := s.resetLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	gen := s.generation
	s.mu.Unlock()

	items := sel.Items()
	bufs := make([]*image.NRGBA, len(items))

	g, gctx := errgroup.WithContext(ctx)
	for i, it := range items {
		i, it := i, it
		g.Go(func() error {
			buf, err := s.prepareItem(gctx, it.Item)
			if err != nil {
				return err
			}
			bufs[i] = buf
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, it := range items {
		if err := s.commitLayer(gen, it.Item, it.Category, bufs[i]); err != nil {
			return err
		}
	}
	s.logger.Info("outfit rendered", "items", len(items), "generation", gen)
	return nil
}

// prepareItem 取商品图并去背景，优先读缓存
func (s *Session) prepareItem(ctx context.Context, item Item) (*image.NRGBA, error) {
	key := item.Image.key(removerFingerprint(s.remover))
	if s.cache != nil {
		data, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			s.logger.Warn("failed to get cached item", "item", item.ID, "error", err)
		} else if ok {
			if buf, err := DecodeImageWithin(data, s.opts.MaxPixels); err == nil {
				s.logger.Debug("item cache hit", "item", item.ID)
				return buf, nil
			}
		}
	}

	data, err := readSource(ctx, s.fetcher, item.Image)
	if err != nil {
		return nil, fmt.Errorf("%w: load item %q: %v", ErrImageDecode, item.ID, err)
	}
	img, err := DecodeImageWithin(data, s.opts.MaxPixels)
	if err != nil {
		return nil, fmt.Errorf("item %q: %w", item.ID, err)
	}
	out, err := s.remover.Remove(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("remove background of item %q: %w", item.ID, err)
	}

	if s.cache != nil {
		if encoded, err := encodePNG(out); err != nil {
			s.logger.Warn("failed to encode item for cache", "item", item.ID, "error", err)
		} else if err := s.cache.Set(ctx, key, encoded); err != nil {
			s.logger.Warn("failed to set cached item", "item", item.ID, "error", err)
		}
	}
	return out, nil
}

// commitLayer 在锁内把准备好的商品图合成到栅格。
// 新图层的类别排在已有图层之前时，按类别顺序从底图整体重画，保证叠放顺序与调用顺序无关。
func (s *Session) commitLayer(gen uint64, item Item, category Category, buf *image.NRGBA) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.generation != gen {
		s.logger.Debug("discard stale layer", "item", item.ID, "generation", gen, "current", s.generation)
		return fmt.Errorf("apply %s: %w", category, ErrStaleRender)
	}
	if err := s.require("apply clothing", StateRegionsDetected, StateComposited); err != nil {
		return err
	}

	region, err := s.regions.regionFor(category, s.opts.Accessory)
	if err != nil {
		return err
	}
	if err := validateBuffer(buf); err != nil {
		return err
	}
	placement, err := FitPlacement(buf.Bounds().Dx(), buf.Bounds().Dy(), region)
	if err != nil {
		return fmt.Errorf("apply %s: %w", category, err)
	}
	layer := Layer{Category: category, ItemID: item.ID, Buffer: buf, Placement: placement}

	idx := sort.Search(len(s.layers), func(i int) bool { return s.layers[i].Category > category })
	if idx == len(s.layers) {
		s.compositor.Draw(s.raster, buf, placement)
		s.layers = append(s.layers, layer)
	} else {
		layers := slices.Insert(slices.Clone(s.layers), idx, layer)
		raster := CloneBuffer(s.base)
		for _, l := range layers {
			s.compositor.Draw(raster, l.Buffer, l.Placement)
		}
		s.layers, s.raster = layers, raster
	}
	s.transition(StateComposited)

	s.logger.Info("clothing applied",
		"category", category.String(),
		"item", item.ID,
		"title", item.Title,
		"placement", placement)
	return nil
}

// require 调用方必须持有 mu
func (s *Session) require(op string, allowed ...State) error {
	if slices.Contains(allowed, s.state) {
		return nil
	}
	return &StateError{Op: op, State: s.state}
}

// transition 调用方必须持有 mu，且已经用 require 检查过
func (s *Session) transition(next State) {
	if !slices.Contains(transitions[s.state], next) {
		s.logger.Error("unexpected state transition", "from", s.state.String(), "to", next.String())
	}
	s.logger.Debug("state transition", "from", s.state.String(), "to", next.String())
	s.state = next
}
