package cache

import "context"

// Store 缓存后端
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte) error
}

// Tiered 先查本地 L1，未命中再查共享 L2，L2 命中后回填 L1
type Tiered struct {
	L1 Store
	L2 Store
}

func (t *Tiered) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if data, ok, err := t.L1.Get(ctx, key); err == nil && ok {
		return data, true, nil
	}
	data, ok, err := t.L2.Get(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	_ = t.L1.Set(ctx, key, data)
	return data, true, nil
}

func (t *Tiered) Set(ctx context.Context, key string, data []byte) error {
	_ = t.L1.Set(ctx, key, data)
	return t.L2.Set(ctx, key, data)
}
