package tryon

import (
	"fmt"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/draw"
)

func TestFitPlacement(t *testing.T) {
	regions := []Region{
		{X: 120, Y: 155, Width: 160, Height: 245},
		{X: 10, Y: 20, Width: 7, Height: 300},
		{X: 0, Y: 0, Width: 1, Height: 1},
		{X: 5, Y: 5, Width: 999, Height: 3},
	}
	items := [][2]int{{100, 50}, {50, 100}, {1, 1000}, {1000, 1}, {37, 91}, {640, 640}}

	for _, r := range regions {
		for _, it := range items {
			t.Run(fmt.Sprintf("%dx%d in %+v", it[0], it[1], r), func(t *testing.T) {
				p, err := FitPlacement(it[0], it[1], r)
				require.NoError(t, err)

				assert.True(t, r.Contains(p), "placement %+v", p)
				assert.GreaterOrEqual(t, p.Width, 1)
				assert.GreaterOrEqual(t, p.Height, 1)
				// 等比缩放时至少有一边贴满
				assert.True(t, p.Width == r.Width || p.Height == r.Height, "placement %+v", p)
			})
		}
	}
}

func TestFitPlacement_Centered(t *testing.T) {
	p, err := FitPlacement(100, 50, Region{Width: 200, Height: 200})
	require.NoError(t, err)
	assert.Equal(t, Region{X: 0, Y: 50, Width: 200, Height: 100}, p)

	p, err = FitPlacement(100, 200, Region{X: 120, Y: 155, Width: 160, Height: 245})
	require.NoError(t, err)
	assert.Equal(t, Region{X: 138, Y: 155, Width: 123, Height: 245}, p)

	// 宽高比保持
	p, err = FitPlacement(300, 100, Region{Width: 150, Height: 150})
	require.NoError(t, err)
	assert.Equal(t, Region{X: 0, Y: 50, Width: 150, Height: 50}, p)
}

func TestFitPlacement_Errors(t *testing.T) {
	_, err := FitPlacement(0, 10, Region{Width: 10, Height: 10})
	assert.ErrorIs(t, err, ErrProcessing)

	_, err = FitPlacement(10, 10, Region{Width: 10})
	assert.ErrorIs(t, err, ErrProcessing)
}

func TestCompositor_Composite(t *testing.T) {
	c := Compositor{Opacity: 0.95, Interpolator: draw.NearestNeighbor}

	t.Run("opaque over opaque", func(t *testing.T) {
		dst := solid(10, 10, white)
		p, err := c.Composite(dst, solid(2, 2, color.NRGBA{R: 255, A: 255}), Region{Width: 10, Height: 10})
		require.NoError(t, err)
		assert.Equal(t, Region{Width: 10, Height: 10}, p)
		got := dst.NRGBAAt(5, 5)
		assert.Equal(t, uint8(255), got.R)
		assert.InDelta(t, 13, got.G, 1)
		assert.InDelta(t, 13, got.B, 1)
		assert.Equal(t, uint8(255), got.A)
	})

	t.Run("over transparent", func(t *testing.T) {
		dst := NewBuffer(4, 4)
		_, err := c.Composite(dst, solid(4, 4, color.NRGBA{R: 100, G: 150, B: 200, A: 255}), Region{Width: 4, Height: 4})
		require.NoError(t, err)
		assert.Equal(t, color.NRGBA{R: 100, G: 150, B: 200, A: 242}, dst.NRGBAAt(1, 1))
	})

	t.Run("transparent item leaves dst", func(t *testing.T) {
		dst := solid(10, 10, skin)
		before := CloneBuffer(dst)
		_, err := c.Composite(dst, NewBuffer(3, 3), Region{X: 2, Y: 2, Width: 5, Height: 5})
		require.NoError(t, err)
		assert.Equal(t, before.Pix, dst.Pix)
	})

	t.Run("outside placement untouched", func(t *testing.T) {
		dst := solid(10, 10, white)
		p, err := c.Composite(dst, solid(1, 1, color.NRGBA{A: 255}), Region{X: 0, Y: 0, Width: 10, Height: 4})
		require.NoError(t, err)
		assert.Equal(t, Region{X: 3, Y: 0, Width: 4, Height: 4}, p)
		assert.Equal(t, white, dst.NRGBAAt(2, 2))
		assert.Equal(t, white, dst.NRGBAAt(4, 5))
		assert.NotEqual(t, white, dst.NRGBAAt(4, 2))
	})

	t.Run("offset placement full opacity", func(t *testing.T) {
		dst := solid(12, 12, white)
		blue := color.NRGBA{B: 255, A: 255}
		p, err := Compositor{Opacity: 1}.Composite(dst, solid(3, 3, blue), Region{X: 6, Y: 7, Width: 3, Height: 3})
		require.NoError(t, err)
		assert.Equal(t, Region{X: 6, Y: 7, Width: 3, Height: 3}, p)
		assert.Equal(t, blue, dst.NRGBAAt(6, 7))
		assert.Equal(t, blue, dst.NRGBAAt(8, 9))
		assert.Equal(t, white, dst.NRGBAAt(5, 7))
		assert.Equal(t, white, dst.NRGBAAt(9, 9))
		assert.Equal(t, white, dst.NRGBAAt(6, 10))
	})

	t.Run("errors leave dst", func(t *testing.T) {
		dst := solid(4, 4, white)
		before := CloneBuffer(dst)

		_, err := c.Composite(dst, nil, Region{Width: 4, Height: 4})
		assert.ErrorIs(t, err, ErrProcessing)
		_, err = c.Composite(dst, NewBuffer(0, 3), Region{Width: 4, Height: 4})
		assert.ErrorIs(t, err, ErrProcessing)
		_, err = c.Composite(dst, solid(2, 2, skin), Region{Width: 4})
		assert.ErrorIs(t, err, ErrProcessing)

		assert.Equal(t, before.Pix, dst.Pix)
	})
}
