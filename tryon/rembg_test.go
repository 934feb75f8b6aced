package tryon

import (
	"context"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripBackground(t *testing.T) {
	tests := []struct {
		name string
		in   color.NRGBA
		want color.NRGBA
	}{
		{name: "white", in: color.NRGBA{R: 255, G: 255, B: 255, A: 255}, want: color.NRGBA{R: 255, G: 255, B: 255, A: 0}},
		{name: "black", in: color.NRGBA{A: 255}, want: color.NRGBA{A: 255}},
		{name: "near white", in: color.NRGBA{R: 241, G: 250, B: 245, A: 255}, want: color.NRGBA{R: 241, G: 250, B: 245, A: 0}},
		{name: "hard threshold is exclusive", in: color.NRGBA{R: 240, G: 250, B: 250, A: 255}, want: color.NRGBA{R: 240, G: 250, B: 250, A: 155}},
		{name: "soft band", in: color.NRGBA{R: 230, G: 230, B: 230, A: 255}, want: color.NRGBA{R: 230, G: 230, B: 230, A: 155}},
		{name: "soft band low alpha", in: color.NRGBA{R: 230, G: 230, B: 230, A: 200}, want: color.NRGBA{R: 230, G: 230, B: 230, A: 200}},
		{name: "soft threshold is exclusive", in: color.NRGBA{R: 220, G: 230, B: 230, A: 255}, want: color.NRGBA{R: 220, G: 230, B: 230, A: 255}},
		{name: "colour", in: color.NRGBA{R: 30, G: 60, B: 200, A: 255}, want: color.NRGBA{R: 30, G: 60, B: 200, A: 255}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := StripBackground(solid(3, 2, tt.in), DefaultBackgroundThresholds)
			assert.Equal(t, tt.want, out.NRGBAAt(1, 1))
		})
	}
}

func TestStripBackground_Idempotent(t *testing.T) {
	src := garment(20, 20, color.NRGBA{R: 30, G: 60, B: 200, A: 255})
	src.SetNRGBA(0, 0, color.NRGBA{R: 230, G: 230, B: 230, A: 255})
	src.SetNRGBA(1, 0, color.NRGBA{R: 235, G: 225, B: 231, A: 210})

	once := StripBackground(src, DefaultBackgroundThresholds)
	twice := StripBackground(once, DefaultBackgroundThresholds)

	assert.Equal(t, once.Pix, twice.Pix)
	assert.Equal(t, src.Bounds(), once.Bounds())
	// 输入不被修改
	assert.Equal(t, uint8(255), src.NRGBAAt(5, 5).A)
	assert.Equal(t, uint8(0), once.NRGBAAt(0, 5).A)
}

func TestWhiteStripper_Remove(t *testing.T) {
	w := NewWhiteStripper(DefaultBackgroundThresholds)

	out, err := w.Remove(context.Background(), solid(4, 4, white))
	require.NoError(t, err)
	assert.Equal(t, uint8(0), out.NRGBAAt(2, 2).A)

	_, err = w.Remove(context.Background(), NewBuffer(0, 4))
	assert.ErrorIs(t, err, ErrProcessing)

	_, err = w.Remove(context.Background(), nil)
	assert.ErrorIs(t, err, ErrProcessing)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = w.Remove(ctx, solid(4, 4, white))
	assert.ErrorIs(t, err, context.Canceled)
}
