package screen

import (
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

// inkBounds returns the smallest rectangle containing every lit pixel.
func inkBounds(img *image.Gray) image.Rectangle {
	var r image.Rectangle
	b := img.Bounds()
	for x := b.Min.X; x < b.Max.X; x++ {
		for y := b.Min.Y; y < b.Max.Y; y++ {
			if img.GrayAt(x, y).Y > 0x80 {
				r = r.Union(image.Rect(x, y, x+1, y+1))
			}
		}
	}
	return r
}

func TestFrameCentersLines(t *testing.T) {
	s, err := NewScreen(nil, DefaultOpts)
	require.NoError(t, err)

	for _, text := range []string{"12:34", "Alarm aus", "[07] : 30"} {
		img, err := s.Frame([]Line{{Text: text, Size: Small, Y: 20}})
		require.NoError(t, err)
		ink := inkBounds(img)
		require.False(t, ink.Empty(), "%q drew nothing", text)

		left, right := ink.Min.X, DefaultOpts.Width-ink.Max.X
		require.InDelta(t, left, right, 6, "%q is not centered: ink %v", text, ink)
		require.GreaterOrEqual(t, ink.Min.Y, 20, "%q starts above its y offset", text)
	}
}

func TestFrameOrdersLinesByOffset(t *testing.T) {
	s, err := NewScreen(nil, DefaultOpts)
	require.NoError(t, err)

	top, err := s.Frame([]Line{{Text: "08:15", Size: Large, Y: 0}})
	require.NoError(t, err)
	bottom, err := s.Frame([]Line{{Text: "08:15", Size: Large, Y: 30}})
	require.NoError(t, err)
	require.Less(t, inkBounds(top).Min.Y, inkBounds(bottom).Min.Y)
}

func TestFrameRejectsUnknownSize(t *testing.T) {
	s, err := NewScreen(nil, DefaultOpts)
	require.NoError(t, err)

	_, err = s.Frame([]Line{{Text: "x", Size: Size(7)}})
	require.Error(t, err)
}

func TestNewScreenRejectsBadSize(t *testing.T) {
	_, err := NewScreen(nil, Opts{Width: 0, Height: 64, SmallPoints: 12, LargePoints: 24})
	require.Error(t, err)
}

func TestRenderUpdatesPreview(t *testing.T) {
	s, err := NewScreen(nil, DefaultOpts)
	require.NoError(t, err)
	require.NoError(t, s.Render([]Line{{Text: "88:88", Size: Large, Y: 10}}))

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest("GET", "/display.png", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "image/png", rec.Header().Get("content-type"))

	img, err := png.Decode(rec.Body)
	require.NoError(t, err)
	require.Equal(t, DefaultOpts.Width*(previewScale+previewPixelBorder), img.Bounds().Dx())

	var lit bool
	b := img.Bounds()
	for x := b.Min.X; x < b.Max.X && !lit; x++ {
		for y := b.Min.Y; y < b.Max.Y; y++ {
			if r, _, _, _ := img.At(x, y).RGBA(); r > 0x8000 {
				lit = true
				break
			}
		}
	}
	require.True(t, lit, "preview should contain the rendered text")

	require.NoError(t, s.Blank())
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest("GET", "/display.png", nil))
	img, err = png.Decode(rec.Body)
	require.NoError(t, err)
	for x := b.Min.X; x < b.Max.X; x++ {
		for y := b.Min.Y; y < b.Max.Y; y++ {
			r, _, _, _ := img.At(x, y).RGBA()
			require.Zero(t, r, "blank preview has a lit pixel at (%d,%d)", x, y)
		}
	}
}
