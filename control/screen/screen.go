// Package screen draws text frames to the clock's monochrome OLED, and retains them for
// debugging the rest of the program without the display attached.
package screen

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"log"
	"net/http"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/devices/v3/ssd1306"
)

const (
	previewScale       = 4 // Size of one pixel in the rendered image.
	previewPixelBorder = 1 // Border around right and bottom of pixel, to simulate pixel spacing.
)

// Size selects one of the two faces the clock uses.
type Size int

const (
	Small Size = iota
	Large
)

// Line is one centered line of text.  Y is the top of the text, in pixels from the top of the
// screen.
type Line struct {
	Text string
	Size Size
	Y    int
}

// Opts configures a Screen.
type Opts struct {
	Width, Height int
	SmallPoints   float64
	LargePoints   float64
}

// DefaultOpts matches a 128x64 SSD1306 module.
var DefaultOpts = Opts{Width: 128, Height: 64, SmallPoints: 12, LargePoints: 24}

// Screen represents a small SSD1306 OLED.  Every frame is a list of horizontally-centered lines;
// nothing else is ever drawn.
type Screen struct {
	dev   *ssd1306.Dev
	faces map[Size]font.Face
	rect  image.Rectangle

	imageMu sync.Mutex
	image   *image.Gray // must hold imageMu to read or write.
}

// NewScreen returns an initialized Screen object.  A nil bus produces a screen that only keeps
// the preview image.
func NewScreen(bus i2c.Bus, o Opts) (*Screen, error) {
	if o.Width <= 0 || o.Height <= 0 {
		return nil, fmt.Errorf("invalid screen size %dx%d", o.Width, o.Height)
	}
	f, err := opentype.Parse(gomonobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	s := &Screen{
		faces: make(map[Size]font.Face),
		rect:  image.Rect(0, 0, o.Width, o.Height),
		image: image.NewGray(image.Rect(0, 0, o.Width*(previewScale+previewPixelBorder), o.Height*(previewScale+previewPixelBorder))),
	}
	for size, points := range map[Size]float64{Small: o.SmallPoints, Large: o.LargePoints} {
		face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: points, DPI: 72, Hinting: font.HintingFull})
		if err != nil {
			return nil, fmt.Errorf("create %vpt face: %w", points, err)
		}
		s.faces[size] = face
	}
	if bus == nil {
		return s, nil
	}
	opts := ssd1306.DefaultOpts
	opts.W, opts.H = o.Width, o.Height
	dev, err := ssd1306.NewI2C(bus, &opts)
	if err != nil {
		return nil, fmt.Errorf("init ssd1306: %w", err)
	}
	s.dev = dev
	return s, nil
}

// EmptyCanvas returns an image that's the right size for the display.
func (s *Screen) EmptyCanvas() *image.Gray {
	img := image.NewGray(s.rect)
	draw.Draw(img, img.Bounds(), image.Black, image.Point{}, draw.Src)
	return img
}

// Frame draws lines onto a fresh canvas without displaying it.
func (s *Screen) Frame(lines []Line) (*image.Gray, error) {
	img := s.EmptyCanvas()
	for _, l := range lines {
		face, ok := s.faces[l.Size]
		if !ok {
			return nil, fmt.Errorf("line %q: unknown size %d", l.Text, l.Size)
		}
		width := font.MeasureString(face, l.Text).Ceil()
		drawer := &font.Drawer{
			Dst:  img,
			Src:  image.White,
			Face: face,
			Dot:  fixed.P((s.rect.Dx()-width)/2, l.Y+face.Metrics().Ascent.Ceil()),
		}
		drawer.DrawString(l.Text)
	}
	return img, nil
}

// Render clears the previous frame and displays lines, each centered horizontally.
func (s *Screen) Render(lines []Line) error {
	img, err := s.Frame(lines)
	if err != nil {
		return fmt.Errorf("draw frame: %w", err)
	}
	return s.Display(img)
}

// Blank blanks the screen.
func (s *Screen) Blank() error {
	if err := s.Display(s.EmptyCanvas()); err != nil {
		return fmt.Errorf("blank display: %w", err)
	}
	return nil
}

// Halt blanks the panel and turns it off.
func (s *Screen) Halt() error {
	s.updateCurrentImage(s.EmptyCanvas())
	if s.dev == nil {
		return nil
	}
	if err := s.dev.Halt(); err != nil {
		return fmt.Errorf("halt ssd1306: %w", err)
	}
	return nil
}

// ServeHTTP serves the current image as a PNG.
func (s *Screen) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	w.Header().Add("content-type", "image/png")
	w.WriteHeader(http.StatusOK)
	s.imageMu.Lock()
	defer s.imageMu.Unlock()
	if err := png.Encode(w, s.image); err != nil {
		log.Printf("encoding image: %v", err)
	}
}

// updateCurrentImage updates the image data that will be returned via the web interface.
func (s *Screen) updateCurrentImage(img image.Image) {
	s.imageMu.Lock()
	defer s.imageMu.Unlock()
	scale := previewPixelBorder + previewScale
	for x := 0; x < s.rect.Dx(); x++ {
		for y := 0; y < s.rect.Dy(); y++ {
			c := color.GrayModel.Convert(img.At(x, y))
			for destX := scale * x; destX < scale*(x+1); destX++ {
				for destY := scale * y; destY < scale*(y+1); destY++ {
					if destX < scale*(x+1)-previewPixelBorder && destY < scale*(y+1)-previewPixelBorder {
						s.image.Set(destX, destY, c)
					}
				}
			}
		}
	}
}

// Display displays the provided image on the screen.
func (s *Screen) Display(img image.Image) error {
	s.updateCurrentImage(img)
	if s.dev == nil {
		return nil
	}
	if err := s.dev.Draw(s.rect, img, image.Point{}); err != nil {
		return fmt.Errorf("write to ssd1306: %w", err)
	}
	return nil
}
