// Package fonts provides the font faces used by the raster renderer.
//
// The Go font family is embedded in golang.org/x/image, so labels render
// identically on every host without system font lookup. Parsed fonts are
// shared; faces are not safe for concurrent use, so each renderer owns a
// [Cache].
package fonts

import (
	"fmt"
	"math"
	"sync"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

// Family is the CSS font-family used by the SVG export.
const Family = "Go, sans-serif"

// Parsed fonts (computed once on first access).
var (
	regular, bold *truetype.Font
	parseErr      error
	parseOnce     sync.Once
)

func load() error {
	parseOnce.Do(func() {
		if regular, parseErr = truetype.Parse(goregular.TTF); parseErr != nil {
			parseErr = fmt.Errorf("parse go regular: %w", parseErr)
			return
		}
		if bold, parseErr = truetype.Parse(gobold.TTF); parseErr != nil {
			parseErr = fmt.Errorf("parse go bold: %w", parseErr)
		}
	})
	return parseErr
}

type faceKey struct {
	halfPoints int
	bold       bool
}

// Cache hands out faces per size and weight. A Cache must not be used
// from multiple goroutines.
type Cache struct {
	faces map[faceKey]font.Face
}

// NewCache returns an empty face cache.
func NewCache() *Cache {
	return &Cache{faces: make(map[faceKey]font.Face)}
}

// Face returns a face of the given pixel size (at 72 DPI), rounded to the
// nearest half pixel. Sizes below 1 are raised to 1.
func (c *Cache) Face(size float64, isBold bool) (font.Face, error) {
	if err := load(); err != nil {
		return nil, err
	}
	key := faceKey{halfPoints: max(int(math.Round(size*2)), 2), bold: isBold}
	if f, ok := c.faces[key]; ok {
		return f, nil
	}
	ttf := regular
	if isBold {
		ttf = bold
	}
	f := truetype.NewFace(ttf, &truetype.Options{
		Size:    float64(key.halfPoints) / 2,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	c.faces[key] = f
	return f, nil
}
