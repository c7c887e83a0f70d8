package render

import (
	"log"
	"os"
	"path/filepath"

	"github.com/fogleman/gg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
)

// FontSize selects a cached face.
type FontSize int

const (
	FontSmall FontSize = iota
	FontMedium
	FontLarge
)

var fontPoints = [...]float64{FontSmall: 11, FontMedium: 18, FontLarge: 28}

// FontSet holds faces parsed once at startup. The zero value draws with
// gg's built-in bitmap face.
type FontSet struct {
	faces [len(fontPoints)]font.Face
}

// LoadFonts parses the TTF at path, or the first system font found when path
// is empty. Failures are logged and leave the built-in face in place.
func LoadFonts(path string) *FontSet {
	fs := &FontSet{}
	if path == "" {
		path = findFont()
	}
	if path == "" {
		log.Println("⚠️ No font found, using built-in face")
		return fs
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("⚠️ Failed to read font file: %v", err)
		return fs
	}
	parsed, err := opentype.Parse(data)
	if err != nil {
		log.Printf("⚠️ Failed to parse font: %v", err)
		return fs
	}

	var faces [len(fontPoints)]font.Face
	for i, pt := range fontPoints {
		face, err := opentype.NewFace(parsed, &opentype.FaceOptions{
			Size:    pt,
			DPI:     72,
			Hinting: font.HintingFull,
		})
		if err != nil {
			log.Printf("⚠️ Failed to create %.0fpt font face: %v", pt, err)
			return fs
		}
		faces[i] = face
	}
	fs.faces = faces
	log.Printf("✅ Fonts loaded from: %s", path)
	return fs
}

// Loaded reports whether TTF faces are in use.
func (fs *FontSet) Loaded() bool {
	return fs != nil && fs.faces[FontSmall] != nil
}

// Use sets the face on dc when one is loaded.
func (fs *FontSet) Use(dc *gg.Context, size FontSize) {
	if !fs.Loaded() {
		return
	}
	dc.SetFontFace(fs.faces[size])
}

func findFont() string {
	paths := []string{
		"/usr/share/fonts/truetype/dejavu/DejaVuSans-Bold.ttf",
		"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
		"/System/Library/Fonts/Supplemental/Arial.ttf",
		"C:\\Windows\\Fonts\\arial.ttf",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	matches, _ := filepath.Glob("*.ttf")
	if len(matches) > 0 {
		return matches[0]
	}
	return ""
}
