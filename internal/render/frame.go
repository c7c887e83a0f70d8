// Package render draws game snapshots with gg. Everything here reads an
// immutable GameSnapshot and never touches the simulation.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"
	"math"
	"sync"

	"river-strike/internal/game"

	"github.com/fogleman/gg"
)

// Palette
var (
	colorBank      = color.RGBA{46, 112, 52, 255}
	colorWater     = color.RGBA{40, 96, 188, 255}
	colorShore     = color.RGBA{200, 190, 130, 255}
	colorIsland    = color.RGBA{186, 164, 104, 255}
	colorBridge    = color.RGBA{120, 84, 52, 255}
	colorRuins     = color.RGBA{90, 90, 90, 200}
	colorPlayer    = color.RGBA{240, 240, 250, 255}
	colorShield    = color.RGBA{0, 212, 255, 160}
	colorBulletP   = color.RGBA{255, 236, 120, 255}
	colorBulletE   = color.RGBA{255, 80, 60, 255}
	colorHUDPanel  = color.RGBA{18, 18, 24, 200}
	colorHUDText   = color.RGBA{255, 255, 255, 255}
	colorHUDAccent = color.RGBA{0, 212, 255, 255}
	colorFuelLow   = color.RGBA{255, 60, 60, 255}
)

var enemyColors = map[string]color.RGBA{
	"boat":     {150, 150, 160, 255},
	"heli":     {80, 170, 90, 255},
	"warship":  {70, 70, 90, 255},
	"kamikaze": {230, 120, 30, 255},
	"boss":     {160, 30, 60, 255},
}

var pickupStyles = map[string]struct {
	fill  color.RGBA
	label string
}{
	"fuel":   {color.RGBA{230, 60, 60, 255}, "F"},
	"shield": {color.RGBA{0, 180, 230, 255}, "S"},
	"double": {color.RGBA{240, 200, 40, 255}, "D"},
	"bomb":   {color.RGBA{40, 40, 40, 255}, "B"},
}

// phaseTint darkens the frame by time of day.
var phaseTint = map[string]color.RGBA{
	"dusk":  {80, 30, 0, 40},
	"night": {0, 0, 30, 110},
	"dawn":  {60, 40, 60, 30},
}

// Config sizes the output image.
type Config struct {
	// Scale converts world units to pixels.
	Scale    float64
	FontPath string
}

// DefaultConfig renders at one pixel per world unit.
func DefaultConfig() Config {
	return Config{Scale: 1}
}

// Renderer draws snapshots. A single Renderer is safe for concurrent use;
// calls are serialized because gg.Context is not.
type Renderer struct {
	mu    sync.Mutex
	scale float64
	fonts *FontSet

	dc     *gg.Context
	width  int
	height int
}

// NewRenderer creates a renderer. Fonts are loaded once here; missing fonts
// fall back to gg's built-in face.
func NewRenderer(cfg Config) *Renderer {
	if cfg.Scale <= 0 {
		cfg.Scale = 1
	}
	return &Renderer{
		scale: cfg.Scale,
		fonts: LoadFonts(cfg.FontPath),
	}
}

// EncodePNG renders snap and writes it as PNG.
func (r *Renderer) EncodePNG(w io.Writer, snap *game.GameSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.draw(snap); err != nil {
		return err
	}
	if err := r.dc.EncodePNG(w); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// Render returns a private copy of the rendered frame.
func (r *Renderer) Render(snap *game.GameSnapshot) (image.Image, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.draw(snap); err != nil {
		return nil, err
	}
	src := r.dc.Image()
	out := image.NewRGBA(src.Bounds())
	draw.Draw(out, out.Bounds(), src, src.Bounds().Min, draw.Src)
	return out, nil
}

// draw renders into r.dc, reallocating it when the viewport changes size.
// Caller holds mu.
func (r *Renderer) draw(snap *game.GameSnapshot) error {
	if snap == nil {
		return fmt.Errorf("render: nil snapshot")
	}
	w := int(math.Ceil(snap.FieldWidth * r.scale))
	h := int(math.Ceil(snap.ViewDepth * r.scale))
	if w <= 0 || h <= 0 {
		return fmt.Errorf("render: empty viewport %dx%d", w, h)
	}
	if r.dc == nil || w != r.width || h != r.height {
		r.dc = gg.NewContext(w, h)
		r.width, r.height = w, h
	}

	dc := r.dc
	v := view{scroll: snap.Scroll, scale: r.scale, height: float64(h)}

	dc.SetColor(colorBank)
	dc.DrawRectangle(0, 0, float64(w), float64(h))
	dc.Fill()

	r.drawRiver(dc, v, snap.River)
	r.drawObstacles(dc, v, snap.Obstacles)
	r.drawPickups(dc, v, snap.Pickups)
	r.drawEnemies(dc, v, snap.Enemies)
	r.drawBullets(dc, v, snap.PlayerBullets, colorBulletP)
	r.drawBullets(dc, v, snap.EnemyBullets, colorBulletE)
	r.drawParticles(dc, v, snap.Particles)
	if snap.State != "idle" {
		r.drawPlayer(dc, v, snap)
	}

	if tint, ok := phaseTint[snap.Phase]; ok {
		dc.SetColor(tint)
		dc.DrawRectangle(0, 0, float64(w), float64(h))
		dc.Fill()
	}

	r.drawHUD(dc, snap)
	return nil
}

// view maps world coordinates to pixels. Upstream is up on screen.
type view struct {
	scroll float64
	scale  float64
	height float64
}

func (v view) x(wx float64) float64 { return wx * v.scale }
func (v view) y(wy float64) float64 { return v.height - (wy-v.scroll)*v.scale }
func (v view) r(wr float64) float64 { return wr * v.scale }

func (r *Renderer) drawRiver(dc *gg.Context, v view, river []game.RiverSample) {
	if len(river) < 2 {
		return
	}

	// Water polygon: up the left bank, back down the right bank.
	for i, s := range river {
		x := v.x(s.Center - s.Width/2)
		if i == 0 {
			dc.MoveTo(x, v.y(s.Y))
		} else {
			dc.LineTo(x, v.y(s.Y))
		}
	}
	for i := len(river) - 1; i >= 0; i-- {
		s := river[i]
		dc.LineTo(v.x(s.Center+s.Width/2), v.y(s.Y))
	}
	dc.ClosePath()
	dc.SetColor(colorWater)
	dc.Fill()

	dc.SetColor(colorShore)
	dc.SetLineWidth(math.Max(1, 2*v.scale))
	for _, side := range []float64{-0.5, 0.5} {
		for i, s := range river {
			x := v.x(s.Center + side*s.Width)
			if i == 0 {
				dc.MoveTo(x, v.y(s.Y))
			} else {
				dc.LineTo(x, v.y(s.Y))
			}
		}
		dc.Stroke()
	}
}

func (r *Renderer) drawObstacles(dc *gg.Context, v view, obstacles []game.ObstacleSnapshot) {
	for _, o := range obstacles {
		switch o.Kind {
		case "bridge":
			dc.SetColor(colorBridge)
			// Deck spans [Y, Y+Deck] in world space.
			dc.DrawRectangle(v.x(o.Left), v.y(o.Y+o.Deck), v.r(o.Right-o.Left), v.r(o.Deck))
			dc.Fill()
		default:
			if o.Ruins {
				dc.SetColor(colorRuins)
			} else {
				dc.SetColor(colorIsland)
			}
			dc.DrawCircle(v.x(o.X), v.y(o.Y), v.r(o.Radius))
			dc.Fill()
		}
	}
}

func (r *Renderer) drawPickups(dc *gg.Context, v view, pickups []game.PickupSnapshot) {
	r.fonts.Use(dc, FontSmall)
	for _, p := range pickups {
		style, ok := pickupStyles[p.Kind]
		if !ok {
			continue
		}
		x, y := v.x(p.X), v.y(p.Y)
		dc.SetColor(style.fill)
		dc.DrawCircle(x, y, v.r(p.Radius))
		dc.Fill()
		dc.SetColor(colorHUDText)
		dc.DrawStringAnchored(style.label, x, y, 0.5, 0.5)
	}
}

func (r *Renderer) drawEnemies(dc *gg.Context, v view, enemies []game.EnemySnapshot) {
	for _, e := range enemies {
		c, ok := enemyColors[e.Kind]
		if !ok {
			c = colorHUDText
		}
		x, y, rad := v.x(e.X), v.y(e.Y), v.r(e.Radius)

		dc.SetColor(c)
		switch e.Kind {
		case "heli":
			dc.DrawCircle(x, y, rad)
			dc.Fill()
			dc.SetColor(color.RGBA{30, 30, 30, 200})
			dc.SetLineWidth(2)
			dc.DrawLine(x-rad*1.3, y, x+rad*1.3, y)
			dc.Stroke()
		case "kamikaze":
			dc.DrawRegularPolygon(3, x, y, rad, math.Pi)
			dc.Fill()
		case "boss":
			dc.DrawRoundedRectangle(x-rad, y-rad*0.6, rad*2, rad*1.2, rad*0.2)
			dc.Fill()
			// Boss HP bar
			frac := 1.0
			if e.MaxHP > 0 {
				frac = math.Min(1, float64(e.HP)/float64(e.MaxHP))
			}
			dc.SetColor(color.RGBA{0, 0, 0, 160})
			dc.DrawRectangle(x-rad, y-rad-8, rad*2, 4)
			dc.Fill()
			dc.SetColor(colorFuelLow)
			dc.DrawRectangle(x-rad, y-rad-8, rad*2*frac, 4)
			dc.Fill()
		default:
			dc.DrawEllipse(x, y, rad*0.6, rad)
			dc.Fill()
		}
	}
}

func (r *Renderer) drawBullets(dc *gg.Context, v view, bullets []game.BulletSnapshot, c color.RGBA) {
	dc.SetColor(c)
	for _, b := range bullets {
		dc.DrawCircle(v.x(b.X), v.y(b.Y), math.Max(1, v.r(b.Radius)))
		dc.Fill()
	}
}

func (r *Renderer) drawParticles(dc *gg.Context, v view, particles []game.ParticleSnapshot) {
	for _, p := range particles {
		size := 1.5
		c := color.RGBA{255, 170, 60, 0}
		if p.Large {
			size = 3
			c = color.RGBA{255, 110, 40, 0}
		}
		c.A = uint8(math.Max(0, math.Min(1, p.Alpha)) * 255)
		dc.SetColor(c)
		dc.DrawCircle(v.x(p.X), v.y(p.Y), v.r(size))
		dc.Fill()
	}
}

func (r *Renderer) drawPlayer(dc *gg.Context, v view, snap *game.GameSnapshot) {
	p := snap.Player
	// Blink while invulnerable
	if p.Invulnerable && int(snap.Elapsed*10)%2 == 1 {
		return
	}
	x, y, rad := v.x(p.X), v.y(p.Y), v.r(p.Radius)

	dc.SetColor(colorPlayer)
	dc.MoveTo(x, y-rad*1.4)
	dc.LineTo(x+rad, y+rad)
	dc.LineTo(x, y+rad*0.5)
	dc.LineTo(x-rad, y+rad)
	dc.ClosePath()
	dc.Fill()

	if p.Shield > 0 {
		dc.SetColor(colorShield)
		dc.SetLineWidth(2)
		dc.DrawCircle(x, y, rad*1.7)
		dc.Stroke()
	}
}

func (r *Renderer) drawHUD(dc *gg.Context, snap *game.GameSnapshot) {
	w := float64(r.width)
	margin := 8.0

	dc.SetColor(colorHUDPanel)
	dc.DrawRoundedRectangle(margin, margin, w-2*margin, 44, 4)
	dc.Fill()
	dc.SetColor(colorHUDAccent)
	dc.DrawRoundedRectangle(margin, margin, 3, 44, 1)
	dc.Fill()

	r.fonts.Use(dc, FontMedium)
	dc.SetColor(colorHUDText)
	dc.DrawString(fmt.Sprintf("%d", snap.Score), margin+10, margin+20)

	r.fonts.Use(dc, FontSmall)
	status := fmt.Sprintf("HP %d  WAVE %d", snap.Player.HP, snap.Wave)
	if snap.Multiplier > 1 {
		status += fmt.Sprintf("  x%d", snap.Multiplier)
	}
	dc.DrawStringAnchored(status, w-margin-8, margin+16, 1, 0)

	// Fuel gauge
	fuel := 0.0
	if snap.Player.MaxFuel > 0 {
		fuel = math.Max(0, math.Min(1, snap.Player.Fuel/snap.Player.MaxFuel))
	}
	barX, barY, barW := margin+10, margin+30, w-2*margin-20
	dc.SetColor(color.RGBA{60, 60, 70, 255})
	dc.DrawRectangle(barX, barY, barW, 6)
	dc.Fill()
	fc := colorHUDAccent
	if fuel < 0.25 {
		fc = colorFuelLow
	}
	dc.SetColor(fc)
	dc.DrawRectangle(barX, barY, barW*fuel, 6)
	dc.Fill()

	var banner string
	switch snap.State {
	case "idle":
		banner = "PRESS START"
	case "paused":
		banner = "PAUSED"
	case "gameOver":
		banner = fmt.Sprintf("GAME OVER  %d", snap.FinalScore)
	}
	if banner != "" {
		r.fonts.Use(dc, FontLarge)
		dc.SetColor(color.RGBA{0, 0, 0, 140})
		dc.DrawRectangle(0, float64(r.height)/2-30, w, 60)
		dc.Fill()
		dc.SetColor(colorHUDText)
		dc.DrawStringAnchored(banner, w/2, float64(r.height)/2, 0.5, 0.5)
	}
}
