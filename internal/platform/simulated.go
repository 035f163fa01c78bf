// File: internal/platform/simulated.go
package platform

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/aquilax/go-perlin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/neurodesk/api/schemas"
	"github.com/xkilldash9x/neurodesk/internal/config"
)

// Perlin parameters tuned for idle-hand cursor wander: low frequency so
// consecutive samples a couple of seconds apart usually land on the same
// pixel, drifting over tens of seconds.
const (
	driftFrequency = 0.05
	driftMagnitude = 40.0
)

// SimulatedDesktop is a deterministic stand-in for a real desktop session.
// The same seed always produces the same window layout and text surface, so
// repeated samples yield identical results until the simulated cursor drifts.
type SimulatedDesktop struct {
	logger *zap.Logger
	width  int
	height int
	start  time.Time

	mu             sync.Mutex
	captureLatency time.Duration
	frameCount     int

	windows []schemas.WindowInfo
	anchor  schemas.Coordinates
	noiseX  *perlin.Perlin
	noiseY  *perlin.Perlin
}

// NewSimulatedDesktop builds the seeded pseudo-desktop described by cfg.
func NewSimulatedDesktop(cfg config.PlatformConfig, logger *zap.Logger) *SimulatedDesktop {
	rng := rand.New(rand.NewSource(cfg.Seed))

	alpha, beta, n := 2.0, 2.0, int32(3)
	s := &SimulatedDesktop{
		logger: logger.Named("platform.simulated"),
		width:  cfg.ScreenWidth,
		height: cfg.ScreenHeight,
		start:  time.Now(),
		anchor: schemas.Coordinates{
			X: cfg.ScreenWidth/2 + rng.Intn(200) - 100,
			Y: cfg.ScreenHeight/2 + rng.Intn(200) - 100,
		},
		noiseX: perlin.NewPerlin(alpha, beta, n, cfg.Seed),
		noiseY: perlin.NewPerlin(alpha, beta, n, cfg.Seed+1),
	}
	s.windows = s.buildWindows(rng)
	return s
}

// buildWindows lays out the fixed window set with seeded jitter so different
// seeds give different but stable desktops.
func (s *SimulatedDesktop) buildWindows(rng *rand.Rand) []schemas.WindowInfo {
	jitter := func(span int) int { return rng.Intn(span*2+1) - span }

	browser := schemas.WindowInfo{
		ID:      "win-1",
		Title:   "NeuroDesk Dashboard - Google Chrome",
		AppName: "chrome.exe",
		Bounds: schemas.BoundingBox{
			X:      120 + jitter(40),
			Y:      60 + jitter(20),
			Width:  s.width * 2 / 3,
			Height: s.height * 3 / 4,
		},
		IsFocused: true,
		ZOrder:    0,
	}
	editor := schemas.WindowInfo{
		ID:      "win-2",
		Title:   "notes.txt - Notepad",
		AppName: "notepad.exe",
		Bounds: schemas.BoundingBox{
			X:      s.width/2 + jitter(60),
			Y:      s.height/3 + jitter(30),
			Width:  520,
			Height: 380,
		},
		ZOrder: 1,
	}
	player := schemas.WindowInfo{
		ID:          "win-3",
		Title:       "Spotify Premium",
		AppName:     "spotify.exe",
		Bounds:      schemas.BoundingBox{X: 0, Y: 0, Width: 800, Height: 600},
		IsMinimized: true,
		ZOrder:      2,
	}
	return []schemas.WindowInfo{browser, editor, player}
}

// SetCaptureLatency makes Capture block for d before returning, so tests can
// drive the timeout path.
func (s *SimulatedDesktop) SetCaptureLatency(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.captureLatency = d
}

// Resolution implements ScreenProvider.
func (s *SimulatedDesktop) Resolution(context.Context) (schemas.Resolution, error) {
	return schemas.Resolution{Width: s.width, Height: s.height}, nil
}

// Capture implements ScreenProvider. The frame payload is synthetic; only its
// identity and geometry matter to the pipeline.
func (s *SimulatedDesktop) Capture(ctx context.Context) (*Screenshot, error) {
	s.mu.Lock()
	latency := s.captureLatency
	s.frameCount++
	frame := s.frameCount
	s.mu.Unlock()

	if latency > 0 {
		timer := time.NewTimer(latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	return &Screenshot{
		ID:         uuid.NewString(),
		Data:       fmt.Appendf(nil, "synthetic-frame %dx%d #%d", s.width, s.height, frame),
		Width:      s.width,
		Height:     s.height,
		CapturedAt: time.Now().UTC(),
	}, nil
}

// ListWindows implements WindowProvider. The returned slice is a copy.
func (s *SimulatedDesktop) ListWindows(context.Context) ([]schemas.WindowInfo, error) {
	return append([]schemas.WindowInfo(nil), s.windows...), nil
}

// ActiveApplication implements WindowProvider.
func (s *SimulatedDesktop) ActiveApplication(context.Context) (string, error) {
	for _, w := range s.windows {
		if w.IsFocused {
			return w.AppName, nil
		}
	}
	return "", nil
}

// RecognizeText implements OCRProvider. The text surface is derived from the
// window layout, positioned inside the focused window. Classification is the
// sampler's job; elements leave here untyped.
func (s *SimulatedDesktop) RecognizeText(_ context.Context, shot *Screenshot) ([]schemas.TextElement, error) {
	if shot == nil {
		return nil, fmt.Errorf("recognize text: nil screenshot")
	}

	var focused *schemas.WindowInfo
	for i := range s.windows {
		if s.windows[i].IsFocused {
			focused = &s.windows[i]
			break
		}
	}
	if focused == nil {
		return nil, nil
	}

	b := focused.Bounds
	mk := func(text string, dx, dy, w, h int, conf float64) schemas.TextElement {
		bounds := schemas.BoundingBox{X: b.X + dx, Y: b.Y + dy, Width: w, Height: h}
		center := bounds.Center()
		return schemas.TextElement{
			Text:       text,
			Bounds:     bounds,
			Confidence: conf,
			CenterX:    center.X,
			CenterY:    center.Y,
		}
	}

	elements := []schemas.TextElement{
		mk("NeuroDesk Dashboard", 24, 48, 280, 28, 0.98),
		mk("Subscribe", 48, 120, 120, 36, 0.95),
		mk("Save Draft", 188, 120, 130, 36, 0.93),
		mk("https://neurodesk.example.com/docs", 48, 180, 420, 18, 0.91),
		mk("Latest activity from your stream overlay", 48, 230, 460, 20, 0.89),
		mk("Search", 48, 290, 240, 30, 0.87),
		mk("OK", 520, 120, 60, 32, 0.96),
		mk("ad", 600, 400, 30, 12, 0.41),
	}
	return elements, nil
}

// MousePosition implements PointerProvider. The cursor wanders around its
// anchor on two perlin channels, clamped to the screen.
func (s *SimulatedDesktop) MousePosition(context.Context) (schemas.Coordinates, error) {
	elapsed := time.Since(s.start).Seconds()
	dx := s.noiseX.Noise1D(elapsed*driftFrequency) * driftMagnitude
	dy := s.noiseY.Noise1D(elapsed*driftFrequency) * driftMagnitude

	clamp := func(v, max int) int {
		if v < 0 {
			return 0
		}
		if v >= max {
			return max - 1
		}
		return v
	}
	return schemas.Coordinates{
		X: clamp(s.anchor.X+int(math.Round(dx)), s.width),
		Y: clamp(s.anchor.Y+int(math.Round(dy)), s.height),
	}, nil
}
