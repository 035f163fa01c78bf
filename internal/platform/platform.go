// File: internal/platform/platform.go

// Package platform abstracts the desktop capabilities the engine samples:
// screen capture, window enumeration, text recognition and pointer state.
// Each capability can be independently unavailable; callers detect that with
// errors.Is(err, ErrUnavailable) and degrade instead of failing the cycle.
package platform

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/neurodesk/api/schemas"
	"github.com/xkilldash9x/neurodesk/internal/config"
)

// ErrUnavailable signals that a capability has no working provider on this
// host. It is a degraded-mode marker, not a transient failure.
var ErrUnavailable = errors.New("capability unavailable")

// PlaceholderCapture is the sentinel payload used when a screenshot could not
// be produced in time. Downstream consumers treat it as "no pixels, carry on".
const PlaceholderCapture = "screenshot_placeholder"

// Screenshot is one captured frame, or a placeholder standing in for one.
type Screenshot struct {
	ID          string
	Data        []byte
	Width       int
	Height      int
	CapturedAt  time.Time
	Placeholder bool
}

// NewPlaceholderScreenshot builds the stand-in frame used when capture timed
// out or the screen provider is unavailable.
func NewPlaceholderScreenshot(width, height int) *Screenshot {
	return &Screenshot{
		ID:          uuid.NewString(),
		Data:        []byte(PlaceholderCapture),
		Width:       width,
		Height:      height,
		CapturedAt:  time.Now().UTC(),
		Placeholder: true,
	}
}

// ScreenProvider captures frames and reports the display geometry.
type ScreenProvider interface {
	Resolution(ctx context.Context) (schemas.Resolution, error)
	// Capture honors the context deadline; a slow backend must return
	// ctx.Err() rather than block past it.
	Capture(ctx context.Context) (*Screenshot, error)
}

// WindowProvider enumerates top-level windows and the foreground application.
type WindowProvider interface {
	ListWindows(ctx context.Context) ([]schemas.WindowInfo, error)
	ActiveApplication(ctx context.Context) (string, error)
}

// OCRProvider extracts positioned text from a captured frame.
type OCRProvider interface {
	RecognizeText(ctx context.Context, shot *Screenshot) ([]schemas.TextElement, error)
}

// PointerProvider reports the current mouse position.
type PointerProvider interface {
	MousePosition(ctx context.Context) (schemas.Coordinates, error)
}

// Desktop bundles the capability providers behind one injection point.
type Desktop struct {
	Screen  ScreenProvider
	Windows WindowProvider
	OCR     OCRProvider
	Pointer PointerProvider
}

// New builds the provider set selected by cfg.Mode. The window provider is
// wrapped with a short-TTL cache when cfg.WindowCacheTTL is positive so burst
// queries within one cycle hit the OS once.
func New(cfg config.PlatformConfig, logger *zap.Logger) (*Desktop, error) {
	if logger == nil {
		return nil, errors.New("platform: logger must not be nil")
	}

	var desk *Desktop
	switch cfg.Mode {
	case "simulated":
		sim := NewSimulatedDesktop(cfg, logger)
		desk = &Desktop{Screen: sim, Windows: sim, OCR: sim, Pointer: sim}
	case "none":
		u := Unavailable{}
		desk = &Desktop{Screen: u, Windows: u, OCR: u, Pointer: u}
	default:
		return nil, fmt.Errorf("platform: unknown mode %q", cfg.Mode)
	}

	if cfg.WindowCacheTTL > 0 {
		desk.Windows = NewCachedWindowProvider(desk.Windows, cfg.WindowCacheTTL)
	}
	return desk, nil
}

// Unavailable is the provider set for hosts with no desktop access. Every
// call reports ErrUnavailable with the capability name attached.
type Unavailable struct{}

func (Unavailable) Resolution(context.Context) (schemas.Resolution, error) {
	return schemas.Resolution{}, fmt.Errorf("screen resolution: %w", ErrUnavailable)
}

func (Unavailable) Capture(context.Context) (*Screenshot, error) {
	return nil, fmt.Errorf("screen capture: %w", ErrUnavailable)
}

func (Unavailable) ListWindows(context.Context) ([]schemas.WindowInfo, error) {
	return nil, fmt.Errorf("window enumeration: %w", ErrUnavailable)
}

func (Unavailable) ActiveApplication(context.Context) (string, error) {
	return "", fmt.Errorf("active application: %w", ErrUnavailable)
}

func (Unavailable) RecognizeText(context.Context, *Screenshot) ([]schemas.TextElement, error) {
	return nil, fmt.Errorf("text recognition: %w", ErrUnavailable)
}

func (Unavailable) MousePosition(context.Context) (schemas.Coordinates, error) {
	return schemas.Coordinates{}, fmt.Errorf("mouse position: %w", ErrUnavailable)
}
