// File: internal/region/sampler.go

// Package region turns raw platform capabilities into one consistent
// SystemState per sampling cycle: windows become screen regions, the focused
// window is decomposed, recognized text is classified, and context data plus
// agent actions are synthesized from the result.
package region

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/neurodesk/api/schemas"
	"github.com/xkilldash9x/neurodesk/internal/config"
	"github.com/xkilldash9x/neurodesk/internal/platform"
)

// ErrCaptureTimeout marks a screenshot attempt that exceeded the capture
// budget. The sampler substitutes a placeholder and finishes the cycle.
var ErrCaptureTimeout = errors.New("screen capture timed out")

// Sampler acquires snapshots. Provider failures degrade the affected slice of
// the state to empty; only context cancellation aborts a sample.
type Sampler struct {
	desk           *platform.Desktop
	exec           *platform.Executor
	logger         *zap.Logger
	captureTimeout time.Duration
}

// NewSampler wires the sampler to its providers and blocking-call pool.
func NewSampler(desk *platform.Desktop, exec *platform.Executor, cfg config.EngineConfig, logger *zap.Logger) (*Sampler, error) {
	if desk == nil {
		return nil, errors.New("desktop providers cannot be nil")
	}
	if exec == nil {
		return nil, errors.New("executor cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	captureTimeout := cfg.CaptureTimeout
	if captureTimeout <= 0 {
		captureTimeout = 5 * time.Second
	}

	return &Sampler{
		desk:           desk,
		exec:           exec,
		logger:         logger.Named("sampler"),
		captureTimeout: captureTimeout,
	}, nil
}

// Sample produces one SystemState. The returned state is complete and
// immutable from the caller's perspective; nothing retains a reference to its
// slices.
func (s *Sampler) Sample(ctx context.Context) (*schemas.SystemState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	state := &schemas.SystemState{
		ID:        uuid.NewString(),
		Timestamp: now,
	}

	if res, err := s.desk.Screen.Resolution(ctx); err != nil {
		s.degrade("screen resolution", err)
	} else {
		state.ScreenResolution = &res
	}

	if app, err := s.desk.Windows.ActiveApplication(ctx); err != nil {
		s.degrade("active application", err)
	} else {
		state.ActiveApplication = app
	}

	var windows []schemas.WindowInfo
	err := s.exec.Do(ctx, "windows.enumerate", func(c context.Context) error {
		var listErr error
		windows, listErr = s.desk.Windows.ListWindows(c)
		return listErr
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.degrade("window enumeration", err)
	}

	conv := convertWindows(windows)
	children := decomposeFocused(conv.focused)
	state.AllRegions = append(conv.regions, children...)
	state.FocusedRegion = conv.focused

	shot, err := s.capture(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		w, h := 0, 0
		if state.ScreenResolution != nil {
			w, h = state.ScreenResolution.Width, state.ScreenResolution.Height
		}
		shot = platform.NewPlaceholderScreenshot(w, h)

		switch {
		case errors.Is(err, ErrCaptureTimeout):
			s.logger.Warn("Screen capture timed out, continuing with placeholder",
				zap.Duration("timeout", s.captureTimeout))
		case errors.Is(err, platform.ErrUnavailable):
			s.logger.Debug("Screen capture unavailable, continuing with placeholder")
		default:
			s.logger.Warn("Screen capture failed, continuing with placeholder", zap.Error(err))
		}
	}

	if !shot.Placeholder {
		var elements []schemas.TextElement
		err := s.exec.Do(ctx, "ocr.recognize", func(c context.Context) error {
			var ocrErr error
			elements, ocrErr = s.desk.OCR.RecognizeText(c, shot)
			return ocrErr
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.degrade("text recognition", err)
		} else {
			state.TextElements = classifyElements(elements)
		}
	}

	if pos, err := s.desk.Pointer.MousePosition(ctx); err != nil {
		s.degrade("mouse position", err)
	} else {
		state.MousePosition = &pos
	}

	state.ContextData = synthesizeContext(
		state.AllRegions, state.TextElements, state.ActiveApplication,
		state.ScreenResolution, shot.Placeholder, now)
	state.AvailableActions = synthesizeActions(state.AllRegions, state.ActiveApplication)

	s.logger.Debug("Sampled system state",
		zap.String("state_id", state.ID),
		zap.Int("regions", len(state.AllRegions)),
		zap.Int("text_elements", len(state.TextElements)),
		zap.Int("actions", len(state.AvailableActions)),
		zap.Bool("placeholder_capture", shot.Placeholder))

	return state, nil
}

// capture runs one screenshot attempt under the capture budget.
func (s *Sampler) capture(ctx context.Context) (*platform.Screenshot, error) {
	cctx, cancel := context.WithTimeout(ctx, s.captureTimeout)
	defer cancel()

	var shot *platform.Screenshot
	err := s.exec.Do(cctx, "screen.capture", func(c context.Context) error {
		var capErr error
		shot, capErr = s.desk.Screen.Capture(c)
		return capErr
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, ErrCaptureTimeout
		}
		return nil, err
	}
	return shot, nil
}

// degrade logs a capability failure at the right level. Missing capabilities
// are expected and stay quiet; real errors warn.
func (s *Sampler) degrade(capability string, err error) {
	if errors.Is(err, platform.ErrUnavailable) {
		s.logger.Debug("Capability unavailable, degrading to empty result",
			zap.String("capability", capability))
		return
	}
	s.logger.Warn("Provider call failed, degrading to empty result",
		zap.String("capability", capability), zap.Error(err))
}
