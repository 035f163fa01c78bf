// File: internal/region/windows.go
package region

import (
	"fmt"
	"strings"

	"github.com/xkilldash9x/neurodesk/api/schemas"
)

const (
	// minWindowDimension filters out tool strips and ghost windows.
	minWindowDimension = 10
	// titleBarHeight is the assumed decoration strip at the top of a window.
	titleBarHeight = 30
)

// windowConversion is the result of mapping raw provider windows onto the
// region model.
type windowConversion struct {
	regions []*schemas.ScreenRegion
	focused *schemas.ScreenRegion
}

// convertWindows maps provider windows to screen regions in detection order.
// Windows below the minimum dimension or without a title are dropped. The
// focused window gets confidence 1.0 and a focused metadata flag; everything
// else carries 0.9.
func convertWindows(windows []schemas.WindowInfo) windowConversion {
	out := windowConversion{}

	i := 0
	for _, w := range windows {
		if w.Bounds.Width < minWindowDimension || w.Bounds.Height < minWindowDimension {
			continue
		}
		if strings.TrimSpace(w.Title) == "" {
			continue
		}

		confidence := 0.9
		if w.IsFocused {
			confidence = 1.0
		}

		region := &schemas.ScreenRegion{
			ID:          fmt.Sprintf("window_%d", i),
			RegionType:  schemas.RegionWindow,
			Bounds:      w.Bounds,
			Confidence:  confidence,
			Title:       w.Title,
			Application: w.AppName,
			Clickable:   true,
			Focusable:   true,
			Visible:     !w.IsMinimized,
			Enabled:     true,
			Metadata: map[string]interface{}{
				"provider_id": w.ID,
				"z_order":     w.ZOrder,
				"minimized":   w.IsMinimized,
			},
		}
		if w.IsFocused {
			region.Metadata["focused"] = true
			out.focused = region
		}

		out.regions = append(out.regions, region)
		i++
	}
	return out
}

// decomposeFocused splits the focused window into a title-bar strip and a
// content area, linked through parent/children ids. Windows too short to hold
// both parts yield no children.
func decomposeFocused(focused *schemas.ScreenRegion) []*schemas.ScreenRegion {
	if focused == nil || focused.Bounds.Height <= titleBarHeight {
		return nil
	}
	b := focused.Bounds

	titleBar := &schemas.ScreenRegion{
		ID:         focused.ID + "_titlebar",
		RegionType: schemas.RegionToolbar,
		Bounds: schemas.BoundingBox{
			X:      b.X,
			Y:      b.Y,
			Width:  b.Width,
			Height: titleBarHeight,
		},
		Confidence:  0.8,
		Title:       "Title Bar",
		Application: focused.Application,
		Clickable:   true,
		Visible:     true,
		Enabled:     true,
		ParentID:    focused.ID,
	}

	content := &schemas.ScreenRegion{
		ID:         focused.ID + "_content",
		RegionType: schemas.RegionContentArea,
		Bounds: schemas.BoundingBox{
			X:      b.X,
			Y:      b.Y + titleBarHeight,
			Width:  b.Width,
			Height: b.Height - titleBarHeight,
		},
		Confidence:  0.7,
		Title:       "Content Area",
		Application: focused.Application,
		Clickable:   true,
		Visible:     true,
		Enabled:     true,
		ParentID:    focused.ID,
	}

	focused.ChildrenIDs = []string{titleBar.ID, content.ID}
	return []*schemas.ScreenRegion{titleBar, content}
}
