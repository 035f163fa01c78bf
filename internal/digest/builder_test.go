package digest

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/neurodesk/api/schemas"
	"github.com/xkilldash9x/neurodesk/internal/config"
)

func testBuilder() *Builder {
	return NewBuilder(config.NewDefaultConfig().Digest())
}

// richState covers every digest section: resolution, mouse with one nearby
// element, two windows with the first focused and decomposed, a mixed bag of
// typed elements, click plus app actions, and two context datums.
func richState() *schemas.SystemState {
	winA := &schemas.ScreenRegion{
		ID:         "window_0",
		RegionType: schemas.RegionWindow,
		Bounds:     schemas.BoundingBox{X: 100, Y: 100, Width: 600, Height: 400},
		Confidence: 1.0,
		Title:      "Alpha Editor",
		Clickable:  true,
		Focusable:  true,
		Visible:    true,
		Enabled:    true,
		Metadata:   map[string]interface{}{"focused": true},
		ChildrenIDs: []string{
			"window_0_titlebar", "window_0_content",
		},
	}
	winB := &schemas.ScreenRegion{
		ID:         "window_1",
		RegionType: schemas.RegionWindow,
		Bounds:     schemas.BoundingBox{X: 700, Y: 200, Width: 400, Height: 300},
		Confidence: 0.9,
		Title:      "Beta Browser",
		Clickable:  true,
		Focusable:  true,
		Visible:    true,
		Enabled:    true,
	}
	titlebar := &schemas.ScreenRegion{
		ID:         "window_0_titlebar",
		RegionType: schemas.RegionToolbar,
		Bounds:     schemas.BoundingBox{X: 100, Y: 100, Width: 600, Height: 30},
		Confidence: 0.8,
		Title:      "Title Bar",
		Clickable:  true,
		Visible:    true,
		Enabled:    true,
		ParentID:   "window_0",
	}
	content := &schemas.ScreenRegion{
		ID:         "window_0_content",
		RegionType: schemas.RegionContentArea,
		Bounds:     schemas.BoundingBox{X: 100, Y: 130, Width: 600, Height: 370},
		Confidence: 0.7,
		Title:      "Content Area",
		Visible:    true,
		Enabled:    true,
		ParentID:   "window_0",
	}

	return &schemas.SystemState{
		ID:                "state-1",
		ActiveApplication: "chrome.exe",
		FocusedRegion:     winA,
		AllRegions:        []*schemas.ScreenRegion{winA, winB, titlebar, content},
		TextElements: []schemas.TextElement{
			{Text: "Save", Bounds: schemas.BoundingBox{X: 390, Y: 295, Width: 40, Height: 30}, Confidence: 0.95, CenterX: 410, CenterY: 310, ElementType: schemas.ElementButton},
			{Text: "OK", Bounds: schemas.BoundingBox{X: 490, Y: 104, Width: 60, Height: 32}, Confidence: 0.96, CenterX: 520, CenterY: 120, ElementType: schemas.ElementButton},
			{Text: "https://example.com/docs", Bounds: schemas.BoundingBox{X: 50, Y: 590, Width: 300, Height: 20}, Confidence: 0.91, CenterX: 200, CenterY: 600, ElementType: schemas.ElementLink},
			{Text: "Quarterly report summary", Bounds: schemas.BoundingBox{X: 150, Y: 690, Width: 300, Height: 20}, Confidence: 0.89, CenterX: 300, CenterY: 700, ElementType: schemas.ElementText},
			{Text: "Hello world", Bounds: schemas.BoundingBox{X: 840, Y: 790, Width: 120, Height: 20}, Confidence: 0.93, CenterX: 900, CenterY: 800, ElementType: schemas.ElementText},
			{Text: "ad", Bounds: schemas.BoundingBox{X: 985, Y: 894, Width: 30, Height: 12}, Confidence: 0.41, CenterX: 1000, CenterY: 900, ElementType: schemas.ElementText},
		},
		ContextData: []schemas.ContextDatum{
			{ContextType: schemas.ContextSystemState, Confidence: 0.9, Source: "sampler", Priority: schemas.PriorityMedium},
			{ContextType: schemas.ContextVisual, Confidence: 0.8, Source: "sampler", Priority: schemas.PriorityMedium},
		},
		AvailableActions: []schemas.AgentAction{
			{Name: "click_window_0", Description: "Click on Alpha Editor", EstimatedDuration: 0.5, Reversible: true},
			{Name: "click_window_1", Description: "Click on Beta Browser", EstimatedDuration: 0.5, Reversible: true},
			{Name: "new_tab", Description: "Open a new tab"},
		},
		ScreenResolution: &schemas.Resolution{Width: 1920, Height: 1080},
		MousePosition:    &schemas.Coordinates{X: 400, Y: 300},
	}
}

func TestBuild_EmptyState(t *testing.T) {
	b := testBuilder()

	assert.Equal(t, EmptyStateMessage, b.Build(nil, StandardOptions()))
	assert.Equal(t, EmptyStateMessage, b.Build(&schemas.SystemState{}, StandardOptions()))
}

func TestBuild_StandardLayout(t *testing.T) {
	b := testBuilder()

	got := b.Build(richState(), StandardOptions())

	want := `Screen Resolution: 1920x1080 (coordinates: 0-1919, 0-1079)
Mouse Position: (400, 300)
Text near mouse: "Save"

Active Application: chrome.exe

Screen Regions (4 total):
  - window: 2
  - toolbar: 1
  - content_area: 1

Focused Window: Alpha Editor (window)
  Position: (100, 100)
  Size: 600x400
  Center: (400, 300)
  Contains 2 sub-regions:
    - Title Bar: center (400, 115)
    - Content Area: center (400, 315)

Visible Windows (2):
  1. Alpha Editor [FOCUSED]
     Position: (100, 100), Size: 600x400, Click center: (400, 300)
  2. Beta Browser
     Position: (700, 200), Size: 400x300, Click center: (900, 350)

UI Elements Detected: 6 total

Buttons (2):
  - "Save" at (410, 310)
  - "OK" at (520, 120)

Links (1):
  - "https://example.com/docs" at (200, 600)

Visible Text (2 items):
  - "Hello world" at (900, 800)
  - "Quarterly report summary" at (300, 700)

Available Actions: 3 total
  - 2 click actions
  - 1 new actions

Context Data:
  - system_state: 1 items
  - visual: 1 items`

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("digest mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_Deterministic(t *testing.T) {
	b := testBuilder()
	state := richState()

	first := b.Build(state, StandardOptions())
	for i := 0; i < 5; i++ {
		if diff := cmp.Diff(first, b.Build(state, StandardOptions())); diff != "" {
			t.Fatalf("render %d diverged (-first +got):\n%s", i+1, diff)
		}
	}
}

func TestBuild_TruncationAndCaps(t *testing.T) {
	b := testBuilder()

	longTitle := strings.Repeat("T", 80)
	longText := strings.Repeat("x", 70)

	state := &schemas.SystemState{ID: "caps"}
	for i := 0; i < 12; i++ {
		state.AllRegions = append(state.AllRegions, &schemas.ScreenRegion{
			ID:         fmt.Sprintf("window_%d", i),
			RegionType: schemas.RegionWindow,
			Bounds:     schemas.BoundingBox{X: i * 10, Y: i * 10, Width: 200, Height: 100},
			Confidence: 0.9,
			Title:      longTitle,
			Visible:    true,
			Enabled:    true,
		})
	}
	for i := 0; i < 25; i++ {
		state.TextElements = append(state.TextElements, schemas.TextElement{
			Text:        longText,
			Bounds:      schemas.BoundingBox{X: i, Y: i, Width: 100, Height: 30},
			Confidence:  0.9,
			CenterX:     i + 50,
			CenterY:     i + 15,
			ElementType: schemas.ElementButton,
		})
	}

	got := b.Build(state, StandardOptions())

	assert.Contains(t, got, "Visible Windows (12):")
	assert.Contains(t, got, "  10. ")
	assert.NotContains(t, got, "  11. ")
	assert.Contains(t, got, "  ... and 2 more windows")

	assert.Contains(t, got, "Buttons (25):")
	assert.Equal(t, 10, strings.Count(got, `  - "`))

	// Hard cuts, no ellipsis markers on truncated values.
	assert.Contains(t, got, strings.Repeat("T", 60)+"\n")
	assert.NotContains(t, got, strings.Repeat("T", 61))
	assert.Contains(t, got, `"`+strings.Repeat("x", 50)+`"`)
	assert.NotContains(t, got, strings.Repeat("x", 51))
	assert.NotContains(t, got, "...\"")
}

func TestBuild_ChildCapPerLevel(t *testing.T) {
	state := richState()
	focused := state.FocusedRegion
	for i := 0; i < 7; i++ {
		child := &schemas.ScreenRegion{
			ID:         fmt.Sprintf("window_0_extra_%d", i),
			RegionType: schemas.RegionListItem,
			Bounds:     schemas.BoundingBox{X: 120, Y: 160 + i*20, Width: 200, Height: 18},
			Confidence: 0.6,
			Visible:    true,
			Enabled:    true,
			ParentID:   focused.ID,
		}
		state.AllRegions = append(state.AllRegions, child)
		focused.ChildrenIDs = append(focused.ChildrenIDs, child.ID)
	}
	// 9 children total now: titlebar, content, 7 list items.
	b := testBuilder()

	standard := b.Build(state, Options{Detail: DetailStandard, IncludeOCR: true})
	assert.Contains(t, standard, "  Contains 9 sub-regions:")
	assert.Equal(t, 5, strings.Count(standard, "    - "))
	assert.Contains(t, standard, "    ... and 4 more")

	detailed := b.Build(state, Options{Detail: DetailDetailed, IncludeOCR: true})
	assert.Equal(t, 9, strings.Count(detailed, "    - "))
	assert.NotContains(t, detailed, "    ... and")
}

func TestBuild_DetailLevels(t *testing.T) {
	b := testBuilder()
	state := richState()

	minimal := b.Build(state, Options{Detail: DetailMinimal, IncludeOCR: true})
	standard := b.Build(state, Options{Detail: DetailStandard, IncludeOCR: true})
	detailed := b.Build(state, Options{Detail: DetailDetailed, IncludeOCR: true})
	full := b.Build(state, Options{Detail: DetailFull, IncludeOCR: true})

	// Minimal keeps resolution, mouse, app and windows; everything else is
	// dropped, including the OCR-derived near-mouse excerpt.
	assert.Contains(t, minimal, "Screen Resolution: 1920x1080")
	assert.Contains(t, minimal, "Mouse Position: (400, 300)")
	assert.Contains(t, minimal, "Active Application: chrome.exe")
	assert.Contains(t, minimal, "Visible Windows (2):")
	assert.NotContains(t, minimal, "Text near mouse")
	assert.NotContains(t, minimal, "Screen Regions")
	assert.NotContains(t, minimal, "Focused Window")
	assert.NotContains(t, minimal, "UI Elements Detected")
	assert.NotContains(t, minimal, "Available Actions")
	assert.NotContains(t, minimal, "Context Data")

	assert.NotContains(t, standard, "  Attributes: ")
	assert.Contains(t, detailed, "  Attributes: clickable, focusable")

	// Full disables the minimum text length filter, so the short "ad"
	// element shows up.
	assert.NotContains(t, standard, `"ad" at`)
	assert.Contains(t, full, `"ad" at (1000, 900)`)

	assert.Less(t, len(minimal), len(full))
	assert.LessOrEqual(t, len(detailed), len(full))
}

func TestBuild_MinimalWindowCap(t *testing.T) {
	b := testBuilder()

	state := &schemas.SystemState{ID: "many-windows"}
	for i := 0; i < 7; i++ {
		state.AllRegions = append(state.AllRegions, &schemas.ScreenRegion{
			ID:         fmt.Sprintf("window_%d", i),
			RegionType: schemas.RegionWindow,
			Bounds:     schemas.BoundingBox{X: i * 20, Y: i * 20, Width: 300, Height: 200},
			Confidence: 0.9,
			Title:      fmt.Sprintf("Window %d", i),
			Visible:    true,
			Enabled:    true,
		})
	}

	minimal := b.Build(state, Options{Detail: DetailMinimal})
	assert.Contains(t, minimal, "Visible Windows (7):")
	assert.Contains(t, minimal, "  5. Window 4")
	assert.NotContains(t, minimal, "  6. Window 5")
	assert.Contains(t, minimal, "  ... and 2 more windows")

	standard := b.Build(state, Options{Detail: DetailStandard})
	assert.Contains(t, standard, "  7. Window 6")
	assert.NotContains(t, standard, "  ... and")
}

func TestBuild_OptionToggles(t *testing.T) {
	b := testBuilder()
	state := richState()

	noOCR := b.Build(state, Options{Detail: DetailStandard, IncludeOCR: false})
	assert.NotContains(t, noOCR, "UI Elements Detected")
	assert.NotContains(t, noOCR, "Text near mouse")
	assert.Contains(t, noOCR, "Visible Windows (2):")

	vision := b.Build(state, Options{Detail: DetailStandard, IncludeOCR: true, IncludeVision: true})
	assert.True(t, strings.HasSuffix(vision, "[Vision analysis unavailable]"), "vision placeholder should be the final section")

	capped := b.Build(state, Options{Detail: DetailStandard, IncludeOCR: true, MaxItemsPerCategory: 1})
	assert.Contains(t, capped, "Buttons (2):")
	assert.Contains(t, capped, `  - "Save" at (410, 310)`)
	assert.NotContains(t, capped, `  - "OK" at`)
}

func TestBuild_GroupHeaderSpacing(t *testing.T) {
	b := testBuilder()

	got := b.Build(richState(), StandardOptions())

	require.Contains(t, got, "UI Elements Detected: 6 total\n\nButtons (2):")
	require.Contains(t, got, "(520, 120)\n\nLinks (1):")
	require.Contains(t, got, "(200, 600)\n\nVisible Text (2 items):")
}

func TestParseDetailLevel(t *testing.T) {
	for _, valid := range []string{"minimal", "standard", "detailed", "full"} {
		level, err := ParseDetailLevel(valid)
		require.NoError(t, err)
		assert.Equal(t, DetailLevel(valid), level)
	}

	_, err := ParseDetailLevel("verbose")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown detail level")
}
