package schemas

import (
	"fmt"
	"time"
)

// RegionType classifies a detected UI entity.
type RegionType string

const (
	RegionWindow       RegionType = "window"
	RegionButton       RegionType = "button"
	RegionInputField   RegionType = "input_field"
	RegionTextArea     RegionType = "text_area"
	RegionMenu         RegionType = "menu"
	RegionToolbar      RegionType = "toolbar"
	RegionTab          RegionType = "tab"
	RegionDialog       RegionType = "dialog"
	RegionContentArea  RegionType = "content_area"
	RegionImage        RegionType = "image"
	RegionLink         RegionType = "link"
	RegionIcon         RegionType = "icon"
	RegionListItem     RegionType = "list_item"
	RegionCheckbox     RegionType = "checkbox"
	RegionRadioButton  RegionType = "radio_button"
	RegionDropdown     RegionType = "dropdown"
	RegionSlider       RegionType = "slider"
	RegionProgressBar  RegionType = "progress_bar"
	RegionNotification RegionType = "notification"
	RegionUnknown      RegionType = "unknown"
)

// ElementType classifies an OCR-detected text element.
type ElementType string

const (
	ElementButton ElementType = "button"
	ElementLink   ElementType = "link"
	ElementInput  ElementType = "input"
	ElementText   ElementType = "text"
)

// ContextType categorizes a piece of contextual information.
type ContextType string

const (
	ContextVisual      ContextType = "visual"
	ContextInteractive ContextType = "interactive"
	ContextApplication ContextType = "application"
	ContextSystemState ContextType = "system_state"
	ContextError       ContextType = "error"
)

// Priority ranks contextual information for the consumer.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// Coordinates is a point on the virtual screen. Values may be negative on
// multi-monitor setups.
type Coordinates struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Resolution describes the dimensions of the virtual screen.
type Resolution struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// BoundingBox is an axis-aligned rectangle in screen coordinates.
type BoundingBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Validate rejects degenerate rectangles.
func (b BoundingBox) Validate() error {
	if b.Width <= 0 || b.Height <= 0 {
		return fmt.Errorf("bounding box dimensions must be positive, got %dx%d", b.Width, b.Height)
	}
	return nil
}

// Center returns the midpoint using integer division.
func (b BoundingBox) Center() Coordinates {
	return Coordinates{X: b.X + b.Width/2, Y: b.Y + b.Height/2}
}

// Area returns the surface of the box in square pixels.
func (b BoundingBox) Area() int {
	return b.Width * b.Height
}

// Contains reports whether the point lies inside the box. Boundaries are
// inclusive on all four edges.
func (b BoundingBox) Contains(p Coordinates) bool {
	return p.X >= b.X && p.X <= b.X+b.Width && p.Y >= b.Y && p.Y <= b.Y+b.Height
}

// Overlaps reports whether two boxes intersect. Boxes that merely touch
// along an edge do not overlap.
func (b BoundingBox) Overlaps(o BoundingBox) bool {
	if o.X >= b.X+b.Width || o.X+o.Width <= b.X {
		return false
	}
	if o.Y >= b.Y+b.Height || o.Y+o.Height <= b.Y {
		return false
	}
	return true
}

// ScreenRegion is one detected UI entity. Regions are created fresh each
// sampling cycle and never mutated afterwards; the next snapshot supersedes
// them wholesale.
type ScreenRegion struct {
	ID          string                 `json:"id"`
	RegionType  RegionType             `json:"region_type"`
	Bounds      BoundingBox            `json:"bounds"`
	Confidence  float64                `json:"confidence"`
	Title       string                 `json:"title,omitempty"`
	Application string                 `json:"application,omitempty"`
	Clickable   bool                   `json:"clickable"`
	Focusable   bool                   `json:"focusable"`
	Visible     bool                   `json:"visible"`
	Enabled     bool                   `json:"enabled"`
	ParentID    string                 `json:"parent_id,omitempty"`
	ChildrenIDs []string               `json:"children_ids,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// NewRegion constructs a validated region with visibility defaults applied.
func NewRegion(id string, rt RegionType, bounds BoundingBox, confidence float64) (*ScreenRegion, error) {
	r := &ScreenRegion{
		ID:         id,
		RegionType: rt,
		Bounds:     bounds,
		Confidence: confidence,
		Visible:    true,
		Enabled:    true,
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// Validate checks the region invariants.
func (r *ScreenRegion) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("region id must not be empty")
	}
	if err := r.Bounds.Validate(); err != nil {
		return fmt.Errorf("region %s: %w", r.ID, err)
	}
	if r.Confidence < 0.0 || r.Confidence > 1.0 {
		return fmt.Errorf("region %s: confidence must be between 0.0 and 1.0, got %v", r.ID, r.Confidence)
	}
	return nil
}

// IsFocused reports whether the region metadata marks it as focused.
func (r *ScreenRegion) IsFocused() bool {
	if r.Metadata == nil {
		return false
	}
	focused, ok := r.Metadata["focused"].(bool)
	return ok && focused
}

// IsMinimized reports the best-effort minimized state from metadata. The
// second return value is false when the underlying provider did not expose
// the state at all.
func (r *ScreenRegion) IsMinimized() (minimized, known bool) {
	if r.Metadata == nil {
		return false, false
	}
	m, ok := r.Metadata["minimized"].(bool)
	return m, ok
}

// TextElement is one OCR-detected piece of text with its inferred role.
type TextElement struct {
	Text        string      `json:"text"`
	Bounds      BoundingBox `json:"bounds"`
	Confidence  float64     `json:"confidence"`
	CenterX     int         `json:"center_x"`
	CenterY     int         `json:"center_y"`
	ElementType ElementType `json:"element_type"`
}

// Validate checks the element invariants.
func (t *TextElement) Validate() error {
	if err := t.Bounds.Validate(); err != nil {
		return fmt.Errorf("text element %q: %w", t.Text, err)
	}
	if t.Confidence < 0.0 || t.Confidence > 1.0 {
		return fmt.Errorf("text element %q: confidence must be between 0.0 and 1.0, got %v", t.Text, t.Confidence)
	}
	return nil
}

// ContextDatum is one piece of synthesized context with provenance.
type ContextDatum struct {
	ContextType ContextType            `json:"context_type"`
	Timestamp   time.Time              `json:"timestamp"`
	Data        map[string]interface{} `json:"data"`
	Confidence  float64                `json:"confidence"`
	Source      string                 `json:"source"`
	Priority    Priority               `json:"priority"`
	Expiry      *time.Time             `json:"expiry,omitempty"`
}

// Validate checks the datum invariants.
func (d *ContextDatum) Validate() error {
	if d.Confidence < 0.0 || d.Confidence > 1.0 {
		return fmt.Errorf("context datum from %s: confidence must be between 0.0 and 1.0, got %v", d.Source, d.Confidence)
	}
	return nil
}

// Expired reports whether the datum has outlived its expiry.
func (d *ContextDatum) Expired(now time.Time) bool {
	return d.Expiry != nil && now.After(*d.Expiry)
}

// AgentAction describes a capability offered to the agent. It is a
// descriptor, not a dispatched action.
type AgentAction struct {
	Name                 string                 `json:"name"`
	Description          string                 `json:"description"`
	Parameters           map[string]interface{} `json:"parameters,omitempty"`
	TargetRegionID       string                 `json:"target_region_id,omitempty"`
	EstimatedDuration    float64                `json:"estimated_duration"`
	RequiresConfirmation bool                   `json:"requires_confirmation"`
	Reversible           bool                   `json:"reversible"`
}

// Validate checks the action invariants.
func (a *AgentAction) Validate() error {
	if a.Name == "" {
		return fmt.Errorf("action name must not be empty")
	}
	if a.EstimatedDuration < 0 {
		return fmt.Errorf("action %s: estimated duration must not be negative", a.Name)
	}
	return nil
}

// TypePrefix returns the action-type grouping key: the name up to the first
// underscore, or the whole name when there is none.
func (a *AgentAction) TypePrefix() string {
	for i := 0; i < len(a.Name); i++ {
		if a.Name[i] == '_' {
			return a.Name[:i]
		}
	}
	return a.Name
}

// WindowInfo is the raw enumeration result from a window provider.
type WindowInfo struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	AppName     string      `json:"app_name"`
	Bounds      BoundingBox `json:"bounds"`
	IsFocused   bool        `json:"is_focused"`
	IsMinimized bool        `json:"is_minimized"`
	ZOrder      int         `json:"z_order"`
}

// SystemState is one consistent, timestamped observation of the desktop.
// It is built once per sampling cycle and swapped in atomically; concurrent
// readers always see a complete snapshot.
type SystemState struct {
	ID                string          `json:"id"`
	ActiveApplication string          `json:"active_application,omitempty"`
	FocusedRegion     *ScreenRegion   `json:"focused_region,omitempty"`
	AllRegions        []*ScreenRegion `json:"all_regions"`
	TextElements      []TextElement   `json:"text_elements"`
	ContextData       []ContextDatum  `json:"context_data"`
	AvailableActions  []AgentAction   `json:"available_actions"`
	Timestamp         time.Time       `json:"timestamp"`
	ScreenResolution  *Resolution     `json:"screen_resolution,omitempty"`
	MousePosition     *Coordinates    `json:"mouse_position,omitempty"`
}

// RegionByID returns the region with the given id, or nil.
func (s *SystemState) RegionByID(id string) *ScreenRegion {
	for _, r := range s.AllRegions {
		if r.ID == id {
			return r
		}
	}
	return nil
}

// RegionsByType returns all regions of the given type in detection order.
func (s *SystemState) RegionsByType(rt RegionType) []*ScreenRegion {
	var out []*ScreenRegion
	for _, r := range s.AllRegions {
		if r.RegionType == rt {
			out = append(out, r)
		}
	}
	return out
}

// ChildrenOf returns the regions whose parent is the given id, in detection
// order.
func (s *SystemState) ChildrenOf(id string) []*ScreenRegion {
	var out []*ScreenRegion
	for _, r := range s.AllRegions {
		if r.ParentID == id {
			out = append(out, r)
		}
	}
	return out
}
