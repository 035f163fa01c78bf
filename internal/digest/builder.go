// File: internal/digest/builder.go

// Package digest renders sampled desktop state into the natural language
// summaries consumed by the agent backend. Rendering is deterministic: the
// same state and options always produce the same bytes, which is what lets
// the publishing loop suppress duplicate transmissions with a plain string
// compare.
package digest

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/xkilldash9x/neurodesk/api/schemas"
	"github.com/xkilldash9x/neurodesk/internal/config"
	"github.com/xkilldash9x/neurodesk/internal/region"
)

// EmptyStateMessage is rendered when the state yields no sections at all.
const EmptyStateMessage = "No system state available"

const (
	// visionPlaceholder is appended on request; no vision capability exists.
	visionPlaceholder = "[Vision analysis unavailable]"

	// nearTextLimit caps the near-mouse text excerpt, in runes.
	nearTextLimit = 100

	// minimalWindowCap bounds the window listing at the minimal level.
	minimalWindowCap = 5

	// detailedChildCap is the sub-region listing cap at detailed and above.
	detailedChildCap = 10
)

// DetailLevel selects how verbose a rendered digest is.
type DetailLevel string

const (
	DetailMinimal  DetailLevel = "minimal"
	DetailStandard DetailLevel = "standard"
	DetailDetailed DetailLevel = "detailed"
	DetailFull     DetailLevel = "full"
)

// ParseDetailLevel validates a wire-supplied detail level.
func ParseDetailLevel(s string) (DetailLevel, error) {
	switch level := DetailLevel(s); level {
	case DetailMinimal, DetailStandard, DetailDetailed, DetailFull:
		return level, nil
	default:
		return "", fmt.Errorf("unknown detail level %q", s)
	}
}

// Options control a single rendering pass.
type Options struct {
	// Detail defaults to DetailStandard when empty.
	Detail DetailLevel

	// IncludeOCR gates the OCR-derived content: the UI elements block and
	// the near-mouse text excerpt.
	IncludeOCR bool

	// IncludeVision appends the vision placeholder note.
	IncludeVision bool

	// MaxItemsPerCategory overrides the configured per-category listing
	// caps when positive.
	MaxItemsPerCategory int
}

// StandardOptions is what the periodic publishing loop renders with.
func StandardOptions() Options {
	return Options{Detail: DetailStandard, IncludeOCR: true}
}

// Builder renders SystemState snapshots into agent-facing text.
type Builder struct {
	cfg config.DigestConfig
}

// NewBuilder returns a Builder with the given listing caps.
func NewBuilder(cfg config.DigestConfig) *Builder {
	return &Builder{cfg: cfg}
}

// caps are the effective listing limits for one render.
type caps struct {
	windows  int
	buttons  int
	links    int
	text     int
	children int
	minText  int
}

func (b *Builder) resolveCaps(opts Options) caps {
	c := caps{
		windows:  b.cfg.MaxWindows,
		buttons:  b.cfg.MaxButtons,
		links:    b.cfg.MaxLinks,
		text:     b.cfg.MaxText,
		children: b.cfg.MaxChildren,
		minText:  b.cfg.MinTextLength,
	}
	if n := opts.MaxItemsPerCategory; n > 0 {
		c.windows, c.buttons, c.links, c.text = n, n, n, n
	}
	switch opts.Detail {
	case DetailMinimal:
		if c.windows > minimalWindowCap {
			c.windows = minimalWindowCap
		}
	case DetailDetailed:
		if c.children < detailedChildCap {
			c.children = detailedChildCap
		}
	case DetailFull:
		c.minText = 0
		c.children = detailedChildCap
		if opts.MaxItemsPerCategory > 0 {
			c.children = opts.MaxItemsPerCategory
		}
	}
	return c
}

// Build renders the state under the given options. Sections appear in a
// fixed order, each omitted when its source data is empty, separated by one
// blank line. A nil or entirely empty state renders EmptyStateMessage.
func (b *Builder) Build(state *schemas.SystemState, opts Options) string {
	if opts.Detail == "" {
		opts.Detail = DetailStandard
	}
	c := b.resolveCaps(opts)
	minimal := opts.Detail == DetailMinimal

	var sections []string
	add := func(s string) {
		if s != "" {
			sections = append(sections, s)
		}
	}

	if state != nil {
		add(b.screenSection(state, opts, minimal))
		if app := strings.TrimSpace(state.ActiveApplication); app != "" {
			add("Active Application: " + app)
		}
		if !minimal {
			add(censusSection(state.AllRegions))
			add(b.focusedSection(state, opts.Detail, c))
		}
		add(b.windowsSection(state, c))
		if !minimal && opts.IncludeOCR {
			add(b.elementsSection(state.TextElements, c))
		}
		if !minimal {
			add(actionsSection(state.AvailableActions))
			add(contextSection(state.ContextData))
			if opts.IncludeVision {
				add(visionPlaceholder)
			}
		}
	}

	if len(sections) == 0 {
		return EmptyStateMessage
	}
	return strings.Join(sections, "\n\n")
}

// screenSection covers resolution, mouse position and the near-mouse text
// excerpt. The excerpt is OCR-derived, so it follows the IncludeOCR gate.
func (b *Builder) screenSection(state *schemas.SystemState, opts Options, minimal bool) string {
	var lines []string
	if res := state.ScreenResolution; res != nil {
		lines = append(lines, fmt.Sprintf("Screen Resolution: %dx%d (coordinates: 0-%d, 0-%d)",
			res.Width, res.Height, res.Width-1, res.Height-1))
	}
	if pos := state.MousePosition; pos != nil {
		lines = append(lines, fmt.Sprintf("Mouse Position: (%d, %d)", pos.X, pos.Y))
		if !minimal && opts.IncludeOCR {
			if text := b.textNearMouse(state, *pos); text != "" {
				lines = append(lines, fmt.Sprintf("Text near mouse: \"%s\"", text))
			}
		}
	}
	return strings.Join(lines, "\n")
}

func (b *Builder) textNearMouse(state *schemas.SystemState, at schemas.Coordinates) string {
	near := region.TextNear(state, at, b.cfg.MouseTextRadius)
	if len(near) == 0 {
		return ""
	}
	parts := make([]string, 0, len(near))
	for _, el := range near {
		parts = append(parts, el.Text)
	}
	// Collapse runs of whitespace so the excerpt reads as one line.
	joined := strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
	return Clip(joined, nearTextLimit)
}

func censusSection(regions []*schemas.ScreenRegion) string {
	if len(regions) == 0 {
		return ""
	}
	counts := newOrderedCounts()
	for _, r := range regions {
		counts.add(string(r.RegionType))
	}
	lines := []string{fmt.Sprintf("Screen Regions (%d total):", len(regions))}
	for _, g := range counts.list {
		lines = append(lines, fmt.Sprintf("  - %s: %d", g.key, g.count))
	}
	return strings.Join(lines, "\n")
}

func (b *Builder) focusedSection(state *schemas.SystemState, level DetailLevel, c caps) string {
	focused := state.FocusedRegion
	if focused == nil {
		return ""
	}
	center := focused.Bounds.Center()
	lines := []string{
		fmt.Sprintf("Focused Window: %s (%s)", focused.Title, focused.RegionType),
		fmt.Sprintf("  Position: (%d, %d)", focused.Bounds.X, focused.Bounds.Y),
		fmt.Sprintf("  Size: %dx%d", focused.Bounds.Width, focused.Bounds.Height),
		fmt.Sprintf("  Center: (%d, %d)", center.X, center.Y),
	}
	if level == DetailDetailed || level == DetailFull {
		if attrs := regionAttributes(focused); attrs != "" {
			lines = append(lines, "  Attributes: "+attrs)
		}
	}
	children := state.ChildrenOf(focused.ID)
	if len(children) > 0 {
		lines = append(lines, fmt.Sprintf("  Contains %d sub-regions:", len(children)))
		shown := children
		if len(shown) > c.children {
			shown = shown[:c.children]
		}
		for _, child := range shown {
			title := child.Title
			if title == "" {
				title = string(child.RegionType)
			}
			cc := child.Bounds.Center()
			lines = append(lines, fmt.Sprintf("    - %s: center (%d, %d)", title, cc.X, cc.Y))
		}
		if rest := len(children) - c.children; rest > 0 {
			lines = append(lines, fmt.Sprintf("    ... and %d more", rest))
		}
	}
	return strings.Join(lines, "\n")
}

func regionAttributes(r *schemas.ScreenRegion) string {
	var attrs []string
	if r.Clickable {
		attrs = append(attrs, "clickable")
	}
	if r.Focusable {
		attrs = append(attrs, "focusable")
	}
	return strings.Join(attrs, ", ")
}

func (b *Builder) windowsSection(state *schemas.SystemState, c caps) string {
	windows := state.RegionsByType(schemas.RegionWindow)
	if len(windows) == 0 {
		return ""
	}
	lines := []string{fmt.Sprintf("Visible Windows (%d):", len(windows))}
	shown := windows
	if len(shown) > c.windows {
		shown = shown[:c.windows]
	}
	for i, win := range shown {
		marker := ""
		if win.IsFocused() {
			marker = " [FOCUSED]"
		}
		center := win.Bounds.Center()
		lines = append(lines,
			fmt.Sprintf("  %d. %s%s", i+1, Clip(win.Title, b.cfg.TitleTruncate), marker),
			fmt.Sprintf("     Position: (%d, %d), Size: %dx%d, Click center: (%d, %d)",
				win.Bounds.X, win.Bounds.Y, win.Bounds.Width, win.Bounds.Height, center.X, center.Y))
	}
	if rest := len(windows) - c.windows; rest > 0 {
		lines = append(lines, fmt.Sprintf("  ... and %d more windows", rest))
	}
	return strings.Join(lines, "\n")
}

// elementsSection lists OCR-detected elements grouped by inferred role.
// Buttons and links keep detection order; visible text is filtered by the
// minimum length, then ordered most confident first. Group headers carry
// the full group total even when the listing below them is capped; for
// visible text that total is the count surviving the length filter.
func (b *Builder) elementsSection(elements []schemas.TextElement, c caps) string {
	if len(elements) == 0 {
		return ""
	}
	var buttons, links, texts []schemas.TextElement
	for _, el := range elements {
		switch el.ElementType {
		case schemas.ElementButton:
			buttons = append(buttons, el)
		case schemas.ElementLink:
			links = append(links, el)
		case schemas.ElementText:
			texts = append(texts, el)
		}
	}

	lines := []string{fmt.Sprintf("UI Elements Detected: %d total", len(elements))}
	if len(buttons) > 0 {
		lines = append(lines, "", fmt.Sprintf("Buttons (%d):", len(buttons)))
		lines = append(lines, b.elementLines(buttons, c.buttons)...)
	}
	if len(links) > 0 {
		lines = append(lines, "", fmt.Sprintf("Links (%d):", len(links)))
		lines = append(lines, b.elementLines(links, c.links)...)
	}
	kept := make([]schemas.TextElement, 0, len(texts))
	for _, el := range texts {
		if utf8.RuneCountInString(el.Text) > c.minText {
			kept = append(kept, el)
		}
	}
	if len(kept) > 0 {
		sort.SliceStable(kept, func(i, j int) bool { return kept[i].Confidence > kept[j].Confidence })
		lines = append(lines, "", fmt.Sprintf("Visible Text (%d items):", len(kept)))
		lines = append(lines, b.elementLines(kept, c.text)...)
	}
	return strings.Join(lines, "\n")
}

func (b *Builder) elementLines(elements []schemas.TextElement, limit int) []string {
	if len(elements) > limit {
		elements = elements[:limit]
	}
	out := make([]string, 0, len(elements))
	for _, el := range elements {
		out = append(out, fmt.Sprintf("  - \"%s\" at (%d, %d)",
			Clip(el.Text, b.cfg.ValueTruncate), el.CenterX, el.CenterY))
	}
	return out
}

func actionsSection(actions []schemas.AgentAction) string {
	if len(actions) == 0 {
		return ""
	}
	counts := newOrderedCounts()
	for i := range actions {
		counts.add(actions[i].TypePrefix())
	}
	lines := []string{fmt.Sprintf("Available Actions: %d total", len(actions))}
	for _, g := range counts.list {
		lines = append(lines, fmt.Sprintf("  - %d %s actions", g.count, g.key))
	}
	return strings.Join(lines, "\n")
}

func contextSection(data []schemas.ContextDatum) string {
	if len(data) == 0 {
		return ""
	}
	counts := newOrderedCounts()
	for _, d := range data {
		counts.add(string(d.ContextType))
	}
	lines := []string{"Context Data:"}
	for _, g := range counts.list {
		lines = append(lines, fmt.Sprintf("  - %s: %d items", g.key, g.count))
	}
	return strings.Join(lines, "\n")
}

// orderedCounts tallies string keys in first-seen order, which keeps group
// listings stable across renders of the same state.
type orderedCounts struct {
	index map[string]int
	list  []keyCount
}

type keyCount struct {
	key   string
	count int
}

func newOrderedCounts() *orderedCounts {
	return &orderedCounts{index: make(map[string]int)}
}

func (o *orderedCounts) add(key string) {
	if i, ok := o.index[key]; ok {
		o.list[i].count++
		return
	}
	o.index[key] = len(o.list)
	o.list = append(o.list, keyCount{key: key, count: 1})
}

// Clip hard-cuts s at limit runes. No ellipsis is appended; a limit of
// zero or less means no cut.
func Clip(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}
