// File: internal/bridge/cache.go
package bridge

import (
	"time"

	"github.com/xkilldash9x/neurodesk/api/schemas"
)

// paginationCache mirrors the untruncated element and window listings of
// the most recently transmitted snapshot. Pagination queries page through
// this cache instead of resampling, so successive pages describe the same
// screen the agent last saw. Access is guarded by the coordinator's cycle
// mutex; the cache itself carries no lock.
type paginationCache struct {
	stateID    string
	capturedAt time.Time
	elements   []schemas.TextElement
	windows    []*schemas.ScreenRegion
	populated  bool
}

// refresh replaces the cached listings with copies from the given snapshot.
func (p *paginationCache) refresh(state *schemas.SystemState) {
	p.stateID = state.ID
	p.capturedAt = state.Timestamp
	p.elements = append([]schemas.TextElement(nil), state.TextElements...)
	p.windows = append([]*schemas.ScreenRegion(nil), state.RegionsByType(schemas.RegionWindow)...)
	p.populated = true
}

// filteredElements returns the cached elements of the given type in
// detection order. An empty type means no filter.
func (p *paginationCache) filteredElements(t schemas.ElementType) []schemas.TextElement {
	if t == "" {
		return p.elements
	}
	var out []schemas.TextElement
	for _, el := range p.elements {
		if el.ElementType == t {
			out = append(out, el)
		}
	}
	return out
}

// windowList returns the cached window regions. Minimized windows are
// dropped unless requested; windows whose provider never exposed a
// minimized state always pass the filter.
func (p *paginationCache) windowList(includeMinimized bool) []*schemas.ScreenRegion {
	if includeMinimized {
		return p.windows
	}
	var out []*schemas.ScreenRegion
	for _, w := range p.windows {
		if minimized, known := w.IsMinimized(); known && minimized {
			continue
		}
		out = append(out, w)
	}
	return out
}
