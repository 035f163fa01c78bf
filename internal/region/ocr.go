// File: internal/region/ocr.go
package region

import (
	"math"
	"sort"
	"strings"

	"github.com/xkilldash9x/neurodesk/api/schemas"
)

// buttonKeywords mark text that almost certainly labels a pressable control.
var buttonKeywords = []string{
	"click", "button", "submit", "ok", "cancel", "save", "delete",
	"subscribe", "like", "share", "comment", "play", "pause",
}

// classifyElement infers the element type from text content first, geometry
// second. Order matters: a "Subscribe" label in link-ish geometry is still a
// button.
func classifyElement(el schemas.TextElement) schemas.ElementType {
	lower := strings.ToLower(el.Text)

	for _, kw := range buttonKeywords {
		if strings.Contains(lower, kw) {
			return schemas.ElementButton
		}
	}

	if strings.HasPrefix(lower, "http") || strings.Contains(lower, ".com") || strings.Contains(lower, ".org") {
		return schemas.ElementLink
	}

	w, h := el.Bounds.Width, el.Bounds.Height
	if w > 3*h && h < 40 {
		return schemas.ElementInput
	}
	if w > 50 && w < 200 && h > 20 && h < 60 {
		return schemas.ElementButton
	}
	return schemas.ElementText
}

// classifyElements assigns element types in place, preserving detection order,
// and fills missing centers from the bounds.
func classifyElements(elements []schemas.TextElement) []schemas.TextElement {
	for i := range elements {
		if elements[i].CenterX == 0 && elements[i].CenterY == 0 {
			center := elements[i].Bounds.Center()
			elements[i].CenterX = center.X
			elements[i].CenterY = center.Y
		}
		elements[i].ElementType = classifyElement(elements[i])
	}
	return elements
}

// TextNear returns the elements whose centers lie within radius of p,
// nearest first. Ties keep detection order.
func TextNear(state *schemas.SystemState, p schemas.Coordinates, radius int) []schemas.TextElement {
	if state == nil || radius < 0 {
		return nil
	}

	type scored struct {
		el   schemas.TextElement
		dist float64
	}

	r := float64(radius)
	var hits []scored
	for _, el := range state.TextElements {
		dx := float64(el.CenterX - p.X)
		dy := float64(el.CenterY - p.Y)
		d := math.Sqrt(dx*dx + dy*dy)
		if d <= r {
			hits = append(hits, scored{el: el, dist: d})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].dist < hits[j].dist })

	out := make([]schemas.TextElement, len(hits))
	for i, h := range hits {
		out[i] = h.el
	}
	return out
}
