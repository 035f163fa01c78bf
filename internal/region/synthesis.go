// File: internal/region/synthesis.go
package region

import (
	"fmt"
	"strings"
	"time"

	"github.com/xkilldash9x/neurodesk/api/schemas"
)

// clickEstimatedDuration is the agent-facing estimate for a single click.
const clickEstimatedDuration = 0.5

// appActions suggests application-specific shortcuts keyed by lower-cased
// process name. The parameter payloads mirror the hotkeys the automation
// server understands.
var appActions = map[string][]schemas.AgentAction{
	"notepad.exe": {
		{Name: "save_file", Description: "Save the current file", Parameters: map[string]interface{}{"hotkey": []string{"ctrl", "s"}}},
		{Name: "open_file", Description: "Open a file", Parameters: map[string]interface{}{"hotkey": []string{"ctrl", "o"}}},
		{Name: "find_text", Description: "Find text in document", Parameters: map[string]interface{}{"hotkey": []string{"ctrl", "f"}}},
	},
	"chrome.exe": {
		{Name: "new_tab", Description: "Open new tab", Parameters: map[string]interface{}{"hotkey": []string{"ctrl", "t"}}},
		{Name: "close_tab", Description: "Close current tab", Parameters: map[string]interface{}{"hotkey": []string{"ctrl", "w"}}},
		{Name: "refresh", Description: "Refresh page", Parameters: map[string]interface{}{"key": "F5"}},
	},
	"code.exe": {
		{Name: "command_palette", Description: "Open the command palette", Parameters: map[string]interface{}{"hotkey": []string{"ctrl", "shift", "p"}}},
		{Name: "save_all", Description: "Save all open files", Parameters: map[string]interface{}{"hotkey": []string{"ctrl", "k", "s"}}},
	},
	"explorer.exe": {
		{Name: "address_bar", Description: "Focus the address bar", Parameters: map[string]interface{}{"hotkey": []string{"alt", "d"}}},
		{Name: "new_folder", Description: "Create a new folder", Parameters: map[string]interface{}{"hotkey": []string{"ctrl", "shift", "n"}}},
	},
}

// synthesizeActions builds the per-snapshot action list: one click action per
// clickable region plus the suggestions for the active application.
func synthesizeActions(regions []*schemas.ScreenRegion, activeApp string) []schemas.AgentAction {
	var actions []schemas.AgentAction

	for _, r := range regions {
		if !r.Clickable {
			continue
		}
		target := r.Title
		if target == "" {
			target = string(r.RegionType)
		}
		center := r.Bounds.Center()
		actions = append(actions, schemas.AgentAction{
			Name:              "click_" + r.ID,
			Description:       fmt.Sprintf("Click on %s", target),
			Parameters:        map[string]interface{}{"x": center.X, "y": center.Y},
			TargetRegionID:    r.ID,
			EstimatedDuration: clickEstimatedDuration,
			Reversible:        true,
		})
	}

	if activeApp != "" {
		actions = append(actions, appActions[strings.ToLower(activeApp)]...)
	}
	return actions
}

// synthesizeContext derives the per-snapshot context data:
// a system_state census, a visual datum when text was recognized, and an
// interactive datum over the clickable surface.
func synthesizeContext(
	regions []*schemas.ScreenRegion,
	elements []schemas.TextElement,
	activeApp string,
	resolution *schemas.Resolution,
	placeholder bool,
	now time.Time,
) []schemas.ContextDatum {
	var out []schemas.ContextDatum

	census := map[string]interface{}{
		"region_count":       len(regions),
		"window_count":       countByType(regions, schemas.RegionWindow),
		"active_application": activeApp,
	}
	if resolution != nil {
		census["screen_resolution"] = fmt.Sprintf("%dx%d", resolution.Width, resolution.Height)
	}
	out = append(out, schemas.ContextDatum{
		ContextType: schemas.ContextSystemState,
		Timestamp:   now,
		Data:        census,
		Confidence:  0.9,
		Source:      "sampler",
		Priority:    schemas.PriorityMedium,
	})

	if len(elements) > 0 {
		types := map[string]interface{}{}
		for _, el := range elements {
			key := string(el.ElementType)
			if n, ok := types[key].(int); ok {
				types[key] = n + 1
			} else {
				types[key] = 1
			}
		}
		out = append(out, schemas.ContextDatum{
			ContextType: schemas.ContextVisual,
			Timestamp:   now,
			Data: map[string]interface{}{
				"element_count":       len(elements),
				"element_types":       types,
				"capture_placeholder": placeholder,
			},
			Confidence: 0.8,
			Source:     "sampler",
			Priority:   schemas.PriorityMedium,
		})
	}

	clickable := 0
	focusable := 0
	for _, r := range regions {
		if r.Clickable {
			clickable++
		}
		if r.Focusable {
			focusable++
		}
	}
	out = append(out, schemas.ContextDatum{
		ContextType: schemas.ContextInteractive,
		Timestamp:   now,
		Data: map[string]interface{}{
			"clickable_regions": clickable,
			"focus_candidates":  focusable,
		},
		Confidence: 0.9,
		Source:     "sampler",
		Priority:   schemas.PriorityHigh,
	})

	return out
}

func countByType(regions []*schemas.ScreenRegion, rt schemas.RegionType) int {
	n := 0
	for _, r := range regions {
		if r.RegionType == rt {
			n++
		}
	}
	return n
}
