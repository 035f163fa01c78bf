// File: internal/bridge/queries.go
package bridge

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/neurodesk/api/schemas"
	"github.com/xkilldash9x/neurodesk/internal/digest"
)

// msgNoCache is returned when a pagination query arrives before the first
// successful context transmit has populated the cache.
const msgNoCache = "No screen data cached yet - context sampling has not completed a cycle"

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report wire field names in validation errors, not Go struct names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Query parameters use pointer fields so an absent key is distinguishable
// from a zero value: absent picks the configured default, while a value
// outside the accepted range is rejected outright.

type getMoreTextParams struct {
	Offset     *int    `json:"offset" validate:"omitempty,min=0"`
	Limit      *int    `json:"limit" validate:"omitempty,min=1"`
	FilterType *string `json:"filter_type" validate:"omitempty,oneof=all buttons links text inputs"`
}

type getMoreWindowsParams struct {
	Offset           *int  `json:"offset" validate:"omitempty,min=0"`
	Limit            *int  `json:"limit" validate:"omitempty,min=1"`
	IncludeMinimized *bool `json:"include_minimized"`
}

type refreshContextParams struct {
	DetailLevel         *string `json:"detail_level"`
	IncludeOCR          *bool   `json:"include_ocr"`
	IncludeVision       *bool   `json:"include_vision"`
	MaxItemsPerCategory *int    `json:"max_items_per_category"`
}

// decodeParams round-trips the loose parameter map into a typed struct and
// applies its declarative rules.
func decodeParams(raw map[string]interface{}, into interface{}) error {
	buf, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParameter, err)
	}
	if err := json.Unmarshal(buf, into); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParameter, err)
	}
	if err := validate.Struct(into); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidParameter, validationDetail(err))
	}
	return nil
}

// validationDetail flattens the first field error into a sentence the agent
// can act on.
func validationDetail(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err.Error()
	}
	fe := fieldErrs[0]
	switch fe.Tag() {
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

func (c *Coordinator) rejectQuery(action string, err error) schemas.ActionResult {
	c.logger.Warn("query parameters rejected",
		zap.String("action", action),
		zap.String("code", string(classify(err))),
		zap.Error(err))
	return failure(err.Error())
}

func success(message string) schemas.ActionResult {
	return schemas.ActionResult{Success: true, Message: message}
}

func failure(message string) schemas.ActionResult {
	return schemas.ActionResult{Success: false, Message: message}
}

// elementFilter maps wire filter names onto element types. "all" means no
// filter; validation guarantees no other value reaches here.
func elementFilter(filterType string) schemas.ElementType {
	switch filterType {
	case "buttons":
		return schemas.ElementButton
	case "links":
		return schemas.ElementLink
	case "text":
		return schemas.ElementText
	case "inputs":
		return schemas.ElementInput
	default:
		return ""
	}
}

// GetMoreText pages through the text elements cached at the last transmit.
// It never triggers a resample, so indices stay stable across calls until
// the next context update goes out.
func (c *Coordinator) GetMoreText(params map[string]interface{}) schemas.ActionResult {
	var p getMoreTextParams
	if err := decodeParams(params, &p); err != nil {
		return c.rejectQuery("get_more_text", err)
	}

	offset := 0
	if p.Offset != nil {
		offset = *p.Offset
	}
	limit := c.limits.TextLimitDefault
	if p.Limit != nil {
		if *p.Limit > c.limits.TextLimitMax {
			return c.rejectQuery("get_more_text",
				fmt.Errorf("%w: limit must be at most %d", ErrInvalidParameter, c.limits.TextLimitMax))
		}
		limit = *p.Limit
	}
	filterType := "all"
	if p.FilterType != nil {
		filterType = *p.FilterType
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.cache.populated {
		return failure(msgNoCache)
	}

	elements := c.cache.filteredElements(elementFilter(filterType))
	n := len(elements)
	if offset >= n {
		return failure(fmt.Sprintf("No more items: offset %d is beyond the %d cached elements", offset, n))
	}
	end := offset + limit
	if end > n {
		end = n
	}

	lines := make([]string, 0, end-offset+2)
	lines = append(lines, fmt.Sprintf("Text elements (%s): showing %d-%d of %d", filterType, offset+1, end, n))
	for i, el := range elements[offset:end] {
		lines = append(lines, fmt.Sprintf("%d. [%s] \"%s\" at (%d, %d)",
			offset+i+1, el.ElementType, digest.Clip(el.Text, c.digestCfg.ValueTruncate), el.CenterX, el.CenterY))
	}
	if end < n {
		lines = append(lines, fmt.Sprintf("... and %d more, use offset=%d", n-end, end))
	}

	c.logger.Debug("text page served",
		zap.String("filter", filterType),
		zap.Int("offset", offset),
		zap.Int("returned", end-offset),
		zap.Int("total", n))
	return success(strings.Join(lines, "\n"))
}

// GetMoreWindows pages through the window regions cached at the last
// transmit.
func (c *Coordinator) GetMoreWindows(params map[string]interface{}) schemas.ActionResult {
	var p getMoreWindowsParams
	if err := decodeParams(params, &p); err != nil {
		return c.rejectQuery("get_more_windows", err)
	}

	offset := 0
	if p.Offset != nil {
		offset = *p.Offset
	}
	limit := c.limits.WindowLimitDefault
	if p.Limit != nil {
		if *p.Limit > c.limits.WindowLimitMax {
			return c.rejectQuery("get_more_windows",
				fmt.Errorf("%w: limit must be at most %d", ErrInvalidParameter, c.limits.WindowLimitMax))
		}
		limit = *p.Limit
	}
	includeMinimized := false
	if p.IncludeMinimized != nil {
		includeMinimized = *p.IncludeMinimized
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.cache.populated {
		return failure(msgNoCache)
	}

	windows := c.cache.windowList(includeMinimized)
	n := len(windows)
	if offset >= n {
		return failure(fmt.Sprintf("No more items: offset %d is beyond the %d cached windows", offset, n))
	}
	end := offset + limit
	if end > n {
		end = n
	}

	lines := make([]string, 0, end-offset+2)
	lines = append(lines, fmt.Sprintf("Windows: showing %d-%d of %d", offset+1, end, n))
	for i, win := range windows[offset:end] {
		marker := ""
		if win.IsFocused() {
			marker = " [FOCUSED]"
		}
		center := win.Bounds.Center()
		lines = append(lines, fmt.Sprintf("%d. \"%s\"%s at (%d, %d) size %dx%d, click center (%d, %d)",
			offset+i+1, digest.Clip(win.Title, c.digestCfg.TitleTruncate), marker,
			win.Bounds.X, win.Bounds.Y, win.Bounds.Width, win.Bounds.Height, center.X, center.Y))
	}
	if end < n {
		lines = append(lines, fmt.Sprintf("... and %d more windows, use offset=%d", n-end, end))
	}

	c.logger.Debug("window page served",
		zap.Bool("include_minimized", includeMinimized),
		zap.Int("offset", offset),
		zap.Int("returned", end-offset),
		zap.Int("total", n))
	return success(strings.Join(lines, "\n"))
}

// RefreshContext samples the desktop immediately and publishes a digest
// rendered with the requested options, bypassing the duplicate filter.
func (c *Coordinator) RefreshContext(ctx context.Context, params map[string]interface{}) schemas.ActionResult {
	var p refreshContextParams
	if err := decodeParams(params, &p); err != nil {
		return c.rejectQuery("refresh_context", err)
	}

	level := digest.DetailStandard
	if p.DetailLevel != nil {
		parsed, err := digest.ParseDetailLevel(*p.DetailLevel)
		if err != nil {
			return c.rejectQuery("refresh_context", fmt.Errorf("%w: %v", ErrInvalidParameter, err))
		}
		level = parsed
	}
	includeOCR := true
	if p.IncludeOCR != nil {
		includeOCR = *p.IncludeOCR
	}
	includeVision := false
	if p.IncludeVision != nil {
		includeVision = *p.IncludeVision
	}
	maxItems := c.bounds.MaxItemsDefault
	if p.MaxItemsPerCategory != nil {
		if *p.MaxItemsPerCategory < c.bounds.MaxItemsMin || *p.MaxItemsPerCategory > c.bounds.MaxItemsMax {
			return c.rejectQuery("refresh_context",
				fmt.Errorf("%w: max_items_per_category must be within [%d, %d]",
					ErrInvalidParameter, c.bounds.MaxItemsMin, c.bounds.MaxItemsMax))
		}
		maxItems = *p.MaxItemsPerCategory
	}

	count, err := c.RefreshNow(ctx, digest.Options{
		Detail:              level,
		IncludeOCR:          includeOCR,
		IncludeVision:       includeVision,
		MaxItemsPerCategory: maxItems,
	})
	if err != nil {
		c.logger.Error("forced refresh failed",
			zap.String("code", string(classify(err))),
			zap.Error(err))
		return failure(fmt.Sprintf("Failed to refresh context: %v", err))
	}
	return success(fmt.Sprintf("Context refreshed (%s detail): %d UI elements detected", level, count))
}
