// Package meal 定义餐别以及按时段解析当前餐别
package meal

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Type 餐别
type Type string

const (
	Breakfast Type = "breakfast"
	Lunch     Type = "lunch"
	Dinner    Type = "dinner"
	Snack     Type = "snack"
)

// Priority 解析顺序，时段重叠时取第一个命中的
var Priority = []Type{Breakfast, Lunch, Dinner, Snack}

// Valid 是否为已知餐别
func (t Type) Valid() bool {
	switch t {
	case Breakfast, Lunch, Dinner, Snack:
		return true
	}
	return false
}

// ParseType 解析餐别字符串，大小写不敏感
func ParseType(s string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown meal type %q", s)
	}
	return t, nil
}

// Window 一个餐别的时段，HH:MM，首尾都包含
type Window struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Windows 餐别 -> 时段
type Windows map[Type]Window

// DefaultWindows 租户未配置或配置读取失败时使用
func DefaultWindows() Windows {
	return Windows{
		Breakfast: {Start: "07:00", End: "10:00"},
		Lunch:     {Start: "12:00", End: "15:00"},
		Dinner:    {Start: "19:00", End: "22:00"},
	}
}

// parseClock HH:MM -> 当天分钟数
func parseClock(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time %q, want HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return h*60 + m, nil
}

// bounds 返回时段的起止分钟数
func (w Window) bounds() (int, int, error) {
	start, err := parseClock(w.Start)
	if err != nil {
		return 0, 0, err
	}
	end, err := parseClock(w.End)
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

// Contains 判断分钟数是否落在时段内；start > end 视为跨零点
func (w Window) Contains(minute int) bool {
	start, end, err := w.bounds()
	if err != nil {
		return false
	}
	if start <= end {
		return minute >= start && minute <= end
	}
	return minute >= start || minute <= end
}

// Resolve 返回 now (按其自身时区的钟点) 所在的餐别
// 按 Priority 顺序取第一个命中的时段，都不命中返回 false
func Resolve(now time.Time, windows Windows) (Type, bool) {
	minute := now.Hour()*60 + now.Minute()
	for _, t := range Priority {
		w, ok := windows[t]
		if !ok {
			continue
		}
		if w.Contains(minute) {
			return t, true
		}
	}
	return "", false
}

var ErrOverlap = errors.New("meal windows overlap")

// ValidateWindows 保存配置时校验：格式合法、餐别已知、时段互不重叠
func ValidateWindows(windows Windows) error {
	type span struct {
		t          Type
		start, end int
	}
	var spans []span
	for t, w := range windows {
		if !t.Valid() {
			return fmt.Errorf("unknown meal type %q", t)
		}
		start, end, err := w.bounds()
		if err != nil {
			return fmt.Errorf("%s: %w", t, err)
		}
		if start <= end {
			spans = append(spans, span{t, start, end})
		} else {
			// 跨零点拆成两段
			spans = append(spans, span{t, start, 24*60 - 1}, span{t, 0, end})
		}
	}

	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })
	for i := 1; i < len(spans); i++ {
		prev, cur := spans[i-1], spans[i]
		if prev.t != cur.t && cur.start <= prev.end {
			return fmt.Errorf("%w: %s and %s", ErrOverlap, prev.t, cur.t)
		}
	}
	return nil
}
