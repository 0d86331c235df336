package core

// FallbackColor is used for every category without a fixed color, including
// user-defined and deleted ones.
const FallbackColor = "#8b5cf6"

var categoryColors = map[string]string{
	"생활비":     "#3b82f6",
	"식비":      "#ef4444",
	"자동차 유지비": "#f59e0b",
	"여가생활":    "#10b981",
	"저축 및 투자": "#6366f1",
	"기타":      "#94a3b8",
}

// ColorOf returns the display color for a category.
func ColorOf(category string) string {
	if c, ok := categoryColors[category]; ok {
		return c
	}
	return FallbackColor
}
