package ratelimit

import "time"

// Category names a class of rate-limited action.
type Category string

const (
	CategoryVote   Category = "vote"
	CategorySubmit Category = "submit"
	CategoryEmail  Category = "email"
)

// CategoryConfig is the quota for one category.
type CategoryConfig struct {
	Max    int
	Window time.Duration
}

// CategoryInfo pairs a category with its quota for listings.
type CategoryInfo struct {
	Category Category      `json:"category" yaml:"category"`
	Max      int           `json:"max" yaml:"max"`
	Window   time.Duration `json:"window" yaml:"window"`
}

var categoryOrder = []Category{CategoryVote, CategorySubmit, CategoryEmail}

var categoryTable = map[Category]CategoryConfig{
	CategoryVote:   {Max: 30, Window: 60 * time.Second},
	CategorySubmit: {Max: 3, Window: 60 * time.Second},
	CategoryEmail:  {Max: 5, Window: 60 * time.Second},
}

// Lookup returns the quota for a category. Unknown categories report false.
func Lookup(category Category) (CategoryConfig, bool) {
	cfg, ok := categoryTable[category]
	return cfg, ok
}

// Categories returns the fixed category table in a stable order.
func Categories() []CategoryInfo {
	infos := make([]CategoryInfo, 0, len(categoryOrder))
	for _, c := range categoryOrder {
		cfg := categoryTable[c]
		infos = append(infos, CategoryInfo{Category: c, Max: cfg.Max, Window: cfg.Window})
	}
	return infos
}
