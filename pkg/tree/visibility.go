package tree

import "github.com/mattsolo1/grove-shows/pkg/models"

// PlaceholderPolicy decides whether a placeholder episode belongs in the
// tree. Implementations must be pure; after changing the answer callers
// hand the engine a new policy via SetPolicy.
type PlaceholderPolicy interface {
	IsPlaceholderVisible(ep *models.Episode) bool
}

// VisibilityPolicy toggles placeholders per category.
type VisibilityPolicy struct {
	ShowMissing  bool `mapstructure:"show_missing"`
	ShowSpecials bool `mapstructure:"show_specials"`
	ShowUnaired  bool `mapstructure:"show_unaired"`
}

// IsPlaceholderVisible answers for placeholders only; real episodes are
// never hidden by the policy and report true.
func (p VisibilityPolicy) IsPlaceholderVisible(ep *models.Episode) bool {
	if !ep.Placeholder {
		return true
	}
	switch ep.Category {
	case models.CategoryMissing:
		return p.ShowMissing
	case models.CategorySpecial:
		return p.ShowSpecials
	case models.CategoryUnaired:
		return p.ShowUnaired
	default:
		return false
	}
}

// HideAll is the policy that shows no placeholders.
var HideAll = VisibilityPolicy{}
