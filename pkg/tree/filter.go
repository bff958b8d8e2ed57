package tree

import (
	"github.com/mattsolo1/grove-shows/pkg/models"
	"github.com/mattsolo1/grove-shows/pkg/textfold"
)

// FilterFields selects which node fields the text filter looks at.
type FilterFields struct {
	Label         bool `mapstructure:"label"`
	Title         bool `mapstructure:"title"`
	OriginalTitle bool `mapstructure:"original_title"`
	Note          bool `mapstructure:"note"`
}

// AllFields enables every field.
var AllFields = FilterFields{Label: true, Title: true, OriginalTitle: true, Note: true}

// TextFilter decides which nodes stay visible for a filter text.
//
// A node is accepted when one of its enabled fields contains the text, when
// any descendant is accepted, or when an ancestor's own fields contain the
// text. The ancestor check looks at direct fields only: a leaf is not kept
// because a sibling matched.
type TextFilter struct {
	engine *Engine
	fields FilterFields
	text   string
	needle string
}

// NewTextFilter creates a filter that walks the tree through engine.
func NewTextFilter(engine *Engine, fields FilterFields) *TextFilter {
	return &TextFilter{engine: engine, fields: fields}
}

// SetText sets the filter text. Empty text accepts everything.
func (f *TextFilter) SetText(text string) {
	f.text = text
	f.needle = textfold.Fold(text)
}

// Text returns the filter text as set.
func (f *TextFilter) Text() string { return f.text }

// SetFields changes which fields participate.
func (f *TextFilter) SetFields(fields FilterFields) { f.fields = fields }

// Fields returns the participating fields.
func (f *TextFilter) Fields() FilterFields { return f.fields }

// Accept reports whether n passes the filter.
func (f *TextFilter) Accept(n *Node) bool {
	if f.needle == "" || n == nil || n.IsRoot() {
		return true
	}
	if f.acceptSubtree(n) {
		return true
	}
	for p := f.engine.Parent(n); p != nil && !p.IsRoot(); p = f.engine.Parent(p) {
		if f.matches(p) {
			return true
		}
	}
	return false
}

func (f *TextFilter) acceptSubtree(n *Node) bool {
	if f.matches(n) {
		return true
	}
	for _, child := range f.engine.Children(n) {
		if f.acceptSubtree(child) {
			return true
		}
	}
	return false
}

// matches checks the node's own enabled fields.
func (f *TextFilter) matches(n *Node) bool {
	for _, s := range f.candidates(n) {
		if textfold.Contains(s, f.needle) {
			return true
		}
	}
	return false
}

func (f *TextFilter) candidates(n *Node) []string {
	var out []string
	if f.fields.Label {
		out = append(out, n.Label())
	}
	switch item := n.item.(type) {
	case *models.Show:
		out = f.appendText(out, item.Title, item.OriginalTitle, item.Note)
	case *models.Episode:
		out = f.appendText(out, item.Title, item.OriginalTitle, item.Note)
	}
	return out
}

func (f *TextFilter) appendText(out []string, title, original, note string) []string {
	if f.fields.Title {
		out = append(out, title)
	}
	if f.fields.OriginalTitle {
		out = append(out, original)
	}
	if f.fields.Note {
		out = append(out, note)
	}
	return out
}
