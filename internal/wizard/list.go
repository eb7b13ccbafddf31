package wizard

import (
	"strings"

	"github.com/vitebski/dataset-wizard/pkg/models"
)

// RowHeight is the height of one list row used to compute scroll offsets
const RowHeight = 32

// Direction is a keyboard navigation direction
type Direction int

const (
	Up Direction = iota
	Down
)

// SearchableList is a filterable single-select list.
//
// The selection is held as one index into the backing items, so a view never
// reports more than one selected item. Views are snapshots: callers pass back the
// view they displayed and positions refer to it
type SearchableList struct {
	items          []models.SelectableItem
	selected       int
	keyboardActive bool
}

// NewSearchableList creates an empty list
func NewSearchableList() *SearchableList {
	return &SearchableList{selected: -1}
}

// SetItems replaces the backing items. Nothing is selected afterwards
func (l *SearchableList) SetItems(labels []string) {
	l.items = make([]models.SelectableItem, len(labels))
	for i, label := range labels {
		l.items[i] = models.SelectableItem{Index: i, Label: label}
	}
	l.selected = -1
}

// Len returns the number of backing items
func (l *SearchableList) Len() int {
	return len(l.items)
}

// FilteredView returns the items whose label contains search, ignoring case
func (l *SearchableList) FilteredView(search string) []models.SelectableItem {
	needle := strings.ToLower(search)
	view := make([]models.SelectableItem, 0, len(l.items))
	for _, item := range l.items {
		if needle != "" && !strings.Contains(strings.ToLower(item.Label), needle) {
			continue
		}
		item.IsSelected = item.Index == l.selected
		view = append(view, item)
	}
	return view
}

// Selected returns the selected item, if any
func (l *SearchableList) Selected() (models.SelectableItem, bool) {
	if l.selected < 0 || l.selected >= len(l.items) {
		return models.SelectableItem{}, false
	}
	item := l.items[l.selected]
	item.IsSelected = true
	return item, true
}

// Navigate moves the selection within view and wraps at both ends. It returns the
// newly selected item and the scroll offset that brings it into view.
// An empty view is a no-op
func (l *SearchableList) Navigate(dir Direction, view []models.SelectableItem) (models.SelectableItem, int, bool) {
	if len(view) == 0 {
		return models.SelectableItem{}, 0, false
	}
	l.keyboardActive = true

	last := len(view) - 1
	pos := l.positionIn(view)

	var next int
	switch {
	case pos == -1 && dir == Up:
		next = last
	case pos == -1:
		next = 0
	case dir == Up && pos == 0:
		next = last
	case dir == Down && pos == last:
		next = 0
	case dir == Up:
		next = pos - 1
	default:
		next = pos + 1
	}

	l.selected = view[next].Index
	item := view[next]
	item.IsSelected = true
	return item, next * RowHeight, true
}

// ActivateSelected returns the selected item when it is part of view
func (l *SearchableList) ActivateSelected(view []models.SelectableItem) (models.SelectableItem, bool) {
	pos := l.positionIn(view)
	if pos == -1 {
		return models.SelectableItem{}, false
	}
	item := view[pos]
	item.IsSelected = true
	return item, true
}

// Hover marks the item at pos on enter and clears every mark on leave.
// Ignored while keyboard navigation is active
func (l *SearchableList) Hover(view []models.SelectableItem, pos int, enter bool) {
	if l.keyboardActive {
		return
	}
	if !enter {
		l.selected = -1
		return
	}
	if pos < 0 || pos >= len(view) {
		return
	}
	l.selected = view[pos].Index
}

// SetKeyboardActive tells the list whether keyboard navigation is in flight
func (l *SearchableList) SetKeyboardActive(active bool) {
	l.keyboardActive = active
}

// ClearSelectionMarks unselects everything
func (l *SearchableList) ClearSelectionMarks() {
	l.selected = -1
	l.keyboardActive = false
}

func (l *SearchableList) positionIn(view []models.SelectableItem) int {
	if l.selected < 0 {
		return -1
	}
	for i, item := range view {
		if item.Index == l.selected {
			return i
		}
	}
	return -1
}
