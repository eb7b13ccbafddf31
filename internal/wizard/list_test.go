package wizard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitebski/dataset-wizard/pkg/models"
)

func selectedCount(view []models.SelectableItem) int {
	n := 0
	for _, item := range view {
		if item.IsSelected {
			n++
		}
	}
	return n
}

func TestFilteredView(t *testing.T) {
	l := NewSearchableList()
	l.SetItems([]string{"Sales", "marketing", "SALES_archive", "hr"})

	assert.Len(t, l.FilteredView(""), 4)

	view := l.FilteredView("sales")
	require.Len(t, view, 2)
	assert.Equal(t, "Sales", view[0].Label)
	assert.Equal(t, "SALES_archive", view[1].Label)
	assert.Equal(t, 2, view[1].Index)

	assert.Empty(t, l.FilteredView("nothing"))
}

func TestNavigateWraps(t *testing.T) {
	l := NewSearchableList()
	l.SetItems([]string{"a", "b", "c"})
	view := l.FilteredView("")

	item, offset, ok := l.Navigate(Up, view)
	require.True(t, ok)
	assert.Equal(t, "c", item.Label)
	assert.Equal(t, 2*RowHeight, offset)

	item, offset, _ = l.Navigate(Down, l.FilteredView(""))
	assert.Equal(t, "a", item.Label, "DOWN on the last item wraps to the first")
	assert.Equal(t, 0, offset)

	item, _, _ = l.Navigate(Up, l.FilteredView(""))
	assert.Equal(t, "c", item.Label, "UP on the first item wraps to the last")

	item, offset, _ = l.Navigate(Up, l.FilteredView(""))
	assert.Equal(t, "b", item.Label)
	assert.Equal(t, RowHeight, offset)

	l.ClearSelectionMarks()
	item, _, _ = l.Navigate(Down, l.FilteredView(""))
	assert.Equal(t, "a", item.Label, "DOWN with nothing selected picks the first item")
}

func TestNavigateKeepsSingleSelection(t *testing.T) {
	l := NewSearchableList()
	l.SetItems([]string{"a", "b", "c", "d"})

	dirs := []Direction{Down, Down, Up, Up, Up, Down, Down, Down, Down, Up}
	for i, dir := range dirs {
		view := l.FilteredView("")
		_, offset, ok := l.Navigate(dir, view)
		require.True(t, ok)
		assert.GreaterOrEqual(t, offset, 0)
		assert.Less(t, offset, len(view)*RowHeight)
		assert.Equal(t, 1, selectedCount(l.FilteredView("")), "step %d", i)
	}
}

func TestNavigateRestrictedToFilteredView(t *testing.T) {
	l := NewSearchableList()
	l.SetItems([]string{"orders", "users", "order_items", "payments"})

	view := l.FilteredView("order")
	item, _, _ := l.Navigate(Down, view)
	assert.Equal(t, "orders", item.Label)
	item, _, _ = l.Navigate(Down, l.FilteredView("order"))
	assert.Equal(t, "order_items", item.Label)
	item, _, _ = l.Navigate(Down, l.FilteredView("order"))
	assert.Equal(t, "orders", item.Label)

	// The selection is outside the new filter, so navigation starts over
	item, _, _ = l.Navigate(Down, l.FilteredView("pay"))
	assert.Equal(t, "payments", item.Label)
	assert.Equal(t, 1, selectedCount(l.FilteredView("")))
}

func TestNavigateEmptyViewIsNoop(t *testing.T) {
	l := NewSearchableList()
	_, _, ok := l.Navigate(Down, l.FilteredView(""))
	assert.False(t, ok)

	l.SetItems([]string{"a"})
	_, _, ok = l.Navigate(Up, l.FilteredView("zzz"))
	assert.False(t, ok)
	_, selected := l.Selected()
	assert.False(t, selected)
}

func TestActivateSelected(t *testing.T) {
	l := NewSearchableList()
	l.SetItems([]string{"a", "b"})

	_, ok := l.ActivateSelected(l.FilteredView(""))
	assert.False(t, ok, "nothing selected")

	l.Navigate(Down, l.FilteredView(""))
	l.Navigate(Down, l.FilteredView(""))
	item, ok := l.ActivateSelected(l.FilteredView(""))
	require.True(t, ok)
	assert.Equal(t, "b", item.Label)
}

func TestHover(t *testing.T) {
	l := NewSearchableList()
	l.SetItems([]string{"a", "b", "c"})
	view := l.FilteredView("")

	l.Hover(view, 1, true)
	item, ok := l.Selected()
	require.True(t, ok)
	assert.Equal(t, "b", item.Label)

	l.Hover(view, 2, true)
	assert.Equal(t, 1, selectedCount(l.FilteredView("")))

	l.Hover(view, 2, false)
	assert.Equal(t, 0, selectedCount(l.FilteredView("")))
}

func TestHoverIgnoredDuringKeyboardNavigation(t *testing.T) {
	l := NewSearchableList()
	l.SetItems([]string{"a", "b", "c"})

	l.Navigate(Down, l.FilteredView(""))
	l.Hover(l.FilteredView(""), 2, true)
	item, _ := l.Selected()
	assert.Equal(t, "a", item.Label)

	l.SetKeyboardActive(false)
	l.Hover(l.FilteredView(""), 2, true)
	item, _ = l.Selected()
	assert.Equal(t, "c", item.Label)
	assert.Equal(t, 1, selectedCount(l.FilteredView("")))
}

func TestSetItemsClearsSelection(t *testing.T) {
	l := NewSearchableList()
	l.SetItems([]string{"a", "b"})
	l.Navigate(Down, l.FilteredView(""))

	l.SetItems([]string{"x", "y"})
	assert.Equal(t, 0, selectedCount(l.FilteredView("")))
	assert.Equal(t, 2, l.Len())
}
