package filter

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestList_AddRemove(t *testing.T) {
	t.Parallel()

	var l List
	p1, err := l.Add("region", Equal, "north")
	require.NoError(t, err)
	p2, err := l.Add("amount", GreaterThan, "10")
	require.NoError(t, err)

	_, err = uuid.Parse(p1.ID)
	assert.NoError(t, err)
	assert.NotEqual(t, p1.ID, p2.ID)
	assert.Equal(t, 2, l.Len())

	snapshot := l.Predicates()
	assert.True(t, l.Remove(p1.ID))
	assert.False(t, l.Remove(p1.ID))
	assert.Equal(t, []Predicate{p2}, l.Predicates())
	assert.Len(t, snapshot, 2, "earlier snapshots are not affected by Remove")

	l.Clear()
	assert.Zero(t, l.Len())
}

func TestList_AddRequiresField(t *testing.T) {
	t.Parallel()

	var l List
	_, err := l.Add("  ", Equal, "x")
	assert.ErrorIs(t, err, ErrNoField)
	assert.Zero(t, l.Len())
}

func TestList_Validate(t *testing.T) {
	t.Parallel()

	var l List
	_, _ = l.Add("region", Equal, "north")
	_, _ = l.Add("ghost", Contains, "x")
	_, _ = l.Add("amount", Operator("~"), "1")

	errs := l.Validate([]string{"region", "amount"})
	require.Len(t, errs, 2)
	assert.ErrorContains(t, errs[0], `unknown field "ghost"`)
	assert.ErrorContains(t, errs[1], `unknown operator "~"`)
}
