package candy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModuleEqual(t *testing.T) {
	a := NewCodeModule("pkg", "a", "b")
	b := NewCodeModule("pkg", "a", "b")
	c := NewCodeModule("pkg", "a", "c")

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(NewAssetModule("pkg", "a", "b")))
}

func TestHirIDChildAndParent(t *testing.T) {
	m := NewCodeModule("pkg", "main")
	root := NewHirID(m)
	child := root.Child("foo").Child("bar")

	assert.Equal(t, []string{"foo", "bar"}, child.Keys)
	assert.Equal(t, "foo", child.Parent().Keys[0])
	require.Len(t, child.Parent().Keys, 1)
}

func TestHirIDIsAncestorOf(t *testing.T) {
	m := NewCodeModule("pkg", "main")
	root := NewHirID(m)
	foo := root.Child("foo")
	fooBar := foo.Child("bar")
	other := NewHirID(NewCodeModule("pkg", "other"))

	assert.True(t, root.IsAncestorOf(fooBar))
	assert.True(t, foo.IsAncestorOf(fooBar))
	assert.True(t, fooBar.IsAncestorOf(fooBar))
	assert.False(t, fooBar.IsAncestorOf(foo))
	assert.False(t, foo.IsAncestorOf(other))
}

func TestHirIDSyntheticIDsNeverEqualOrdinaryIDs(t *testing.T) {
	m := NewCodeModule("pkg", "main")
	ordinary := NewHirID(m)

	assert.True(t, PlatformHirID.IsSynthetic())
	assert.False(t, PlatformHirID.IsAncestorOf(ordinary))
	assert.False(t, ordinary.IsAncestorOf(PlatformHirID))
	assert.True(t, PlatformHirID.IsAncestorOf(PlatformHirID))
	assert.False(t, PlatformHirID.IsAncestorOf(FuzzerHirID))
}

func TestHirIDIsZero(t *testing.T) {
	var zero HirID
	assert.True(t, zero.IsZero())

	m := NewCodeModule("pkg", "main")
	assert.False(t, NewHirID(m).IsZero())
	assert.False(t, PlatformHirID.IsZero())
}

func TestResolveModulePathStripsLeadingDots(t *testing.T) {
	from := NewCodeModule("pkg", "a", "b", "c")

	resolved, err := ResolveModulePath(from, "..d")
	require.NoError(t, err)
	assert.Equal(t, NewCodeModule("pkg", "a", "d"), resolved)

	_, err = ResolveModulePath(from, "d")
	assert.Error(t, err, "useModule requires at least one leading dot")
}
