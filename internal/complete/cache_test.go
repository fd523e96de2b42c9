package complete

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errNoFile = errors.New("no such file")

type countingLoader struct {
	files map[string]string
	calls atomic.Int32
}

func (l *countingLoader) LoadFile(path string) (string, error) {
	l.calls.Add(1)
	if s, ok := l.files[path]; ok {
		return s, nil
	}
	return "", errNoFile
}

func TestCache_LoadCachesSuccess(t *testing.T) {
	l := &countingLoader{files: map[string]string{"m.rs": "pub fn f() {}"}}
	c := NewCache(WithLoader(l))

	for i := 0; i < 3; i++ {
		got, err := c.Load("./m.rs")
		require.NoError(t, err)
		assert.Equal(t, "pub fn f() {}", got)
	}
	assert.EqualValues(t, 1, l.calls.Load())
	assert.True(t, c.Contains("m.rs"))
}

func TestCache_LoadDoesNotCacheFailure(t *testing.T) {
	l := &countingLoader{files: map[string]string{}}
	c := NewCache(WithLoader(l))

	_, err := c.Load("gone.rs")
	assert.ErrorIs(t, err, errNoFile)
	_, err = c.Load("gone.rs")
	assert.ErrorIs(t, err, errNoFile)
	assert.EqualValues(t, 2, l.calls.Load())
	assert.Equal(t, 0, c.Len())
}

func TestCache_InstallOverwritesAndShadowsLoader(t *testing.T) {
	l := &countingLoader{files: map[string]string{VirtualRoot: "from loader"}}
	c := NewCache(WithLoader(l))

	c.Install(VirtualRoot, "first")
	c.Install(VirtualRoot, "second")
	got, err := c.Load(VirtualRoot)
	require.NoError(t, err)
	assert.Equal(t, "second", got)
	assert.EqualValues(t, 0, l.calls.Load())
}

func TestCache_Invalidate(t *testing.T) {
	l := &countingLoader{files: map[string]string{"m.rs": "v1"}}
	c := NewCache(WithLoader(l))
	_, err := c.Load("m.rs")
	require.NoError(t, err)

	l.files["m.rs"] = "v2"
	got, _ := c.Load("m.rs")
	assert.Equal(t, "v1", got, "stale until invalidated")

	c.Invalidate("./m.rs")
	got, _ = c.Load("m.rs")
	assert.Equal(t, "v2", got)
}

func TestCache_DefaultLoaderServesEmptyVirtualRoot(t *testing.T) {
	c := NewCache()
	got, err := c.Load(VirtualRoot)
	require.NoError(t, err)
	assert.Equal(t, "", got)
}

func TestCache_Preload(t *testing.T) {
	l := &countingLoader{files: map[string]string{"a.rs": "a", "b.rs": "b"}}
	c := NewCache(WithLoader(l))

	err := c.Preload(context.Background(), "a.rs", "b.rs", "x.rs", "y.rs")
	require.Error(t, err)
	var merr *multierror.Error
	require.ErrorAs(t, err, &merr)
	assert.Len(t, merr.Errors, 2)
	assert.True(t, c.Contains("a.rs"))
	assert.True(t, c.Contains("b.rs"))
	assert.False(t, c.Contains("x.rs"))

	require.NoError(t, c.Preload(context.Background(), "a.rs"))
}

func TestCache_RootResolvesRelativeKeys(t *testing.T) {
	root := filepath.Join(t.TempDir(), "src")
	util := filepath.Join(root, "util.rs")
	l := &countingLoader{files: map[string]string{util: "pub fn util_helper() {}"}}
	c := NewCache(WithLoader(l), WithRoot(root))

	got, err := c.Load("util.rs")
	require.NoError(t, err)
	assert.Equal(t, "pub fn util_helper() {}", got)
	assert.True(t, c.Contains(util))
	assert.True(t, c.Contains("./util.rs"))

	c.Invalidate(util)
	assert.False(t, c.Contains("util.rs"))
}

func TestCache_InvalidateKeepsVirtualRoot(t *testing.T) {
	c := NewCache(WithRoot(t.TempDir()))
	c.Install(VirtualRoot, "fn composed() {}")

	c.Invalidate(VirtualRoot)
	c.Invalidate("./" + VirtualRoot)
	got, err := c.Load(VirtualRoot)
	require.NoError(t, err)
	assert.Equal(t, "fn composed() {}", got)
}
