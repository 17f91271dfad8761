package sortedmap_test

import (
	"cmp"
	"iter"
	"math/rand"
	"slices"
	"strconv"
	"testing"

	"github.com/google/btree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/ordmap/pkg/sortedmap"
)

func newOddMap(t *testing.T) *sortedmap.Map[int, string] {
	t.Helper()

	m := sortedmap.New[int, string]()

	for _, key := range []int{1, 3, 5, 7} {
		require.NoError(t, m.Add(key, "v"+strconv.Itoa(key)))
	}

	return m
}

func collect[K, V any](seq iter.Seq2[K, V]) []K {
	var keys []K

	for key := range seq {
		keys = append(keys, key)
	}

	return keys
}

func TestEmptyMap(t *testing.T) {
	t.Parallel()

	m := sortedmap.New[int, string]()
	assert.Equal(t, 0, m.Len())

	_, err := m.Get(1)
	require.ErrorIs(t, err, sortedmap.ErrKeyNotFound)

	_, err = m.LowerBound(1)
	require.ErrorIs(t, err, sortedmap.ErrKeyNotFound)

	_, err = m.UpperBound(1)
	require.ErrorIs(t, err, sortedmap.ErrKeyNotFound)

	_, ok := m.TryLowerBound(1)
	assert.False(t, ok)

	_, ok = m.TryUpperBound(1)
	assert.False(t, ok)

	removed, err := m.Remove(1)
	require.NoError(t, err)
	assert.False(t, removed)

	_, ok = m.Min()
	assert.False(t, ok)
	assert.Empty(t, collect(m.All()))
	assert.Empty(t, m.Entries())
	assert.True(t, m.IsValid())
}

func TestBounds(t *testing.T) {
	t.Parallel()

	m := newOddMap(t)

	lower := map[int]string{0: "v1", 1: "v1", 2: "v3", 4: "v5", 5: "v5", 7: "v7"}
	for key, want := range lower {
		got, err := m.LowerBound(key)
		require.NoError(t, err, "lower bound %d", key)
		assert.Equal(t, want, got, "lower bound %d", key)
	}

	upper := map[int]string{0: "v1", 1: "v3", 4: "v5", 5: "v7", 6: "v7"}
	for key, want := range upper {
		got, err := m.UpperBound(key)
		require.NoError(t, err, "upper bound %d", key)
		assert.Equal(t, want, got, "upper bound %d", key)
	}

	_, err := m.UpperBound(7)
	require.ErrorIs(t, err, sortedmap.ErrKeyNotFound)

	_, err = m.LowerBound(8)
	require.ErrorIs(t, err, sortedmap.ErrKeyNotFound)

	value, ok := m.TryLowerBound(4)
	assert.True(t, ok)
	assert.Equal(t, "v5", value)

	_, ok = m.TryUpperBound(7)
	assert.False(t, ok)

	_, ok = m.TryLowerBound(8)
	assert.False(t, ok)
}

func TestAddRejectsDuplicates(t *testing.T) {
	t.Parallel()

	m := newOddMap(t)

	err := m.Add(3, "other")
	require.ErrorIs(t, err, sortedmap.ErrDuplicateKey)

	value, err := m.Get(3)
	require.NoError(t, err)
	assert.Equal(t, "v3", value)
	assert.Equal(t, 4, m.Len())
}

func TestSetReplacesInPlace(t *testing.T) {
	t.Parallel()

	m := sortedmap.New[string, int]()
	require.NoError(t, m.Set("a", 1))
	require.NoError(t, m.Set("a", 2))
	require.NoError(t, m.Set("b", 3))

	assert.Equal(t, 2, m.Len())

	value, ok := m.TryGetValue("a")
	assert.True(t, ok)
	assert.Equal(t, 2, value)
	assert.True(t, m.IsValid())
}

func TestRemove(t *testing.T) {
	t.Parallel()

	m := newOddMap(t)

	removed, err := m.Remove(4)
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Equal(t, 4, m.Len())

	removed, err = m.Remove(3)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.False(t, m.ContainsKey(3))
	assert.Equal(t, []int{1, 5, 7}, collect(m.All()))
	assert.True(t, m.IsValid())
}

func TestBoundItems(t *testing.T) {
	t.Parallel()

	m := newOddMap(t)

	assert.Equal(t, []int{3, 5, 7}, collect(m.LowerBoundItems(3)))
	assert.Equal(t, []int{5, 7}, collect(m.LowerBoundItems(4)))
	assert.Equal(t, []int{5, 7}, collect(m.LowerBoundItems(5)))
	assert.Equal(t, []int{5, 7}, collect(m.UpperBoundItems(4)))
	assert.Equal(t, []int{7}, collect(m.UpperBoundItems(5)))
	assert.Empty(t, collect(m.UpperBoundItems(7)))
	assert.Equal(t, []int{1, 3, 5, 7}, collect(m.LowerBoundItems(-10)))

	// Every range loop searches again.
	seq := m.LowerBoundItems(4)
	assert.Equal(t, []int{5, 7}, collect(seq))
	require.NoError(t, m.Add(6, "v6"))
	assert.Equal(t, []int{5, 6, 7}, collect(seq))

	// Early break stops the walk.
	var first []string

	for _, value := range m.LowerBoundItems(0) {
		first = append(first, value)

		break
	}

	assert.Equal(t, []string{"v1"}, first)
}

func TestProjections(t *testing.T) {
	t.Parallel()

	m := sortedmap.New[int, int]()
	for _, key := range []int{9, 2, 7, 4} {
		require.NoError(t, m.Add(key, key*10))
	}

	assert.Equal(t, []int{2, 4, 7, 9}, slices.Collect(m.Keys()))
	assert.Equal(t, []int{20, 40, 70, 90}, slices.Collect(m.Values()))
	assert.Equal(t, []sortedmap.Entry[int, int]{
		{Key: 2, Value: 20}, {Key: 4, Value: 40}, {Key: 7, Value: 70}, {Key: 9, Value: 90},
	}, m.Entries())

	minEntry, ok := m.Min()
	assert.True(t, ok)
	assert.Equal(t, 2, minEntry.Key)

	maxEntry, ok := m.Max()
	assert.True(t, ok)
	assert.Equal(t, 9, maxEntry.Key)
}

func TestCustomOrder(t *testing.T) {
	t.Parallel()

	descending := func(a, b int) int { return cmp.Compare(b, a) }
	m := sortedmap.NewFunc[int, string](descending)

	for _, key := range []int{1, 3, 5, 7} {
		require.NoError(t, m.Add(key, strconv.Itoa(key)))
	}

	assert.Equal(t, []int{7, 5, 3, 1}, slices.Collect(m.Keys()))

	// In descending order the lower bound of 4 is the first key "after" 4, which is 3.
	value, err := m.LowerBound(4)
	require.NoError(t, err)
	assert.Equal(t, "3", value)

	assert.Panics(t, func() { sortedmap.NewFunc[int, int](nil) })
}

func TestInvalidKeys(t *testing.T) {
	t.Parallel()

	byValue := func(a, b *int) int { return cmp.Compare(*a, *b) }
	m := sortedmap.NewFunc[*int, string](byValue)

	one := 1
	require.NoError(t, m.Add(&one, "one"))

	_, err := m.Get(nil)
	require.ErrorIs(t, err, sortedmap.ErrInvalidKey)
	require.ErrorIs(t, m.Add(nil, "x"), sortedmap.ErrInvalidKey)
	require.ErrorIs(t, m.Set(nil, "x"), sortedmap.ErrInvalidKey)

	_, err = m.Remove(nil)
	require.ErrorIs(t, err, sortedmap.ErrInvalidKey)

	_, err = m.LowerBound(nil)
	require.ErrorIs(t, err, sortedmap.ErrInvalidKey)

	assert.False(t, m.ContainsKey(nil))
	assert.Empty(t, collect(m.LowerBoundItems(nil)))

	other := 1
	assert.True(t, m.ContainsKey(&other))

	anyKeys := sortedmap.NewFunc[any, int](func(a, b any) int {
		return cmp.Compare(a.(int), b.(int)) //nolint:forcetypeassert // test keys are ints.
	})
	require.ErrorIs(t, anyKeys.Add(nil, 1), sortedmap.ErrInvalidKey)
	require.NoError(t, anyKeys.Add(2, 2))
}

func TestEnumeratorStates(t *testing.T) {
	t.Parallel()

	m := newOddMap(t)
	enum := m.LowerBoundEnumerator(4)

	assert.Equal(t, sortedmap.BeforeStart, enum.State())

	_, ok := enum.Current()
	assert.False(t, ok)

	require.True(t, enum.MoveNext())
	assert.Equal(t, sortedmap.Positioned, enum.State())

	entry, ok := enum.Current()
	require.True(t, ok)
	assert.Equal(t, 5, entry.Key)

	require.True(t, enum.MoveNext())
	entry, _ = enum.Current()
	assert.Equal(t, 7, entry.Key)

	assert.False(t, enum.MoveNext())
	assert.Equal(t, sortedmap.Exhausted, enum.State())
	assert.False(t, enum.MoveNext())

	_, ok = enum.Current()
	assert.False(t, ok)

	// Reset searches for the bound again.
	enum.Reset()
	assert.Equal(t, sortedmap.BeforeStart, enum.State())
	require.NoError(t, m.Add(4, "v4"))
	require.True(t, enum.MoveNext())
	entry, _ = enum.Current()
	assert.Equal(t, 4, entry.Key)

	assert.Equal(t, "exhausted", sortedmap.Exhausted.String())
}

func TestEnumeratorOverEmptyRange(t *testing.T) {
	t.Parallel()

	m := newOddMap(t)
	enum := m.UpperBoundEnumerator(7)

	assert.False(t, enum.MoveNext())
	assert.Equal(t, sortedmap.Exhausted, enum.State())

	full := m.Enumerator()
	count := 0

	for full.MoveNext() {
		count++
	}

	assert.Equal(t, 4, count)
}

func TestCloneAndClear(t *testing.T) {
	t.Parallel()

	m := newOddMap(t)
	clone := m.Clone()

	m.Clear()
	assert.Equal(t, 0, m.Len())
	assert.True(t, m.IsValid())
	assert.Equal(t, []int{1, 3, 5, 7}, slices.Collect(clone.Keys()))

	require.NoError(t, m.Add(2, "v2"))
	assert.Equal(t, []int{2}, slices.Collect(m.Keys()))
	assert.False(t, clone.ContainsKey(2))
}

func TestSyncRoot(t *testing.T) {
	t.Parallel()

	m := newOddMap(t)
	lock := m.SyncRoot()

	assert.Same(t, lock, m.SyncRoot())

	lock.Lock()
	require.NoError(t, m.Set(9, "v9"))
	lock.Unlock()

	assert.Equal(t, 5, m.Len())
}

func TestStress(t *testing.T) {
	t.Parallel()

	numKeys := 10000
	if testing.Short() {
		numKeys = 1000
	}

	rng := rand.New(rand.NewSource(7))
	keys := rng.Perm(numKeys * 3)[:numKeys]
	m := sortedmap.New[int, int]()

	for idx, key := range keys {
		require.NoError(t, m.Add(key, -key))

		if idx%97 == 0 {
			require.NoError(t, m.Validate())
		}
	}

	require.NoError(t, m.Validate())
	assert.Equal(t, slices.Sorted(slices.Values(keys)), slices.Collect(m.Keys()))

	rng.Shuffle(len(keys), func(i, j int) { keys[i], keys[j] = keys[j], keys[i] })

	for idx, key := range keys {
		removed, err := m.Remove(key)
		require.NoError(t, err)
		require.True(t, removed)

		if idx%97 == 0 {
			require.NoError(t, m.Validate())
		}
	}

	assert.Equal(t, 0, m.Len())
	require.NoError(t, m.Validate())
}

// TestAgainstBTree drives the map and a google/btree with the same random
// operations and compares every answer.
func TestAgainstBTree(t *testing.T) {
	t.Parallel()

	type item struct{ key, value int }

	reference := btree.NewG(8, func(a, b item) bool { return a.key < b.key })
	m := sortedmap.New[int, int]()
	rng := rand.New(rand.NewSource(1))

	for step := range 20000 {
		key := rng.Intn(2000)

		switch op := rng.Intn(10); {
		case op < 4:
			require.NoError(t, m.Set(key, step))
			reference.ReplaceOrInsert(item{key, step})
		case op < 7:
			_, existed := reference.Delete(item{key: key})
			removed, err := m.Remove(key)
			require.NoError(t, err)
			require.Equal(t, existed, removed)
		default:
			want, wantOK := -1, false

			reference.AscendGreaterOrEqual(item{key: key}, func(it item) bool {
				want, wantOK = it.value, true

				return false
			})

			got, ok := m.TryLowerBound(key)
			require.Equal(t, wantOK, ok, "lower bound %d", key)

			if ok {
				require.Equal(t, want, got, "lower bound %d", key)
			}

			want, wantOK = -1, false

			reference.AscendGreaterOrEqual(item{key: key + 1}, func(it item) bool {
				want, wantOK = it.value, true

				return false
			})

			got, ok = m.TryUpperBound(key)
			require.Equal(t, wantOK, ok, "upper bound %d", key)

			if ok {
				require.Equal(t, want, got, "upper bound %d", key)
			}
		}

		require.Equal(t, reference.Len(), m.Len())
	}

	require.NoError(t, m.Validate())
}
