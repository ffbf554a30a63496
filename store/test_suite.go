package store

import (
	"bytes"
	"fmt"
	"sort"
	"testing"

	"github.com/iov-one/settle/errors"
	"github.com/iov-one/settle/weavetest/assert"
)

// TestSuite runs the same KVStore checks against any cacheable store
// implementation. The btree store and the iavl adapter both use it.
type TestSuite struct {
	makeBase TestStoreConstructor
}

// TestStoreConstructor returns a fresh empty store together with a function
// releasing its resources.
type TestStoreConstructor func() (base CacheableKVStore, cleanup func())

func NewTestSuite(constructor TestStoreConstructor) *TestSuite {
	return &TestSuite{
		makeBase: constructor,
	}
}

// GetSet checks that values written to a cache are visible in the cache
// only, until the cache is written.
func (s *TestSuite) GetSet(t *testing.T) {
	base, cleanup := s.makeBase()
	defer cleanup()

	k, v := []byte("escrow:1"), []byte("created")
	s.AssertGetHas(t, base, k, nil, false)
	assert.Nil(t, base.Set(k, v))
	s.AssertGetHas(t, base, k, v, true)

	cache := base.CacheWrap()
	s.AssertGetHas(t, cache, k, v, true)

	k2, v2 := []byte("escrow:2"), []byte("funded")
	s.AssertGetHas(t, cache, k2, nil, false)
	assert.Nil(t, cache.Set(k2, v2))
	s.AssertGetHas(t, cache, k2, v2, true)
	s.AssertGetHas(t, base, k2, nil, false)

	assert.Nil(t, cache.Write())
	s.AssertGetHas(t, base, k, v, true)
	s.AssertGetHas(t, base, k2, v2, true)

	// a discarded cache leaves no trace
	k3, v3 := []byte("escrow:3"), []byte("released")
	c2 := base.CacheWrap()
	assert.Nil(t, c2.Set(k3, v3))
	c2.Discard()
	s.AssertGetHas(t, base, k3, nil, false)

	c3 := base.CacheWrap()
	assert.Nil(t, c3.Delete(k))
	assert.Nil(t, c3.Write())
	s.AssertGetHas(t, base, k, nil, false)
	s.AssertGetHas(t, base, k2, v2, true)
}

// NestedSavepoints checks that a nested cache can be rolled back without
// affecting the outer one.
func (s *TestSuite) NestedSavepoints(t *testing.T) {
	base, cleanup := s.makeBase()
	defer cleanup()

	outer := base.CacheWrap()
	assert.Nil(t, outer.Set([]byte("balance:payer"), []byte("1050")))

	inner := outer.CacheWrap()
	assert.Nil(t, inner.Set([]byte("balance:payee"), []byte("1000")))
	assert.Nil(t, inner.Delete([]byte("balance:payer")))
	s.AssertGetHas(t, inner, []byte("balance:payer"), nil, false)
	inner.Discard()

	s.AssertGetHas(t, outer, []byte("balance:payer"), []byte("1050"), true)
	s.AssertGetHas(t, outer, []byte("balance:payee"), nil, false)

	inner = outer.CacheWrap()
	assert.Nil(t, inner.Set([]byte("balance:payee"), []byte("1000")))
	assert.Nil(t, inner.Write())
	s.AssertGetHas(t, base, []byte("balance:payee"), nil, false)

	assert.Nil(t, outer.Write())
	s.AssertGetHas(t, base, []byte("balance:payer"), []byte("1050"), true)
	s.AssertGetHas(t, base, []byte("balance:payee"), []byte("1000"), true)
}

// IteratorWithConflicts checks that iterating over a cache combines cached
// and parent data, respecting overwrites and deletes.
func (s *TestSuite) IteratorWithConflicts(t *testing.T) {
	ms := makeModels(6)
	a, a2, b, b2, c, d := ms[0], ms[1], ms[2], ms[3], ms[4], ms[5]
	// a2, b2 have same keys, different values
	a2.Key = a.Key
	b2.Key = b.Key

	expect0 := sortModels([]Model{a, b, c})
	expect1 := sortModels([]Model{a2, b2, c, d})
	expect2 := []Model{c}

	cases := map[string]iterCase{
		"iterate in child only": {
			child: makeSetOps(a, b, c),
			queries: []rangeQuery{
				{nil, nil, false, expect0},
				{expect0[1].Key, expect0[2].Key, false, expect0[1:2]},
				{nil, nil, true, reverse(expect0)},
			},
		},
		"iterate over parent only": {
			pre: makeSetOps(a, b, c),
			queries: []rangeQuery{
				{nil, nil, false, expect0},
				{expect0[1].Key, expect0[2].Key, false, expect0[1:2]},
				{nil, nil, true, reverse(expect0)},
			},
		},
		"simple combination": {
			pre:   makeSetOps(a, b),
			child: makeSetOps(c),
			queries: []rangeQuery{
				{nil, nil, false, expect0},
				{nil, nil, true, reverse(expect0)},
				{expect0[0].Key, expect0[2].Key, true, reverse(expect0[0:2])},
			},
		},
		"overwrite data should show child data": {
			pre:   makeSetOps(a, b, c),
			child: makeSetOps(a2, b2, d),
			queries: []rangeQuery{
				{nil, nil, false, expect1},
				{expect1[1].Key, expect1[3].Key, false, expect1[1:3]},
				{nil, nil, true, reverse(expect1)},
			},
		},
		"deleted data is skipped": {
			pre:   makeSetOps(a, c, d),
			child: makeDelOps(a, b, d),
			queries: []rangeQuery{
				{nil, nil, false, expect2},
				{nil, nil, true, expect2},
				{nil, c.Key, false, nil},
			},
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			base, cleanup := s.makeBase()
			defer cleanup()
			tc.verify(t, base)
		})
	}
}

func (s *TestSuite) AssertGetHas(t testing.TB, kv ReadOnlyKVStore, key, val []byte, has bool) {
	t.Helper()
	got, err := kv.Get(key)
	assert.Nil(t, err)
	assert.Equal(t, val, got)
	exists, err := kv.Has(key)
	assert.Nil(t, err)
	assert.Equal(t, has, exists)
}

// makeModels returns count models with distinct keys. Keys are not created
// in sorted order.
func makeModels(count int) []Model {
	models := make([]Model, count)
	for i := 0; i < count; i++ {
		models[i].Key = []byte(fmt.Sprintf("key-%02d", (i*7)%count))
		models[i].Value = []byte(fmt.Sprintf("value-%d", i))
	}
	return models
}

// iterCase is a test case for iteration
type iterCase struct {
	pre     []Op
	child   []Op
	queries []rangeQuery
}

func (i iterCase) verify(t testing.TB, base CacheableKVStore) {
	t.Helper()
	for _, op := range i.pre {
		assert.Nil(t, op.Apply(base))
	}

	child := base.CacheWrap()
	for _, op := range i.child {
		assert.Nil(t, op.Apply(child))
	}

	for _, q := range i.queries {
		var iter Iterator
		var err error
		if q.reverse {
			iter, err = child.ReverseIterator(q.start, q.end)
		} else {
			iter, err = child.Iterator(q.start, q.end)
		}
		assert.Nil(t, err)

		for n, want := range q.expected {
			if !iter.Valid() {
				t.Fatalf("iterator exhausted after %d elements", n)
			}
			if !bytes.Equal(want.Key, iter.Key()) {
				t.Fatalf("want key %d = %q, got %q", n, want.Key, iter.Key())
			}
			assert.Equal(t, want.Value, iter.Value())
			assert.Nil(t, iter.Next())
		}
		if iter.Valid() {
			t.Fatalf("unexpected element %q", iter.Key())
		}
		if err := iter.Next(); !errors.ErrIteratorDone.Is(err) {
			t.Fatalf("want ErrIteratorDone, got %+v", err)
		}
		iter.Close()
	}
}

// range query checks the results of iteration
type rangeQuery struct {
	start    []byte
	end      []byte
	reverse  bool
	expected []Model
}

// reverse returns a copy of the slice with elements in reverse order
func reverse(models []Model) []Model {
	max := len(models)
	res := make([]Model, max)
	for i := 0; i < max; i++ {
		res[i] = models[max-1-i]
	}
	return res
}

// sortModels returns a copy of the models sorted by key
func sortModels(models []Model) []Model {
	res := make([]Model, len(models))
	copy(res, models)
	sort.Slice(res, func(i, j int) bool {
		return bytes.Compare(res[i].Key, res[j].Key) < 0
	})
	return res
}

func makeSetOps(ms ...Model) []Op {
	res := make([]Op, len(ms))
	for i, m := range ms {
		res[i] = SetOp(m.Key, m.Value)
	}
	return res
}

func makeDelOps(ms ...Model) []Op {
	res := make([]Op, len(ms))
	for i, m := range ms {
		res[i] = DelOp(m.Key)
	}
	return res
}
