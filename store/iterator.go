package store

import (
	"bytes"

	"github.com/google/btree"
	"github.com/iov-one/settle/errors"
)

// ascendBtree returns a snapshot of all cached items within [start, end)
// in ascending order. A snapshot keeps the iterator independent of writes
// done to the cache after it was created.
func ascendBtree(bt *btree.BTree, start, end []byte) []btree.Item {
	var items []btree.Item
	collect := func(item btree.Item) bool {
		items = append(items, item)
		return true
	}
	switch {
	case start == nil && end == nil:
		bt.Ascend(collect)
	case start == nil:
		bt.AscendLessThan(bkey{end}, collect)
	case end == nil:
		bt.AscendGreaterOrEqual(bkey{start}, collect)
	default:
		bt.AscendRange(bkey{start}, bkey{end}, collect)
	}
	return items
}

// descendBtree returns a snapshot of all cached items within [start, end)
// in descending order.
func descendBtree(bt *btree.BTree, start, end []byte) []btree.Item {
	items := ascendBtree(bt, start, end)
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
	return items
}

// source marks where the current item comes from
type source int32

const (
	us source = iota
	parent
	both
	none
)

// mergedIterator joins the cached items with those of the parent
// iterator, taking into consideration overwrites and deletes.
type mergedIterator struct {
	items     []btree.Item
	idx       int
	parent    Iterator
	ascending bool
}

var _ Iterator = (*mergedIterator)(nil)

func newMergedIterator(items []btree.Item, parent Iterator, ascending bool) (*mergedIterator, error) {
	it := &mergedIterator{
		items:     items,
		parent:    parent,
		ascending: ascending,
	}
	if err := it.skipAllDeleted(); err != nil {
		it.Close()
		return nil, err
	}
	return it, nil
}

// Valid implements Iterator and returns true iff it can be read
func (i *mergedIterator) Valid() bool {
	return i.usValid() || i.parentValid()
}

// Next moves the iterator to the next sequential key in the database, as
// defined by order of iteration.
func (i *mergedIterator) Next() error {
	switch i.firstKey() {
	case us:
		i.idx++
	case both:
		i.idx++
		if err := i.parent.Next(); err != nil {
			return err
		}
	case parent:
		if err := i.parent.Next(); err != nil {
			return err
		}
	default:
		return errors.Wrap(errors.ErrIteratorDone, "cache")
	}
	return i.skipAllDeleted()
}

// Key returns the key of the cursor.
func (i *mergedIterator) Key() []byte {
	switch i.firstKey() {
	case us, both:
		return i.current().Key()
	case parent:
		return i.parent.Key()
	default:
		panic("advanced past the end")
	}
}

// Value returns the value of the cursor.
func (i *mergedIterator) Value() []byte {
	switch i.firstKey() {
	case us, both:
		return i.current().(setItem).value
	case parent:
		return i.parent.Value()
	default:
		panic("advanced past the end")
	}
}

// Close releases the Iterator.
func (i *mergedIterator) Close() {
	if i.parent != nil {
		i.parent.Close()
	}
	i.items = nil
}

// skipAllDeleted fast forwards over all deleted cache entries, together
// with the parent entries they shadow.
func (i *mergedIterator) skipAllDeleted() error {
	for {
		src := i.firstKey()
		if src != us && src != both {
			return nil
		}
		if _, ok := i.current().(deletedItem); !ok {
			return nil
		}
		i.idx++
		if src == both {
			if err := i.parent.Next(); err != nil {
				return err
			}
		}
	}
}

// firstKey selects the iterator with the key that comes first in the
// iteration order.
func (i *mergedIterator) firstKey() source {
	if !i.parentValid() {
		if !i.usValid() {
			return none
		}
		return us
	} else if !i.usValid() {
		return parent
	}

	cmp := bytes.Compare(i.parent.Key(), i.current().Key())
	if !i.ascending {
		cmp = -cmp
	}
	switch {
	case cmp < 0:
		return parent
	case cmp > 0:
		return us
	default:
		return both
	}
}

func (i *mergedIterator) current() keyer {
	return i.items[i.idx].(keyer)
}

func (i *mergedIterator) usValid() bool {
	return i.idx < len(i.items)
}

// makes sure the parent is non-nil before checking if it is valid
func (i *mergedIterator) parentValid() bool {
	return i.parent != nil && i.parent.Valid()
}
