// Copyright 2025 Ekjot Singh
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// See the License for the specific language governing permissions and
// limitations under the License.

package index

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/btree"

	"github.com/brahmabase/tilestore/storage"
)

// btreeStore is the concurrent key->tuple-identities structure each Index
// owns. The specification leaves the flavor unspecified (B-tree, skiplist,
// or hash) and requires only that it tolerate concurrent readers and
// writers; this uses google/btree guarded by a RWMutex, the same library
// the teacher uses for ordered, concurrently-read structures in its region
// cache.
type btreeStore struct {
	mu   sync.RWMutex
	tree *btree.BTree
}

func newBTreeStore() *btreeStore {
	return &btreeStore{tree: btree.New(32)}
}

// entry is the btree.Item stored per distinct key. encodedKey orders
// entries; ids is mutated in place once inserted since google/btree stores
// Item instances by pointer and re-sorting is unnecessary when the sort key
// does not change.
type entry struct {
	encodedKey string
	key        []interface{}
	ids        map[storage.TupleID]struct{}
}

func (e *entry) Less(than btree.Item) bool {
	return e.encodedKey < than.(*entry).encodedKey
}

func encodeKey(key []interface{}) string {
	return fmt.Sprint(key...)
}

func (s *btreeStore) insert(key []interface{}, id storage.TupleID, unique bool) error {
	enc := encodeKey(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	if item := s.tree.Get(&entry{encodedKey: enc}); item != nil {
		e := item.(*entry)
		if unique {
			if _, already := e.ids[id]; !already && len(e.ids) > 0 {
				return ErrDuplicateKey
			}
		}
		e.ids[id] = struct{}{}
		return nil
	}

	e := &entry{
		encodedKey: enc,
		key:        append([]interface{}(nil), key...),
		ids:        map[storage.TupleID]struct{}{id: {}},
	}
	s.tree.ReplaceOrInsert(e)
	return nil
}

func (s *btreeStore) get(key []interface{}) []storage.TupleID {
	enc := encodeKey(key)
	s.mu.RLock()
	defer s.mu.RUnlock()

	item := s.tree.Get(&entry{encodedKey: enc})
	if item == nil {
		return nil
	}
	e := item.(*entry)
	out := make([]storage.TupleID, 0, len(e.ids))
	for id := range e.ids {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Block != out[j].Block {
			return out[i].Block < out[j].Block
		}
		return out[i].Offset < out[j].Offset
	})
	return out
}

func (s *btreeStore) scanAll(fn func(key []interface{}, ids []storage.TupleID) bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	s.tree.Ascend(func(item btree.Item) bool {
		e := item.(*entry)
		ids := make([]storage.TupleID, 0, len(e.ids))
		for id := range e.ids {
			ids = append(ids, id)
		}
		return fn(e.key, ids)
	})
}

func (s *btreeStore) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.Len()
}
