// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package snapshotstore

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
)

// BadgerStore is the "--snapshot-store=badger" disk-backed overflow,
// selected when a trace's delayed writes can span far more cycles than
// comfortably fit in memory. Keys are the cycle number as an 8-byte
// big-endian integer (so badger's LSM tree keeps entries in cycle order,
// which also makes a future range-scan-based DropBefore cheap); values
// are gob-encoded IndexedSnapshot.
type BadgerStore struct {
	db *badger.DB
}

// OpenBadgerStore opens (creating if absent) a badger database rooted at
// dir.
func OpenBadgerStore(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("snapshotstore: opening badger at %s: %w", dir, err)
	}
	return &BadgerStore{db: db}, nil
}

func cycleKey(cycle int64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(cycle))
	return b[:]
}

// Put gob-encodes snap and writes it under cycle's key.
func (b *BadgerStore) Put(cycle int64, snap IndexedSnapshot) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(snap); err != nil {
		return fmt.Errorf("snapshotstore: encoding cycle %d: %w", cycle, err)
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(cycleKey(cycle), buf.Bytes())
	})
}

// Get reads back and decodes the snapshot stored under cycle, if any.
func (b *BadgerStore) Get(cycle int64) (IndexedSnapshot, bool, error) {
	var snap IndexedSnapshot
	found := false
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(cycleKey(cycle))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			return gob.NewDecoder(bytes.NewReader(val)).Decode(&snap)
		})
	})
	if err != nil {
		return IndexedSnapshot{}, false, fmt.Errorf("snapshotstore: reading cycle %d: %w", cycle, err)
	}
	return snap, found, nil
}

// Close releases the underlying badger database.
func (b *BadgerStore) Close() error {
	return b.db.Close()
}
