// Copyright (C) 2025 Zaraara Fashion (platform@zaraara.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package memory provides the embedded conversation store.
//
// Each chat request appends one turn keyed by the user's conversation id;
// the clear endpoint drops a user's whole keyspace. BadgerDB keeps this
// local and low-latency; there is no cross-request shared state beyond
// this correlation history.
package memory

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/zaraara/concierge/services/assistant/datatypes"
)

// Config holds configuration for the conversation store.
type Config struct {
	// Path is the directory for BadgerDB files. Ignored when InMemory is
	// true.
	Path string

	// InMemory enables in-memory mode (no disk persistence). Useful for
	// testing.
	InMemory bool

	// SyncWrites enables synchronous writes for durability.
	SyncWrites bool
}

// DefaultConfig returns sensible defaults for production use.
func DefaultConfig(path string) Config {
	return Config{Path: path, SyncWrites: true}
}

// InMemoryConfig returns configuration optimized for testing.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// Turn is one recorded chat exchange.
type Turn struct {
	At      time.Time         `json:"at"`
	Message string            `json:"message"`
	Replies []datatypes.Reply `json:"replies"`
}

// Store is a badger-backed conversation history store.
//
// # Thread Safety
//
// Safe for concurrent use; BadgerDB provides its own transaction
// isolation.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) the store described by cfg.
func Open(cfg Config) (*Store, error) {
	opts := badger.DefaultOptions(cfg.Path).
		WithInMemory(cfg.InMemory).
		WithSyncWrites(cfg.SyncWrites).
		WithLogger(nil) // badger's own logging is noisy; we log ourselves
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening conversation store: %w", err)
	}
	slog.Info("conversation store opened",
		"path", cfg.Path, "in_memory", cfg.InMemory)
	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// turnKey builds the key for one turn. Nanosecond timestamps keep keys
// ordered and collision-free within a single conversation.
func turnKey(userID string, at time.Time) []byte {
	return fmt.Appendf(nil, "conv/%s/%020d", userID, at.UnixNano())
}

// userPrefix is the keyspace shared by all of a user's turns.
func userPrefix(userID string) []byte {
	return fmt.Appendf(nil, "conv/%s/", userID)
}

// AppendTurn records one chat exchange for userID.
func (s *Store) AppendTurn(userID string, turn Turn) error {
	if turn.At.IsZero() {
		turn.At = time.Now()
	}
	data, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("encoding turn: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(turnKey(userID, turn.At), data)
	})
	if err != nil {
		return fmt.Errorf("writing turn: %w", err)
	}
	return nil
}

// History returns userID's recorded turns in chronological order.
func (s *Store) History(userID string) ([]Turn, error) {
	var turns []Turn
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		prefix := userPrefix(userID)
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var turn Turn
				if err := json.Unmarshal(val, &turn); err != nil {
					return fmt.Errorf("decoding turn: %w", err)
				}
				turns = append(turns, turn)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}
	return turns, nil
}

// Clear deletes all recorded turns for userID.
func (s *Store) Clear(userID string) error {
	prefix := userPrefix(userID)

	// Collect keys first; deleting while iterating invalidates the
	// iterator.
	var keys [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("listing turns: %w", err)
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, key := range keys {
		if err := wb.Delete(key); err != nil {
			return fmt.Errorf("deleting turn: %w", err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("clearing history: %w", err)
	}
	slog.Info("conversation history cleared",
		"user_id", userID, "turns", len(keys))
	return nil
}
