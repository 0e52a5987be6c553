package snapshot

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"github.com/jamesainslie/diskviz/pkg/diskviz/types"
)

// KeySeparator separates key segments. It cannot occur in a path.
const KeySeparator = '\x00'

// Key namespaces.
const (
	prefixMeta  = 'm' // m\x00<path>\x00<stamp><id> -> Entry JSON
	prefixDoc   = 'd' // d\x00<path>\x00<stamp><id> -> zstd(Document JSON)
	prefixIndex = 'i' // i\x00<id> -> path\x00<stamp><id>
)

// Entry summarises a stored snapshot without its tree.
type Entry struct {
	ID          uuid.UUID         `json:"id"`
	Path        string            `json:"path"`
	CreatedAt   time.Time         `json:"created_at"`
	Metrics     types.ScanMetrics `json:"metrics"`
	Files       int               `json:"files"`
	Directories int               `json:"directories"`
}

// Store keeps snapshot history in badger. Documents are stored
// zstd-compressed; summaries are stored separately so listing never
// decodes a tree.
type Store struct {
	db        *badger.DB
	encoder   *zstd.Encoder
	decoder   *zstd.Decoder
	retention int
}

// OpenStore opens or creates a store in dir. When retention is positive,
// Save keeps at most that many snapshots per path.
func OpenStore(dir string, retention int) (*Store, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot store: %w", err)
	}

	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating zstd encoder: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		_ = db.Close()
		_ = encoder.Close()
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}

	return &Store{db: db, encoder: encoder, decoder: decoder, retention: retention}, nil
}

// Close closes the store.
func (s *Store) Close() error {
	s.decoder.Close()
	_ = s.encoder.Close()
	return s.db.Close()
}

// Save stores d and applies the retention limit for its path.
func (s *Store) Save(d *Document) (Entry, error) {
	entry := Entry{
		ID:          uuid.New(),
		Path:        d.Path,
		CreatedAt:   d.CreatedAt,
		Metrics:     d.Root.Metrics,
		Files:       d.Root.FileCount,
		Directories: d.Root.DirCount,
	}

	doc, err := d.Marshal()
	if err != nil {
		return Entry{}, err
	}
	meta, err := json.Marshal(entry)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to marshal entry: %w", err)
	}

	suffix := entrySuffix(entry)
	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(makeKey(prefixMeta, entry.Path, suffix), meta); err != nil {
			return err
		}
		if err := txn.Set(makeKey(prefixDoc, entry.Path, suffix), s.encoder.EncodeAll(doc, nil)); err != nil {
			return err
		}
		return txn.Set(indexKey(entry.ID), indexValue(entry.Path, suffix))
	})
	if err != nil {
		return Entry{}, fmt.Errorf("saving snapshot: %w", err)
	}

	if s.retention > 0 {
		if _, err := s.Prune(entry.Path, s.retention); err != nil {
			return entry, err
		}
	}
	return entry, nil
}

// List returns snapshot summaries for path, newest first. An empty path
// lists every stored snapshot.
func (s *Store) List(path string) ([]Entry, error) {
	prefix := []byte{prefixMeta, KeySeparator}
	if path != "" {
		prefix = makeKey(prefixMeta, path, nil)
	}

	entries := []Entry{}
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var e Entry
			if err := it.Item().Value(func(v []byte) error {
				return json.Unmarshal(v, &e)
			}); err != nil {
				return fmt.Errorf("decoding entry: %w", err)
			}
			entries = append(entries, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(entries, func(a, b Entry) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return entries, nil
}

// Latest returns the newest snapshot of path.
func (s *Store) Latest(path string) (*Document, error) {
	entries, err := s.List(path)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return s.Get(entries[0].ID)
}

// Get returns the snapshot with the given id.
func (s *Store) Get(id uuid.UUID) (*Document, error) {
	var d *Document
	err := s.db.View(func(txn *badger.Txn) error {
		path, suffix, err := lookup(txn, id)
		if err != nil {
			return err
		}

		item, err := txn.Get(makeKey(prefixDoc, path, suffix))
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			raw, err := s.decoder.DecodeAll(v, nil)
			if err != nil {
				return fmt.Errorf("decompressing snapshot: %w", err)
			}
			d, err = Unmarshal(raw)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

// Delete removes the snapshot with the given id.
func (s *Store) Delete(id uuid.UUID) error {
	return s.db.Update(func(txn *badger.Txn) error {
		path, suffix, err := lookup(txn, id)
		if err != nil {
			return err
		}
		return deleteEntry(txn, id, path, suffix)
	})
}

// Prune deletes all but the newest keep snapshots of path and returns how
// many were removed.
func (s *Store) Prune(path string, keep int) (int, error) {
	entries, err := s.List(path)
	if err != nil {
		return 0, err
	}
	if keep < 0 {
		keep = 0
	}
	if len(entries) <= keep {
		return 0, nil
	}

	stale := entries[keep:]
	err = s.db.Update(func(txn *badger.Txn) error {
		for _, e := range stale {
			if err := deleteEntry(txn, e.ID, e.Path, entrySuffix(e)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("pruning snapshots: %w", err)
	}
	return len(stale), nil
}

func deleteEntry(txn *badger.Txn, id uuid.UUID, path string, suffix []byte) error {
	for _, key := range [][]byte{
		makeKey(prefixMeta, path, suffix),
		makeKey(prefixDoc, path, suffix),
		indexKey(id),
	} {
		if err := txn.Delete(key); err != nil {
			return err
		}
	}
	return nil
}

func lookup(txn *badger.Txn, id uuid.UUID) (string, []byte, error) {
	item, err := txn.Get(indexKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return "", nil, err
	}

	value, err := item.ValueCopy(nil)
	if err != nil {
		return "", nil, err
	}
	idx := len(value) - suffixLen - 1
	if idx < 0 || value[idx] != KeySeparator {
		return "", nil, fmt.Errorf("corrupt index for %s", id)
	}
	return string(value[:idx]), value[idx+1:], nil
}

// suffixLen is the length of a big-endian nanosecond stamp plus an id.
const suffixLen = 8 + 16

// entrySuffix orders keys under a path by creation time, then id.
func entrySuffix(e Entry) []byte {
	suffix := make([]byte, 8, suffixLen)
	binary.BigEndian.PutUint64(suffix, uint64(e.CreatedAt.UnixNano()))
	return append(suffix, e.ID[:]...)
}

// makeKey builds <ns>\x00<path>\x00<suffix>.
func makeKey(ns byte, path string, suffix []byte) []byte {
	key := make([]byte, 0, len(path)+len(suffix)+3)
	key = append(key, ns, KeySeparator)
	key = append(key, path...)
	key = append(key, KeySeparator)
	return append(key, suffix...)
}

func indexKey(id uuid.UUID) []byte {
	return append([]byte{prefixIndex, KeySeparator}, id[:]...)
}

func indexValue(path string, suffix []byte) []byte {
	value := make([]byte, 0, len(path)+1+len(suffix))
	value = append(value, path...)
	value = append(value, KeySeparator)
	return append(value, suffix...)
}
