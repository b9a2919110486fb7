package mock

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/napassornsp/restbase-go/pkg/db"
)

// Store implements an in-memory collection store for tests and sandboxing.
// Rows are generic JSON objects; filtering uses the same string-converted
// equality semantics the wire protocol defines.
type Store struct {
	mu          sync.RWMutex
	collections map[string][]map[string]any
}

// New constructs an empty store.
func New() *Store {
	return &Store{collections: make(map[string][]map[string]any)}
}

// Seed loads rows into the named collections, replacing existing contents.
func (s *Store) Seed(collections map[string][]map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for name, rows := range collections {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("mock db: seed entry missing collection name")
		}
		s.collections[name] = cloneRows(rows)
	}
	return nil
}

// LoadSeedFile reads a JSON document mapping collection names to row arrays
// and seeds the store with it.
func (s *Store) LoadSeedFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("mock db: read seed file: %w", err)
	}
	var collections map[string][]map[string]any
	if err := json.Unmarshal(data, &collections); err != nil {
		return fmt.Errorf("mock db: decode seed file: %w", err)
	}
	return s.Seed(collections)
}

// Select returns the rows matching the filters, ordered and windowed.
func (s *Store) Select(ctx context.Context, collection string, filters map[string]string, order *db.OrderSpec, bounds *db.Bounds) ([]map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	rows := s.collections[collection]
	matched := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		if matches(row, filters) {
			matched = append(matched, cloneRow(row))
		}
	}
	s.mu.RUnlock()

	if order != nil {
		sortRows(matched, order)
	}
	return window(matched, bounds), nil
}

// Insert appends the rows, generating an id for any row that lacks one, and
// returns the stored copies.
func (s *Store) Insert(ctx context.Context, collection string, rows []map[string]any) ([]map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(collection) == "" {
		return nil, fmt.Errorf("mock db: collection is required")
	}

	inserted := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		stored := cloneRow(row)
		if _, ok := stored["id"]; !ok {
			stored["id"] = uuid.NewString()
		}
		inserted = append(inserted, stored)
	}

	s.mu.Lock()
	s.collections[collection] = append(s.collections[collection], cloneRows(inserted)...)
	s.mu.Unlock()

	return inserted, nil
}

// Update patches every row matching the filters and returns the new values.
func (s *Store) Update(ctx context.Context, collection string, filters map[string]string, patch map[string]any) ([]map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	updated := make([]map[string]any, 0)
	for _, row := range s.collections[collection] {
		if !matches(row, filters) {
			continue
		}
		for k, v := range patch {
			row[k] = v
		}
		updated = append(updated, cloneRow(row))
	}
	return updated, nil
}

// Delete removes every row matching the filters and returns the removed rows.
func (s *Store) Delete(ctx context.Context, collection string, filters map[string]string) ([]map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := make([]map[string]any, 0)
	removed := make([]map[string]any, 0)
	for _, row := range s.collections[collection] {
		if matches(row, filters) {
			removed = append(removed, row)
		} else {
			kept = append(kept, row)
		}
	}
	s.collections[collection] = kept
	return removed, nil
}

// Backend adapts a Store to the db.Backend interface.
type Backend struct {
	Store *Store
}

// NewBackend wraps the store for use with db.NewWithBackend.
func NewBackend(store *Store) *Backend {
	return &Backend{Store: store}
}

func (b *Backend) Execute(ctx context.Context, req *db.Request) db.Result {
	if b == nil || b.Store == nil {
		return db.Result{Error: "mock db: store not configured"}
	}

	var (
		rows []map[string]any
		err  error
	)
	switch req.Method {
	case db.MethodRead:
		rows, err = b.Store.Select(ctx, req.Collection, req.Filters, req.Order, req.Bounds)
	case db.MethodCreate:
		var payload []map[string]any
		payload, err = payloadRows(req.Payload)
		if err == nil {
			rows, err = b.Store.Insert(ctx, req.Collection, payload)
		}
	case db.MethodUpdate:
		var patch map[string]any
		patch, err = payloadObject(req.Payload)
		if err == nil {
			rows, err = b.Store.Update(ctx, req.Collection, req.Filters, patch)
		}
	case db.MethodDelete:
		rows, err = b.Store.Delete(ctx, req.Collection, req.Filters)
	default:
		err = fmt.Errorf("mock db: unsupported method %d", req.Method)
	}
	if err != nil {
		return db.Result{Error: err.Error()}
	}

	data, err := json.Marshal(rows)
	if err != nil {
		return db.Result{Error: err.Error()}
	}
	return db.Result{Data: data}
}

// payloadRows accepts a single object or an array of objects.
func payloadRows(payload any) ([]map[string]any, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("mock db: encode payload: %w", err)
	}
	var many []map[string]any
	if err := json.Unmarshal(raw, &many); err == nil {
		return many, nil
	}
	var one map[string]any
	if err := json.Unmarshal(raw, &one); err != nil {
		return nil, fmt.Errorf("mock db: payload must be an object or array of objects")
	}
	return []map[string]any{one}, nil
}

func payloadObject(payload any) (map[string]any, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("mock db: encode payload: %w", err)
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("mock db: update payload must be an object")
	}
	return obj, nil
}

func matches(row map[string]any, filters map[string]string) bool {
	for col, want := range filters {
		val, ok := row[col]
		if !ok || fmt.Sprint(val) != want {
			return false
		}
	}
	return true
}

func sortRows(rows []map[string]any, order *db.OrderSpec) {
	sort.SliceStable(rows, func(i, j int) bool {
		less := compareValues(rows[i][order.Column], rows[j][order.Column]) < 0
		if order.Ascending {
			return less
		}
		return compareValues(rows[i][order.Column], rows[j][order.Column]) > 0
	})
}

// compareValues orders nulls first, then numbers, then everything else by
// string conversion.
func compareValues(a, b any) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		default:
			return 1
		}
	}
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if aok && bok {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func window(rows []map[string]any, bounds *db.Bounds) []map[string]any {
	if bounds == nil {
		return rows
	}
	from := bounds.From
	if from < 0 {
		from = 0
	}
	if from >= len(rows) {
		return []map[string]any{}
	}
	to := bounds.To
	if to >= len(rows) {
		to = len(rows) - 1
	}
	if to < from {
		return []map[string]any{}
	}
	return rows[from : to+1]
}

func cloneRow(row map[string]any) map[string]any {
	dst := make(map[string]any, len(row))
	for k, v := range row {
		dst[k] = v
	}
	return dst
}

func cloneRows(rows []map[string]any) []map[string]any {
	dst := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		dst = append(dst, cloneRow(row))
	}
	return dst
}
