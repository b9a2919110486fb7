package db

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Builder accumulates the state of one chain. All mutating calls happen
// synchronously in caller order before any network activity, so the final
// request always reflects the last value set for each field.
type Builder struct {
	backend Backend
	req     Request

	rng   *Bounds
	limit *int

	execOnce sync.Once
	result   Result
}

// Select is a parity no-op: it marks the intent of the chain but does not
// restrict the transmitted fields.
func (b *Builder) Select(columns ...string) *Builder {
	return b
}

// Eq adds or overwrites an equality filter for the column. Values are
// serialized via string conversion; the last write per column wins.
func (b *Builder) Eq(column string, value any) *Builder {
	b.req.Filters[column] = fmt.Sprint(value)
	return b
}

// Order sets the sole sort key of the chain. A nil opts (or nil Ascending)
// sorts ascending. Later calls overwrite earlier ones.
func (b *Builder) Order(column string, opts *OrderOptions) *Builder {
	asc := true
	if opts != nil && opts.Ascending != nil {
		asc = *opts.Ascending
	}
	b.req.Order = &OrderSpec{Column: column, Ascending: asc}
	return b
}

// Range sets the inclusive pagination window. Once set, it wins over Limit
// regardless of call order.
func (b *Builder) Range(from, to int) *Builder {
	b.rng = &Bounds{From: from, To: to}
	return b
}

// Limit caps the result count. It is emitted as the window [0, n-1], and is
// ignored whenever Range was called on the chain.
func (b *Builder) Limit(n int) *Builder {
	b.limit = &n
	return b
}

// Insert marks the chain as a create and stores the request payload.
func (b *Builder) Insert(payload any) *Builder {
	b.req.Method = MethodCreate
	b.req.Payload = payload
	return b
}

// Update marks the chain as an update and stores the request payload. It is
// typically followed by Eq calls scoping the target rows.
func (b *Builder) Update(payload any) *Builder {
	b.req.Method = MethodUpdate
	b.req.Payload = payload
	return b
}

// Delete marks the chain as a delete and returns a restricted builder that
// only exposes Eq and the terminals, so deletes are explicitly scoped.
func (b *Builder) Delete() *DeleteBuilder {
	b.req.Method = MethodDelete
	return &DeleteBuilder{b: b}
}

// Exec executes the chain and resolves to its normalized result. The
// execution is memoized: repeated terminal calls on the same builder never
// re-issue the request and all yield the identical result.
func (b *Builder) Exec(ctx context.Context) Result {
	b.execOnce.Do(func() {
		if b.backend == nil {
			b.result = Result{Error: ErrNilClient.Error()}
			return
		}
		req := b.req
		req.Bounds = b.resolveBounds()
		b.result = b.backend.Execute(ctx, &req)
	})
	return b.result
}

// Single executes the chain and, when the raw result is an array, resolves to
// its first element, or null when empty.
func (b *Builder) Single(ctx context.Context) Result {
	return firstElement(b.Exec(ctx))
}

// MaybeSingle behaves identically to Single. The upstream client draws no
// distinction between the two, and that looseness is preserved here.
func (b *Builder) MaybeSingle(ctx context.Context) Result {
	return b.Single(ctx)
}

func (b *Builder) resolveBounds() *Bounds {
	if b.rng != nil {
		bounds := *b.rng
		return &bounds
	}
	if b.limit != nil {
		return &Bounds{From: 0, To: *b.limit - 1}
	}
	return nil
}

// DeleteBuilder is the restricted chain surface returned by Delete.
type DeleteBuilder struct {
	b *Builder
}

// Eq adds or overwrites an equality filter scoping the delete.
func (d *DeleteBuilder) Eq(column string, value any) *DeleteBuilder {
	d.b.Eq(column, value)
	return d
}

// Exec executes the delete and resolves to its normalized result.
func (d *DeleteBuilder) Exec(ctx context.Context) Result {
	return d.b.Exec(ctx)
}

// Single executes the delete and resolves to the first deleted row, if any.
func (d *DeleteBuilder) Single(ctx context.Context) Result {
	return d.b.Single(ctx)
}

// firstElement reduces an array result to its first element, or null.
func firstElement(res Result) Result {
	if res.Error != nil || len(res.Data) == 0 {
		return res
	}
	trimmed := bytes.TrimSpace(res.Data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return res
	}
	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return res
	}
	if len(items) == 0 {
		return Result{}
	}
	return Result{Data: items[0]}
}
