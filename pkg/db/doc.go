// Package db implements the row-oriented query builder of the restbase SDK.
//
// A Builder accumulates filter, order and pagination state through a fluent
// chain of calls and translates the whole chain into a single HTTP request
// against /db/{collection} when a terminal call (Exec, Single, MaybeSingle)
// is made. Terminal results are memoized: one builder issues at most one
// network request, and a builder must not be reused after its terminal call.
package db
