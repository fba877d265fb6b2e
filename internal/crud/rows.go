package crud

import (
	"sort"
	"strings"
)

// Row is a record with its resolved reference labels.
type Row[T Record] struct {
	Record T
	Labels map[string]string
	search []string
}

func newRow[T Record](record T, labels map[string]string, text []string) Row[T] {
	search := make([]string, 0, len(text))
	for _, t := range text {
		if t != "" {
			search = append(search, strings.ToLower(t))
		}
	}
	return Row[T]{Record: record, Labels: labels, search: search}
}

// Label returns a resolved reference label, e.g. "category".
func (r Row[T]) Label(name string) string {
	return r.Labels[name]
}

// Matches reports whether any searchable text contains query, ignoring case.
func (r Row[T]) Matches(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	for _, s := range r.search {
		if strings.Contains(s, q) {
			return true
		}
	}
	return false
}

// Filter keeps the rows matching query. Order is preserved and the result can
// be filtered again with the same query without change.
func Filter[T Record](rows []Row[T], query string) []Row[T] {
	out := make([]Row[T], 0, len(rows))
	for _, row := range rows {
		if row.Matches(query) {
			out = append(out, row)
		}
	}
	return out
}

// SortNewestFirst orders rows by creation time, newest first. Records
// without a creation time keep their relative order at the end.
func SortNewestFirst[T Record](rows []Row[T]) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].Record.Created(), rows[j].Record.Created()
		if a.IsZero() != b.IsZero() {
			return !a.IsZero()
		}
		return a.After(b)
	})
}
