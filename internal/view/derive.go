// Package view computes the filtered, sorted and paginated slices of a
// todo list shown to the user. Everything here is pure: the same inputs
// always produce the same output, and inputs are never modified.
package view

import (
	"fmt"
	"slices"
	"strings"

	"github.com/nhle/todoboard/internal/model"
)

// SortMode orders the filtered list.
type SortMode string

const (
	SortDefault        SortMode = "default"
	SortCompletedFirst SortMode = "completed-first"
	SortPendingFirst   SortMode = "pending-first"
)

var sortModes = []SortMode{SortDefault, SortCompletedFirst, SortPendingFirst}

// ParseSortMode parses a sort mode name. The empty string is SortDefault.
func ParseSortMode(s string) (SortMode, error) {
	if s == "" {
		return SortDefault, nil
	}
	mode := SortMode(strings.ToLower(strings.TrimSpace(s)))
	if !slices.Contains(sortModes, mode) {
		return "", fmt.Errorf("unknown sort mode %q (want default, completed-first or pending-first)", s)
	}
	return mode, nil
}

// Next returns the mode following m, wrapping around.
func (m SortMode) Next() SortMode {
	i := slices.Index(sortModes, m)
	return sortModes[(i+1)%len(sortModes)]
}

// Label returns a short human-readable name.
func (m SortMode) Label() string {
	switch m {
	case SortCompletedFirst:
		return "Completed first"
	case SortPendingFirst:
		return "Pending first"
	default:
		return "Default"
	}
}

// Result is one page of the derived list.
type Result struct {
	Items      []model.Todo
	TotalPages int
	// Total is the number of todos matching the search, across all pages.
	Total int
}

// Derive filters todos by search, sorts them by mode and returns page
// (1-based) of pageSize items. The steps always run in that order.
//
// A page outside [1, TotalPages] yields no items. A pageSize below 1 is
// treated as 1. Callers reset page to 1 whenever search or mode change.
func Derive(todos []model.Todo, search string, mode SortMode, page, pageSize int) Result {
	if pageSize < 1 {
		pageSize = 1
	}

	filtered := Filter(todos, search)
	sorted := Sort(filtered, mode)

	res := Result{
		Total:      len(sorted),
		TotalPages: (len(sorted) + pageSize - 1) / pageSize,
		Items:      []model.Todo{},
	}
	if page < 1 {
		return res
	}

	start := (page - 1) * pageSize
	if start >= len(sorted) {
		return res
	}
	end := min(start+pageSize, len(sorted))
	res.Items = sorted[start:end]
	return res
}

// Filter keeps the todos whose title contains search, ignoring case.
// A blank search keeps everything; otherwise search is matched as
// typed, surrounding spaces included. The result never aliases todos.
func Filter(todos []model.Todo, search string) []model.Todo {
	blank := strings.TrimSpace(search) == ""
	q := strings.ToLower(search)
	out := make([]model.Todo, 0, len(todos))
	for _, t := range todos {
		if blank || strings.Contains(strings.ToLower(t.Title), q) {
			out = append(out, t)
		}
	}
	return out
}

// Sort returns a stably sorted copy of todos.
func Sort(todos []model.Todo, mode SortMode) []model.Todo {
	out := model.CloneTodos(todos)

	var rank func(model.Todo) int
	switch mode {
	case SortCompletedFirst:
		rank = func(t model.Todo) int {
			if t.Completed {
				return 0
			}
			return 1
		}
	case SortPendingFirst:
		rank = func(t model.Todo) int {
			if t.Completed {
				return 1
			}
			return 0
		}
	default:
		return out
	}

	slices.SortStableFunc(out, func(a, b model.Todo) int {
		return rank(a) - rank(b)
	})
	return out
}
