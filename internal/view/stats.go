package view

import "github.com/nhle/todoboard/internal/model"

// ComputeStats folds todos into totals.
func ComputeStats(todos []model.Todo) model.Stats {
	var s model.Stats
	for _, t := range todos {
		if t.Completed {
			s.Completed++
		}
	}
	s.Total = len(todos)
	s.Pending = s.Total - s.Completed
	return s
}

// Percent returns part as a whole-number percentage of total.
func Percent(part, total int) int {
	if total <= 0 {
		return 0
	}
	return part * 100 / total
}
