package model

// Todo is a single record of the remote todo collection.
// Identity is ID; ids assigned by the server are positive, ids of
// speculative (not yet confirmed) entries are negative.
type Todo struct {
	ID        int    `json:"id"`
	UserID    int    `json:"userId"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

// IsSpeculative reports whether the todo carries a temporary local id.
func (t Todo) IsSpeculative() bool {
	return t.ID < 0
}

// Draft is the body submitted when creating a todo. The server assigns the id.
type Draft struct {
	Title     string `json:"title" validate:"required"`
	Completed bool   `json:"completed"`
	UserID    int    `json:"userId" validate:"gt=0"`
}

// Stats summarizes a todo list.
type Stats struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Pending   int `json:"pending"`
}

// CloneTodos returns a shallow copy of todos so callers can edit the
// slice without touching a cached value.
func CloneTodos(todos []Todo) []Todo {
	if todos == nil {
		return nil
	}
	out := make([]Todo, len(todos))
	copy(out, todos)
	return out
}
