package command

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nhle/todoboard/internal/model"
	"github.com/nhle/todoboard/internal/view"
)

// Kind identifies a palette command.
type Kind int

const (
	KindSort Kind = iota + 1
	KindPage
	KindTheme
	KindRefresh
	KindAdd
	KindQuit
)

// Command is a parsed palette line.
type Command struct {
	Kind  Kind
	Sort  view.SortMode
	Page  int
	Theme string
	Title string
}

// Parse turns a palette line into a Command. The verb is
// case-insensitive; the rest of the line is its argument.
func Parse(line string) (Command, error) {
	verb, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(verb) {
	case "sort":
		mode, err := view.ParseSortMode(arg)
		if err != nil {
			return Command{}, err
		}
		return Command{Kind: KindSort, Sort: mode}, nil

	case "page":
		n, err := strconv.Atoi(arg)
		if err != nil || n < 1 {
			return Command{}, fmt.Errorf("page wants a positive number, got %q", arg)
		}
		return Command{Kind: KindPage, Page: n}, nil

	case "theme":
		switch arg {
		case model.ThemeLight, model.ThemeDark:
			return Command{Kind: KindTheme, Theme: arg}, nil
		}
		return Command{}, fmt.Errorf("unknown theme %q", arg)

	case "refresh", "r":
		return Command{Kind: KindRefresh}, nil

	case "add", "new":
		return Command{Kind: KindAdd, Title: arg}, nil

	case "quit", "q":
		return Command{Kind: KindQuit}, nil

	case "":
		return Command{}, fmt.Errorf("empty command")
	}

	return Command{}, fmt.Errorf("unknown command %q", verb)
}

// Usage is one line of palette help.
type Usage struct {
	Syntax      string
	Description string
}

// Usages lists the palette commands in the order help shows them.
func Usages() []Usage {
	return []Usage{
		{"sort <default|completed-first|pending-first>", "change the list order"},
		{"page <n>", "jump to a page"},
		{"theme <light|dark>", "switch palettes"},
		{"add <title>", "create a todo"},
		{"refresh, r", "refetch every query"},
		{"quit, q", "leave todoboard"},
	}
}
