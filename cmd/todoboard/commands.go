package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/nhle/todoboard/internal/model"
	"github.com/nhle/todoboard/internal/querycache"
	"github.com/nhle/todoboard/internal/view"
)

func newListCmd(opts *options) *cobra.Command {
	var (
		search string
		sort   string
		page   int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print one page of the filtered and sorted todo list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := view.ParseSortMode(sort)
			if err != nil {
				return err
			}

			return withRuntime(cmd, opts, func(ctx context.Context, rt *runtime) error {
				todos, err := querycache.Fetch(ctx, rt.store, rt.api.AllTodos())
				if err != nil {
					return fmt.Errorf("fetching todos: %w", err)
				}

				res := view.Derive(todos, search, mode, page, rt.api.PageSize())
				writeTodos(cmd.OutOrStdout(), res, page)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&search, "search", "s", "", "Case-insensitive title filter")
	cmd.Flags().StringVar(&sort, "sort", string(view.SortDefault), "Sort mode: default|completed-first|pending-first")
	cmd.Flags().IntVarP(&page, "page", "p", 1, "Page number, 1-based")

	return cmd
}

func newStatsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print total, completed and pending counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, opts, func(ctx context.Context, rt *runtime) error {
				s, err := querycache.Fetch(ctx, rt.store, rt.api.Stats())
				if err != nil {
					return fmt.Errorf("fetching stats: %w", err)
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Total:     %d\n", s.Total)
				fmt.Fprintf(out, "Completed: %d (%d%%)\n", s.Completed, view.Percent(s.Completed, s.Total))
				fmt.Fprintf(out, "Pending:   %d (%d%%)\n", s.Pending, view.Percent(s.Pending, s.Total))
				return nil
			})
		},
	}
}

func newAddCmd(opts *options) *cobra.Command {
	var (
		done   bool
		userID int
	)

	cmd := &cobra.Command{
		Use:   "add <title...>",
		Short: "Create a todo",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			draft := model.Draft{
				Title:     strings.Join(args, " "),
				Completed: done,
				UserID:    opts.cfg.API.UserID,
			}
			if cmd.Flags().Changed("user") {
				draft.UserID = userID
			}

			return withRuntime(cmd, opts, func(ctx context.Context, rt *runtime) error {
				todo, err := rt.api.CreateTodo(ctx, draft)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created #%d %q\n", todo.ID, todo.Title)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&done, "done", false, "Create the todo already completed")
	cmd.Flags().IntVar(&userID, "user", 0, "Owner user id (defaults to api.user_id)")

	return cmd
}

// withRuntime builds a runtime for a single command, runs fn and tears
// the runtime down again.
func withRuntime(cmd *cobra.Command, opts *options, fn func(ctx context.Context, rt *runtime) error) error {
	rt, err := newRuntime(opts.cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := fn(cmd.Context(), rt); err != nil {
		return err
	}

	if opts.metrics {
		return rt.writeMetrics(cmd.ErrOrStderr())
	}
	return nil
}

// writeTodos renders one derived page as a table with a footer.
func writeTodos(w io.Writer, res view.Result, page int) {
	if len(res.Items) == 0 {
		if res.Total == 0 {
			fmt.Fprintln(w, "No todos found.")
		} else {
			fmt.Fprintf(w, "Page %d is empty (%d pages).\n", page, res.TotalPages)
		}
		return
	}

	rows := make([][]string, len(res.Items))
	for i, t := range res.Items {
		status := "Pending"
		if t.Completed {
			status = "Completed"
		}
		rows[i] = []string{strconv.Itoa(t.ID), status, t.Title}
	}

	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "STATUS", "TITLE").
		Rows(rows...)

	fmt.Fprintln(w, tbl.String())
	fmt.Fprintf(w, "Page %d/%d, %d todos\n", page, res.TotalPages, res.Total)
}
