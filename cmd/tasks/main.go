package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"task-list/internal/config"
	"task-list/internal/logging"
	"task-list/internal/session"
	"task-list/pkg/persist"
	"task-list/pkg/task"
)

// env is the state shared by every subcommand for one invocation.
type env struct {
	cfg     *config.Config
	sess    *session.Session
	closeGW func()
}

var app env

func main() {
	var cfgPath string
	rootCmd := &cobra.Command{
		Use:           "tasks",
		Short:         "Manage the task list from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.open(cmd, cfgPath)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return app.close()
		},
	}
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to a tasks.toml file")

	rootCmd.AddCommand(addCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(getCmd())
	rootCmd.AddCommand(setDoneCmd("done", "Mark a task completed", true))
	rootCmd.AddCommand(setDoneCmd("undo", "Mark a task not completed", false))
	rootCmd.AddCommand(updateCmd())
	rootCmd.AddCommand(rmCmd())
	rootCmd.AddCommand(completeAllCmd())
	rootCmd.AddCommand(clearCompletedCmd())
	rootCmd.AddCommand(statusCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "tasks: %v\n", err)
		if app.closeGW != nil {
			app.closeGW()
		}
		os.Exit(1)
	}
}

const mutates = "mutates"

func (e *env) open(cmd *cobra.Command, cfgPath string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logging.Setup(cfg.LogLevel, cfg.LogFormat, "tasks")
	ctx := cmd.Context()
	gw, closeGW, err := session.OpenGateway(ctx, cfg)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	e.cfg, e.closeGW = cfg, closeGW

	// Every command is one short-lived edit, so save after each change.
	sess, err := session.Open(ctx, gw, session.Options{Mode: persist.ModeSync})
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	e.sess = sess

	if cmd.Annotations[mutates] != "" && persist.IsKind(sess.LoadError(), persist.KindDeserialization) {
		return fmt.Errorf("refusing to modify unreadable task file: %w", sess.LoadError())
	}
	return nil
}

func (e *env) close() error {
	closeGW := e.closeGW
	e.closeGW = nil
	defer closeGW()
	if err := e.sess.Close(context.Background()); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	if st := e.sess.SaveStatus(); st.Attempted() && !st.OK {
		return fmt.Errorf("save: %w", st.Err)
	}
	return nil
}

func addCmd() *cobra.Command {
	var title, tags, due string
	cmd := &cobra.Command{
		Use:         "add",
		Short:       "Add a task",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{mutates: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := app.sess.AddTask(title, tags, due)
			if err != nil {
				return fmt.Errorf("add: %w", err)
			}
			return printJSON(t)
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "Task title")
	cmd.Flags().StringVar(&tags, "tags", "", "Free-form tags")
	cmd.Flags().StringVar(&due, "due", "", "Due date (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func listCmd() *cobra.Command {
	var tag, format string
	var pending bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tasks := filterTasks(app.sess.Tasks(), tag, pending)
			if format == "short" {
				printShortTasks(tasks)
				return nil
			}
			return printJSON(tasks)
		},
	}
	cmd.Flags().StringVar(&tag, "tag", "", "Only tasks whose tags contain this text")
	cmd.Flags().BoolVar(&pending, "pending", false, "Only tasks not completed")
	cmd.Flags().StringVar(&format, "format", "json", "Output format (json, short)")
	return cmd
}

func filterTasks(tasks []task.Task, tag string, pending bool) []task.Task {
	out := make([]task.Task, 0, len(tasks))
	for _, t := range tasks {
		if tag != "" && !strings.Contains(t.Tags, tag) {
			continue
		}
		if pending && t.IsCompleted {
			continue
		}
		out = append(out, t)
	}
	return out
}

func getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := resolve(app.sess, args[0])
			if err != nil {
				return err
			}
			return printJSON(t)
		},
	}
}

func setDoneCmd(use, short string, done bool) *cobra.Command {
	return &cobra.Command{
		Use:         use + " <id>",
		Short:       short,
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{mutates: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := resolve(app.sess, args[0])
			if err != nil {
				return err
			}
			app.sess.SetCompleted(t.ID, done)
			return nil
		},
	}
}

func updateCmd() *cobra.Command {
	var title, tags, due string
	cmd := &cobra.Command{
		Use:         "update <id>",
		Short:       "Change a task's title, tags or due date",
		Long:        "Change a task's title, tags or due date. An empty --due clears the date.",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{mutates: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := resolve(app.sess, args[0])
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if !flags.Changed("title") && !flags.Changed("tags") && !flags.Changed("due") {
				return fmt.Errorf("nothing to update: pass --title, --tags or --due")
			}
			if flags.Changed("title") {
				if err := app.sess.Rename(t.ID, title); err != nil {
					return fmt.Errorf("update title: %w", err)
				}
			}
			if flags.Changed("tags") {
				if err := app.sess.SetTags(t.ID, tags); err != nil {
					return fmt.Errorf("update tags: %w", err)
				}
			}
			if flags.Changed("due") {
				if err := app.sess.SetDue(t.ID, due); err != nil {
					return fmt.Errorf("update due: %w", err)
				}
			}
			updated, _ := app.sess.Task(t.ID)
			return printJSON(updated)
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "New title")
	cmd.Flags().StringVar(&tags, "tags", "", "New tags")
	cmd.Flags().StringVar(&due, "due", "", "New due date (YYYY-MM-DD), empty to clear")
	return cmd
}

func rmCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "rm <id>",
		Short:       "Delete a task",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{mutates: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := resolve(app.sess, args[0])
			if err != nil {
				return err
			}
			app.sess.Delete(t.ID)
			return nil
		},
	}
}

func completeAllCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "complete-all",
		Short:       "Mark every task completed",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{mutates: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			app.sess.CompleteAll()
			return nil
		},
	}
}

func clearCompletedCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "clear-completed",
		Short:       "Remove completed tasks",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{mutates: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			n := app.sess.ClearCompleted()
			fmt.Printf("Removed %d completed tasks\n", n)
			return nil
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show storage and counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tasks := app.sess.Tasks()
			done := 0
			for _, t := range tasks {
				if t.IsCompleted {
					done++
				}
			}
			storage := app.cfg.DataFile
			if app.cfg.DatabaseURL != "" {
				storage = "postgres"
			}
			fmt.Printf("Storage: %s\n", storage)
			fmt.Printf("Tasks:   %d (%d completed, %d pending)\n", len(tasks), done, len(tasks)-done)
			if err := app.sess.LoadError(); err != nil {
				fmt.Printf("Load:    %v\n", err)
			}
			return nil
		},
	}
}

// resolve finds a task by id or by a unique id prefix.
func resolve(sess *session.Session, id string) (task.Task, error) {
	if t, ok := sess.Task(id); ok {
		return t, nil
	}
	var match []task.Task
	for _, t := range sess.Tasks() {
		if strings.HasPrefix(t.ID, id) {
			match = append(match, t)
		}
	}
	switch len(match) {
	case 0:
		return task.Task{}, fmt.Errorf("no task with id %s", id)
	case 1:
		return match[0], nil
	}
	return task.Task{}, fmt.Errorf("id prefix %s matches %d tasks", id, len(match))
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode JSON: %w", err)
	}
	return nil
}

func printShortTasks(tasks []task.Task) {
	for _, t := range tasks {
		mark := " "
		if t.IsCompleted {
			mark = "x"
		}
		line := fmt.Sprintf("[%s] %s  %s", mark, truncStr(t.ID, 8), t.Title)
		if t.Tags != "" {
			line += "  #" + t.Tags
		}
		if t.DueDate != nil {
			line += "  due " + t.DueDate.Local().Format(task.DueLayout)
		}
		fmt.Println(line)
	}
}

func truncStr(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
