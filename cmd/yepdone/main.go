package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/baiirun/yepdone/internal/actions"
	"github.com/baiirun/yepdone/internal/buckets"
	"github.com/baiirun/yepdone/internal/config"
	"github.com/baiirun/yepdone/internal/controller"
	"github.com/baiirun/yepdone/internal/dates"
	"github.com/baiirun/yepdone/internal/db"
	"github.com/baiirun/yepdone/internal/model"
	"github.com/baiirun/yepdone/internal/tui"
)

var logger = log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: false})

// app bundles what every command needs.
type app struct {
	cfg *config.Config
	db  *db.DB
	svc *actions.Service
}

func setup() (*app, error) {
	cfgPath, err := config.DefaultPath()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath, err = db.DefaultPath()
		if err != nil {
			return nil, err
		}
	}
	database, err := db.Open(dbPath)
	if err != nil {
		return nil, err
	}

	svc := actions.NewService(database, actions.StaticSession(cfg.UserID), logger)
	return &app{cfg: cfg, db: database, svc: svc}, nil
}

// workspaceID resolves the workspace to operate in: the configured one,
// or the caller's only workspace.
func (a *app) workspaceID() (string, error) {
	if a.cfg.Workspace != "" {
		return a.cfg.Workspace, nil
	}
	workspaces, err := a.svc.ListWorkspaces()
	if err != nil {
		return "", err
	}
	if len(workspaces) == 0 {
		return "", fmt.Errorf("no workspaces; run `yepdone login` first")
	}
	if len(workspaces) > 1 {
		return "", fmt.Errorf("multiple workspaces; pick one with `yepdone workspace use <id>`")
	}
	return workspaces[0].ID, nil
}

// findTodo resolves an id or unique id prefix within the workspace.
func (a *app) findTodo(workspaceID, prefix string) (*model.Todo, error) {
	todos, err := a.svc.ListTodos(workspaceID)
	if err != nil {
		return nil, err
	}
	var match *model.Todo
	for i := range todos {
		if todos[i].ID == prefix {
			return &todos[i], nil
		}
		if strings.HasPrefix(todos[i].ID, prefix) {
			if match != nil {
				return nil, fmt.Errorf("id prefix %q is ambiguous", prefix)
			}
			match = &todos[i]
		}
	}
	if match == nil {
		return nil, fmt.Errorf("no todo matches %q", prefix)
	}
	return match, nil
}

var rootCmd = &cobra.Command{
	Use:   "yepdone",
	Short: "Shared todo lists with due-date buckets",
	Long:  `A CLI and terminal board for collaborative todo lists. Titles are scanned for dates ("call mom tomorrow 5pm"), and todos land in one of three due buckets.`,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the yepdone database",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		defer func() { _ = a.db.Close() }()
		if err := a.db.Init(); err != nil {
			return err
		}
		fmt.Println("Database initialized")
		return nil
	},
}

var loginName string

var loginCmd = &cobra.Command{
	Use:   "login <email>",
	Short: "Sign in (creates the account and a Personal workspace on first use)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		defer func() { _ = a.db.Close() }()
		if err := a.db.Init(); err != nil {
			return err
		}

		user, err := a.svc.Login(loginName, args[0])
		if err != nil {
			return err
		}
		a.cfg.UserID = user.ID
		if err := a.cfg.Save(); err != nil {
			return err
		}
		fmt.Printf("Signed in as %s\n", user.Email)
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		defer func() { _ = a.db.Close() }()

		user, err := a.svc.CurrentUser()
		if err != nil {
			return err
		}
		fmt.Printf("%s <%s>\n", user.Name, user.Email)
		return nil
	},
}

var workspaceCmd = &cobra.Command{
	Use:   "workspace",
	Short: "Manage workspaces",
}

var workspaceCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a workspace (you become its owner)",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		defer func() { _ = a.db.Close() }()

		ws, err := a.svc.CreateWorkspace(strings.Join(args, " "))
		if err != nil {
			return err
		}
		fmt.Printf("Created workspace %s (%s)\n", ws.Name, ws.ID)
		return nil
	},
}

var workspaceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your workspaces",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		defer func() { _ = a.db.Close() }()

		workspaces, err := a.svc.ListWorkspaces()
		if err != nil {
			return err
		}
		for _, ws := range workspaces {
			marker := " "
			if ws.ID == a.cfg.Workspace {
				marker = "*"
			}
			fmt.Printf("%s %s  %s\n", marker, ws.ID, ws.Name)
		}
		return nil
	},
}

var workspaceUseCmd = &cobra.Command{
	Use:   "use <id>",
	Short: "Make a workspace the current one",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		defer func() { _ = a.db.Close() }()

		in, err := a.svc.CheckMembership(args[0])
		if err != nil {
			return err
		}
		if !in {
			return fmt.Errorf("not a member of workspace %s", args[0])
		}
		a.cfg.Workspace = args[0]
		if err := a.cfg.Save(); err != nil {
			return err
		}
		fmt.Printf("Using workspace %s\n", args[0])
		return nil
	},
}

var workspaceDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a workspace and everything in it (owner only)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		defer func() { _ = a.db.Close() }()

		ws, err := a.svc.DeleteWorkspace(args[0])
		if err != nil {
			return err
		}
		if a.cfg.Workspace == ws.ID {
			a.cfg.Workspace = ""
			if err := a.cfg.Save(); err != nil {
				return err
			}
		}
		fmt.Printf("Deleted workspace %s\n", ws.Name)
		return nil
	},
}

var workspaceLeaveCmd = &cobra.Command{
	Use:   "leave <id>",
	Short: "Leave a workspace you were invited to",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		defer func() { _ = a.db.Close() }()

		if err := a.svc.LeaveWorkspace(args[0]); err != nil {
			return err
		}
		if a.cfg.Workspace == args[0] {
			a.cfg.Workspace = ""
			if err := a.cfg.Save(); err != nil {
				return err
			}
		}
		fmt.Println("Left workspace")
		return nil
	},
}

var workspaceMembersCmd = &cobra.Command{
	Use:   "members",
	Short: "List members of the current workspace",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		defer func() { _ = a.db.Close() }()

		wsID, err := a.workspaceID()
		if err != nil {
			return err
		}
		members, err := a.svc.ListMembers(wsID)
		if err != nil {
			return err
		}
		for _, m := range members {
			fmt.Printf("%-8s %s\n", m.Role, m.UserID)
		}
		return nil
	},
}

var workspaceKickCmd = &cobra.Command{
	Use:   "kick <user-id>",
	Short: "Remove a member from the current workspace (owner only)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		defer func() { _ = a.db.Close() }()

		wsID, err := a.workspaceID()
		if err != nil {
			return err
		}
		if err := a.svc.KickMember(wsID, args[0]); err != nil {
			return err
		}
		fmt.Println("Member removed")
		return nil
	},
}

var inviteCmd = &cobra.Command{
	Use:   "invite",
	Short: "Invite people to the current workspace",
}

var inviteCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Generate an invite code",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		defer func() { _ = a.db.Close() }()

		wsID, err := a.workspaceID()
		if err != nil {
			return err
		}
		invite, err := a.svc.CreateInvite(wsID, a.cfg.InviteTTL())
		if err != nil {
			return err
		}
		fmt.Printf("Invite code: %s (expires %s)\n", invite.Code, invite.ExpiresAt.Format("2006-01-02 15:04"))
		return nil
	},
}

var inviteAcceptCmd = &cobra.Command{
	Use:   "accept <code>",
	Short: "Join a workspace with an invite code",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		defer func() { _ = a.db.Close() }()

		m, err := a.svc.AcceptInvite(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Joined workspace %s\n", m.WorkspaceID)
		return nil
	},
}

var addPriority int

var addCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Add a todo (the title is scanned for a due date)",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		defer func() { _ = a.db.Close() }()

		wsID, err := a.workspaceID()
		if err != nil {
			return err
		}

		title := strings.Join(args, " ")
		var due *string
		if when, ok := dates.Extract(title, time.Now()); ok {
			s := model.FormatDueDate(when)
			due = &s
		}

		todo, err := a.svc.CreateTodo(wsID, title, due, addPriority)
		if err != nil {
			return err
		}
		if todo.DueDate != nil {
			when := model.ParseDueDate(todo.DueDate)
			fmt.Printf("Added %s (due %s)\n", shortID(todo.ID), when.Format("Mon Jan 2 15:04"))
		} else {
			fmt.Printf("Added %s\n", shortID(todo.ID))
		}
		return nil
	},
}

var listAll bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List todos grouped by due bucket",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		defer func() { _ = a.db.Close() }()

		wsID, err := a.workspaceID()
		if err != nil {
			return err
		}
		todos, err := a.svc.ListTodos(wsID)
		if err != nil {
			return err
		}

		now := time.Now()
		board := buckets.Categorize(todos, now)
		for _, id := range buckets.All() {
			group := board.Get(id)
			if len(group) == 0 {
				continue
			}
			fmt.Printf("%s\n", id.Title())
			for _, todo := range group {
				printTodo(todo)
			}
			fmt.Println()
		}

		if listAll {
			fmt.Println("Completed")
			for _, todo := range todos {
				if todo.Completed {
					printTodo(todo)
				}
			}
		}
		return nil
	},
}

func printTodo(todo model.Todo) {
	mark := " "
	if todo.Completed {
		mark = "x"
	}
	due := ""
	if when := model.ParseDueDate(todo.DueDate); when != nil {
		due = "  (due " + when.Format("Jan 2 15:04") + ")"
	}
	fmt.Printf("  [%s] %s  %s%s\n", mark, shortID(todo.ID), todo.Title, due)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

var doneCmd = &cobra.Command{
	Use:   "done <id>",
	Short: "Toggle a todo's completed state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		defer func() { _ = a.db.Close() }()

		wsID, err := a.workspaceID()
		if err != nil {
			return err
		}
		todo, err := a.findTodo(wsID, args[0])
		if err != nil {
			return err
		}
		updated, err := a.svc.ToggleTodo(todo.ID)
		if err != nil {
			return err
		}
		if updated.Completed {
			fmt.Printf("Done: %s\n", updated.Title)
		} else {
			fmt.Printf("Reopened: %s\n", updated.Title)
		}
		return nil
	},
}

var rmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a todo and its comments",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		defer func() { _ = a.db.Close() }()

		wsID, err := a.workspaceID()
		if err != nil {
			return err
		}
		todo, err := a.findTodo(wsID, args[0])
		if err != nil {
			return err
		}
		deleted, err := a.svc.DeleteTodo(todo.ID)
		if err != nil {
			return err
		}
		fmt.Printf("Deleted: %s\n", deleted.Title)
		return nil
	},
}

var dueCmd = &cobra.Command{
	Use:   "due <id> <when>",
	Short: "Reschedule a todo (\"tomorrow 5pm\", \"dec 5\", \"clear\")",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		defer func() { _ = a.db.Close() }()

		wsID, err := a.workspaceID()
		if err != nil {
			return err
		}
		todo, err := a.findTodo(wsID, args[0])
		if err != nil {
			return err
		}

		text := strings.Join(args[1:], " ")
		if text == "clear" {
			if _, err := a.svc.UpdateDueDate(todo.ID, nil); err != nil {
				return err
			}
			fmt.Println("Due date cleared")
			return nil
		}

		when, ok := dates.Extract(text, time.Now())
		if !ok {
			return fmt.Errorf("couldn't find a date in %q", text)
		}
		due := model.FormatDueDate(when)
		if _, err := a.svc.UpdateDueDate(todo.ID, &due); err != nil {
			return err
		}
		fmt.Printf("Due %s\n", when.Format("Mon Jan 2 15:04"))
		return nil
	},
}

var commentCmd = &cobra.Command{
	Use:   "comment",
	Short: "Manage comments on a todo",
}

var commentAddCmd = &cobra.Command{
	Use:   "add <todo-id> <text>",
	Short: "Comment on a todo",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		defer func() { _ = a.db.Close() }()

		wsID, err := a.workspaceID()
		if err != nil {
			return err
		}
		todo, err := a.findTodo(wsID, args[0])
		if err != nil {
			return err
		}
		if _, err := a.svc.CreateComment(todo.ID, strings.Join(args[1:], " ")); err != nil {
			return err
		}
		fmt.Println("Comment added")
		return nil
	},
}

var commentListCmd = &cobra.Command{
	Use:   "list <todo-id>",
	Short: "Show a todo's comments",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		defer func() { _ = a.db.Close() }()

		wsID, err := a.workspaceID()
		if err != nil {
			return err
		}
		todo, err := a.findTodo(wsID, args[0])
		if err != nil {
			return err
		}
		comments, err := a.svc.ListComments(todo.ID)
		if err != nil {
			return err
		}
		for _, c := range comments {
			fmt.Printf("%s  %s  %s\n", shortID(c.ID), c.CreatedAt.Format("Jan 2 15:04"), c.Content)
		}
		return nil
	},
}

var commentRmCmd = &cobra.Command{
	Use:   "rm <comment-id>",
	Short: "Delete a comment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		defer func() { _ = a.db.Close() }()

		if _, err := a.svc.DeleteComment(args[0]); err != nil {
			return err
		}
		fmt.Println("Comment deleted")
		return nil
	},
}

var boardCmd = &cobra.Command{
	Use:   "board",
	Short: "Open the interactive board",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		defer func() { _ = a.db.Close() }()

		wsID, err := a.workspaceID()
		if err != nil {
			return err
		}

		notices := tui.NewNotices()
		ctrl := controller.New(a.svc, notices, wsID, logger)
		revoked, err := tui.Run(ctrl, notices, a.cfg.PollInterval(), logger)
		if err != nil {
			return err
		}
		if revoked {
			logger.Warn("you no longer have access to this workspace")
			if a.cfg.Workspace == wsID {
				a.cfg.Workspace = ""
				return a.cfg.Save()
			}
		}
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginName, "name", "", "display name")
	addCmd.Flags().IntVarP(&addPriority, "priority", "p", 3, "priority 1 (low) to 5 (high)")
	listCmd.Flags().BoolVarP(&listAll, "all", "a", false, "include completed todos")

	workspaceCmd.AddCommand(workspaceCreateCmd)
	workspaceCmd.AddCommand(workspaceListCmd)
	workspaceCmd.AddCommand(workspaceUseCmd)
	workspaceCmd.AddCommand(workspaceDeleteCmd)
	workspaceCmd.AddCommand(workspaceLeaveCmd)
	workspaceCmd.AddCommand(workspaceMembersCmd)
	workspaceCmd.AddCommand(workspaceKickCmd)

	inviteCmd.AddCommand(inviteCreateCmd)
	inviteCmd.AddCommand(inviteAcceptCmd)

	commentCmd.AddCommand(commentAddCmd)
	commentCmd.AddCommand(commentListCmd)
	commentCmd.AddCommand(commentRmCmd)

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(workspaceCmd)
	rootCmd.AddCommand(inviteCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(doneCmd)
	rootCmd.AddCommand(rmCmd)
	rootCmd.AddCommand(dueCmd)
	rootCmd.AddCommand(commentCmd)
	rootCmd.AddCommand(boardCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
