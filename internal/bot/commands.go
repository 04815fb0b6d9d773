package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xaenox/promptlab/internal/category"
	"github.com/xaenox/promptlab/internal/models"
	"github.com/xaenox/promptlab/internal/orchestrator"
	"github.com/xaenox/promptlab/internal/session"
	"github.com/xaenox/promptlab/internal/workspace"
)

// Auth is the part of the session service the chat commands need.
type Auth interface {
	Register(ctx context.Context, name, email, password string) (models.User, error)
	Login(ctx context.Context, email, password string) (models.User, error)
}

// Session is what one chat drives: its credentials and its workspace.
type Session struct {
	Auth      Auth
	Workspace *workspace.Workspace
}

// Reply is the text sent back for one command.
type Reply struct {
	Text     string
	Markdown bool
}

func text(format string, args ...any) Reply {
	return Reply{Text: fmt.Sprintf(format, args...)}
}

const welcome = `Welcome to Prompt Lab! 🧪
Keep your prompts organized by category, edit them and run them through AI actions.

Start with /register <email> <password> <name> or /login <email> <password>.
Use /help to see all available commands.`

const help = `Available commands:
/register <email> <password> <name> - Create an account
/login <email> <password> - Log in
/logout - Log out
/list - Show prompts for the current view
/all - Show all prompts
/favorites - Show favorite prompts
/category <id> - Show prompts in a category
/search <text> - Search the current view
/categories - Show the category tree
/newcategory <name> [| <parent id>] - Add a category
/movecategory <id> <parent id|root> - Move a category
/show [id] - Select and show a prompt
/new - Create a prompt in the current category
/edit <title> | <content> - Edit the selected prompt
/save - Save the editor
/fav [id] - Toggle favorite
/delete [id] - Delete a prompt
/evaluate, /enhance, /plan, /fun - Run an AI action
/run <action> - Run an AI action by name
/apply - Copy the AI result into the editor
/stats - Show prompt metrics

While editing, any plain message replaces the editor content.`

// Dispatch executes one chat command against s and returns the reply. An
// empty command is a plain message.
func Dispatch(ctx context.Context, s *Session, command, args string) Reply {
	args = strings.TrimSpace(args)
	ws := s.Workspace

	switch command {
	case "start":
		return Reply{Text: welcome}
	case "help":
		return Reply{Text: help}
	case "register":
		return register(ctx, s, args)
	case "login":
		return login(ctx, s, args)
	case "logout":
		if err := ws.Close(ctx); err != nil {
			return errorReply(err)
		}
		return text("You are logged out.")
	case "list":
		return listVisible(ws)
	case "all":
		if err := ws.SelectCategory(nil); err != nil {
			return errorReply(err)
		}
		return listVisible(ws)
	case "favorites":
		if err := ws.SelectFavorites(); err != nil {
			return errorReply(err)
		}
		return listVisible(ws)
	case "category":
		if args == "" {
			return text("Usage: /category <id>")
		}
		if err := ws.SelectCategory(models.Ptr(args)); err != nil {
			return errorReply(err)
		}
		return listVisible(ws)
	case "search":
		if err := ws.SetSearch(args); err != nil {
			return errorReply(err)
		}
		return listVisible(ws)
	case "categories":
		return listCategories(ws)
	case "newcategory":
		return newCategory(ctx, ws, args)
	case "movecategory":
		return moveCategory(ctx, ws, args)
	case "show":
		if args != "" {
			if _, err := ws.Select(args); err != nil {
				return errorReply(err)
			}
		}
		return showActive(ws)
	case "new":
		p, err := ws.CreatePrompt(ctx)
		if err != nil {
			return errorReply(err)
		}
		return text("Created %q (%s). Send the content as a message, or use /edit <title> | <content>.", p.Title, p.ID)
	case "edit":
		return edit(ws, args)
	case "save":
		p, err := ws.Save(ctx)
		if err != nil {
			return errorReply(err)
		}
		return text("Saved %q.", p.Title)
	case "fav":
		id, err := targetID(ws, args)
		if err != nil {
			return errorReply(err)
		}
		p, err := ws.ToggleFavorite(ctx, id)
		if err != nil {
			return errorReply(err)
		}
		if p.IsFavorite {
			return text("★ %q added to favorites.", p.Title)
		}
		return text("%q removed from favorites.", p.Title)
	case "delete":
		id, err := targetID(ws, args)
		if err != nil {
			return errorReply(err)
		}
		existed, _, err := ws.DeletePrompt(ctx, id)
		if err != nil {
			return errorReply(err)
		}
		if !existed {
			return text("No prompt with id %s.", id)
		}
		return text("Deleted %s.", id)
	case "evaluate":
		return runAction(ctx, ws, models.ActionEvaluate)
	case "enhance":
		return runAction(ctx, ws, models.ActionEnhance)
	case "plan":
		return runAction(ctx, ws, models.ActionCodePlan)
	case "fun":
		return runAction(ctx, ws, models.ActionFunPrompt)
	case "run":
		action, err := models.ParseAIActionType(args)
		if err != nil {
			return text("Unknown action. Choose one of %s.", strings.Join(actionNames(), ", "))
		}
		return runAction(ctx, ws, action)
	case "apply":
		if err := ws.ApplyResult(); err != nil {
			return errorReply(err)
		}
		return text("AI result copied into the editor. Use /save to keep it.")
	case "stats":
		return stats(ws)
	case "":
		return plainMessage(ws, args)
	default:
		return text("Unknown command. Use /help to see available commands.")
	}
}

// Resume reopens the workspace of a session persisted by an earlier run.
// A chat that is not logged in is left as it is.
func Resume(ctx context.Context, s *Session) error {
	if _, err := s.Workspace.Open(ctx); err != nil && !errors.Is(err, workspace.ErrNoSession) {
		return err
	}
	return nil
}

func register(ctx context.Context, s *Session, args string) Reply {
	fields := strings.Fields(args)
	if len(fields) < 3 {
		return text("Usage: /register <email> <password> <name>")
	}
	u, err := s.Auth.Register(ctx, strings.Join(fields[2:], " "), fields[0], fields[1])
	if err != nil {
		return errorReply(err)
	}
	return openWorkspace(ctx, s, u)
}

func login(ctx context.Context, s *Session, args string) Reply {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		return text("Usage: /login <email> <password>")
	}
	u, err := s.Auth.Login(ctx, fields[0], fields[1])
	if err != nil {
		return errorReply(err)
	}
	return openWorkspace(ctx, s, u)
}

func openWorkspace(ctx context.Context, s *Session, u models.User) Reply {
	if _, err := s.Workspace.Open(ctx); err != nil {
		return errorReply(err)
	}
	visible, err := s.Workspace.Visible()
	if err != nil {
		return errorReply(err)
	}
	return text("Hello, %s! You have %d prompts. Use /list to see them.", u.Name, len(visible))
}

func listVisible(ws *workspace.Workspace) Reply {
	prompts, err := ws.Visible()
	if err != nil {
		return errorReply(err)
	}
	if len(prompts) == 0 {
		return text("No prompts here yet. Use /new to create one.")
	}

	active, _ := ws.Active()
	var b strings.Builder
	for i, p := range prompts {
		marker := " "
		if p.ID == active.ID {
			marker = "›"
		}
		star := ""
		if p.IsFavorite {
			star = " ★"
		}
		fmt.Fprintf(&b, "%s%d. %s%s (%s)\n", marker, i+1, p.Title, star, p.ID)
	}
	return Reply{Text: b.String()}
}

func listCategories(ws *workspace.Workspace) Reply {
	var b strings.Builder
	b.WriteString("*Categories:*\n")
	err := ws.WalkCategories(func(c models.Category, depth int) bool {
		b.WriteString(strings.Repeat("    ", depth))
		b.WriteString(escapeMarkdown("• " + c.Name + " (" + c.ID + ")"))
		b.WriteString("\n")
		return true
	})
	if err != nil {
		return errorReply(err)
	}
	return Reply{Text: b.String(), Markdown: true}
}

func newCategory(ctx context.Context, ws *workspace.Workspace, args string) Reply {
	name, parent, _ := strings.Cut(args, "|")
	var parentID *string
	if p := strings.TrimSpace(parent); p != "" {
		parentID = models.Ptr(p)
	}
	c, err := ws.AddCategory(ctx, strings.TrimSpace(name), parentID)
	if err != nil {
		return errorReply(err)
	}
	return text("Category %q created (%s).", c.Name, c.ID)
}

func moveCategory(ctx context.Context, ws *workspace.Workspace, args string) Reply {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		return text("Usage: /movecategory <id> <parent id|root>")
	}
	var parentID *string
	if fields[1] != "root" {
		parentID = models.Ptr(fields[1])
	}
	if err := ws.MoveCategory(ctx, fields[0], parentID); err != nil {
		return errorReply(err)
	}
	return text("Category %s moved.", fields[0])
}

func showActive(ws *workspace.Workspace) Reply {
	p, ok := ws.Active()
	if !ok {
		if _, err := ws.Visible(); err != nil {
			return errorReply(err)
		}
		return text("No prompt selected. Use /show <id>.")
	}
	ed := ws.Editor()

	var b strings.Builder
	fmt.Fprintf(&b, "*%s*\n", escapeMarkdown(ed.Title))
	if ed.Editing {
		b.WriteString("_unsaved changes_\n")
	}
	b.WriteString("\n")
	b.WriteString(escapeMarkdown(ed.Content))
	b.WriteString("\n")
	if len(p.Tags) > 0 {
		tags := make([]string, len(p.Tags))
		for i, tag := range p.Tags {
			tags[i] = escapeMarkdown("#" + strings.ReplaceAll(tag, " ", "_"))
		}
		fmt.Fprintf(&b, "\n*Tags:* %s\n", strings.Join(tags, " "))
	}
	if res, ok := ws.Result(); ok {
		fmt.Fprintf(&b, "\n*%s result:*\n%s\n", escapeMarkdown(res.Action.String()), escapeMarkdown(res.Text))
	}
	return Reply{Text: b.String(), Markdown: true}
}

func edit(ws *workspace.Workspace, args string) Reply {
	title, content, ok := strings.Cut(args, "|")
	if !ok {
		return text("Usage: /edit <title> | <content>")
	}
	if err := ws.Edit(strings.TrimSpace(title), strings.TrimSpace(content)); err != nil {
		return errorReply(err)
	}
	return text("Editor updated. Use /save to keep it.")
}

func plainMessage(ws *workspace.Workspace, content string) Reply {
	ed := ws.Editor()
	if !ed.Editing {
		return text("Send a command. Use /help to see available commands.")
	}
	if err := ws.Edit(ed.Title, content); err != nil {
		return errorReply(err)
	}
	return text("Content updated. Use /save to keep it.")
}

func runAction(ctx context.Context, ws *workspace.Workspace, action models.AIActionType) Reply {
	out, err := ws.RunAction(ctx, action)
	if err != nil {
		return errorReply(err)
	}
	if out.Draft != nil {
		return text("%s\n\n%s\n\nUse /save to keep it.", out.Draft.Title, out.Draft.Content)
	}
	if !out.Applied {
		return text("%s\n\n(The prompt was deleted meanwhile, metrics were not recorded.)", out.ResultText)
	}
	return text("%s\n\nUse /apply to copy it into the editor.", out.ResultText)
}

func stats(ws *workspace.Workspace) Reply {
	points := ws.Stats()
	if points == nil {
		return text("No prompt selected.")
	}
	p, _ := ws.Active()
	var b strings.Builder
	fmt.Fprintf(&b, "Stats for %q:\n", p.Title)
	for _, point := range points {
		fmt.Fprintf(&b, "%s: %g\n", point.Name, point.Value)
	}
	if p.Metadata.EstimatedCost != nil {
		fmt.Fprintf(&b, "Estimated cost: $%.6f\n", *p.Metadata.EstimatedCost)
	}
	if p.Metadata.ModelUsed != nil {
		fmt.Fprintf(&b, "Model: %s\n", *p.Metadata.ModelUsed)
	}
	return Reply{Text: b.String()}
}

func targetID(ws *workspace.Workspace, args string) (string, error) {
	if args != "" {
		return args, nil
	}
	p, ok := ws.Active()
	if !ok {
		if _, err := ws.Visible(); err != nil {
			return "", err
		}
		return "", workspace.ErrNoActivePrompt
	}
	return p.ID, nil
}

func actionNames() []string {
	names := make([]string, len(models.AIActionTypes))
	for i, a := range models.AIActionTypes {
		names[i] = strings.ToLower(a.String())
	}
	return names
}

// userErrors are shown to the user as they are.
var userErrors = []error{
	session.ErrInvalidCredentials,
	session.ErrUserExists,
	workspace.ErrNoActivePrompt,
	workspace.ErrPromptNotFound,
	workspace.ErrNoResult,
	category.ErrCycle,
	category.ErrEmptyName,
	category.ErrUnknownParent,
	category.ErrNotFound,
}

func errorReply(err error) Reply {
	var formErr *session.FormError
	if errors.As(err, &formErr) {
		return text("%s", formErr.Message)
	}
	for _, target := range userErrors {
		if errors.Is(err, target) {
			return text("%s.", capitalize(target.Error()))
		}
	}
	switch {
	case errors.Is(err, workspace.ErrNoSession):
		return text("Please /login or /register first.")
	case errors.Is(err, orchestrator.ErrAlreadyInProgress):
		return text("An AI action is already running, please wait.")
	case errors.Is(err, orchestrator.ErrActionFailed):
		return text("⚠️ %s", orchestrator.FailureNotice)
	}
	return text("⚠️ Sorry, something went wrong. Please try again.")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
