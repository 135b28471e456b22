package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"auraagent"
	"auraagent/coordinator"
	"auraagent/grocery"
	"auraagent/kitchen"
	"auraagent/slack"
)

type runner interface {
	Run(ctx context.Context, req coordinator.Request) (coordinator.Reply, error)
}

// session holds the state a conversation carries between turns.
type session struct {
	agent    runner
	slack    auraagent.SlackClient
	channel  string
	out      io.Writer
	debug    bool
	language kitchen.Language
	history  []kitchen.Turn
	recipe   *kitchen.Recipe
	deals    *grocery.Deals
	pending  *kitchen.Image
	virtual  *grocery.VirtualItems
	readFile func(string) ([]byte, error)
}

func newSession(agent runner, out io.Writer, lang kitchen.Language) *session {
	return &session{
		agent:    agent,
		out:      out,
		language: lang,
		virtual:  grocery.NewVirtualItems(time.Now().UnixNano()),
		readFile: os.ReadFile,
	}
}

// handle processes one line of input. It reports false when the session
// should end.
func (s *session) handle(ctx context.Context, line string) (bool, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return true, nil
	}
	if !strings.HasPrefix(line, "/") {
		return true, s.turn(ctx, line)
	}

	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch cmd {
	case "/quit", "/exit":
		return false, nil
	case "/lang":
		if arg != string(kitchen.English) && arg != string(kitchen.Vietnamese) {
			fmt.Fprintln(s.out, "usage: /lang en|vi")
			return true, nil
		}
		lang := kitchen.ParseLanguage(arg)
		s.language = lang
		fmt.Fprintf(s.out, "language set to %s\n", lang)
	case "/image":
		if arg == "" {
			fmt.Fprintln(s.out, "usage: /image <path>")
			return true, nil
		}
		img, err := s.loadImage(arg)
		if err != nil {
			return true, err
		}
		s.pending = img
		fmt.Fprintf(s.out, "attached %s (%s), it will be sent with your next message\n", arg, img.MIMEType)
	case "/recipe":
		if s.recipe == nil {
			fmt.Fprintln(s.out, "no recipe yet")
			return true, nil
		}
		fmt.Fprintln(s.out, formatRecipe(*s.recipe, s.language))
	case "/share":
		return true, s.share(ctx)
	case "/help":
		fmt.Fprintln(s.out, "commands: /image <path>, /lang en|vi, /recipe, /share, /quit")
	default:
		fmt.Fprintf(s.out, "unknown command %s, try /help\n", cmd)
	}
	return true, nil
}

func (s *session) turn(ctx context.Context, message string) error {
	ctx = grocery.WithVirtualItems(ctx, s.virtual)

	req := coordinator.Request{
		Message:  message,
		Image:    s.pending,
		Language: s.language,
		History:  s.history,
	}
	reply, err := s.agent.Run(ctx, req)
	if err != nil {
		return err
	}

	s.history = append(s.history, kitchen.Turn{
		Role:    kitchen.RoleUser,
		Content: message,
		Image:   s.pending,
		At:      time.Now(),
	}, reply.Turn())
	s.pending = nil
	if reply.Recipe != nil {
		s.recipe = reply.Recipe
	}
	if reply.GroceryDeals != nil {
		s.deals = reply.GroceryDeals
	}

	fmt.Fprintln(s.out, reply.Reply)
	for _, call := range reply.ToolCalls {
		status := "ok"
		if !call.Success {
			status = "failed: " + call.Error
		}
		fmt.Fprintf(s.out, "  [%s %s]\n", call.Tool, status)
	}
	if s.debug {
		auraagent.Fdump(s.out, reply)
	}
	return nil
}

func (s *session) share(ctx context.Context) error {
	if s.recipe == nil {
		fmt.Fprintln(s.out, "no recipe to share yet")
		return nil
	}
	list := slack.ShoppingList(*s.recipe, s.deals, s.language)
	if s.slack == nil {
		fmt.Fprintln(s.out, list)
		return nil
	}
	if err := s.slack.PostMessage(ctx, s.channel, list); err != nil {
		return fmt.Errorf("failed to share shopping list: %w", err)
	}
	fmt.Fprintf(s.out, "shopping list posted to %s\n", s.channel)
	return nil
}

func (s *session) loadImage(path string) (*kitchen.Image, error) {
	data, err := s.readFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	mime := http.DetectContentType(data)
	if !strings.HasPrefix(mime, "image/") {
		return nil, fmt.Errorf("%s is not an image (%s)", path, mime)
	}
	return &kitchen.Image{MIMEType: mime, Data: data}, nil
}

func formatRecipe(r kitchen.Recipe, lang kitchen.Language) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", r.Title.In(lang))
	if t := r.Time.In(lang); t != "" {
		fmt.Fprintf(&b, "%s", t)
		if r.Calories > 0 {
			fmt.Fprintf(&b, " · %d kcal", r.Calories)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
	for _, ing := range r.Ingredients {
		fmt.Fprintf(&b, "- %s %s\n", ing.Amount, ing.Name.In(lang))
	}
	b.WriteString("\n")
	for i, step := range r.Steps {
		fmt.Fprintf(&b, "%d. %s\n", i+1, step.In(lang))
	}
	return strings.TrimRight(b.String(), "\n")
}
