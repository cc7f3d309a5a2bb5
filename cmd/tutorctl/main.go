package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"tutor-platform/internal/auth"
	"tutor-platform/internal/config"
	"tutor-platform/internal/keyring"
	"tutor-platform/internal/tui"

	"github.com/alecthomas/kong"
	tea "github.com/charmbracelet/bubbletea"
)

// CLI defines the tutorctl command structure.
type CLI struct {
	Globals

	Login   LoginCmd   `cmd:"" help:"Store a session token in the system keychain"`
	Logout  LogoutCmd  `cmd:"" help:"Remove the stored session token"`
	Token   TokenCmd   `cmd:"" help:"Development token helpers"`
	Session SessionCmd `cmd:"" help:"Open the session screen for a topic"`
}

// Globals are flags shared by every command.
type Globals struct {
	API   string `flag:"" default:"http://localhost:8080" env:"TUTOR_API_URL" help:"API base URL"`
	Debug bool   `flag:"" help:"Log at debug level"`
}

// LoginCmd stores a session token minted by the auth provider.
type LoginCmd struct {
	Token string `flag:"" required:"" env:"TUTOR_TOKEN" help:"Session token (JWT)"`
}

func (c *LoginCmd) Run() error {
	tok := strings.TrimSpace(c.Token)
	if tok == "" {
		return errors.New("token cannot be empty")
	}
	if err := keyring.SetToken(tok); err != nil {
		return err
	}
	fmt.Println("session token stored in keychain")
	return nil
}

type LogoutCmd struct{}

func (c *LogoutCmd) Run() error {
	if err := keyring.DeleteToken(); err != nil {
		return err
	}
	fmt.Println("session token removed")
	return nil
}

// TokenCmd groups token subcommands.
type TokenCmd struct {
	Issue TokenIssueCmd `cmd:"" help:"Mint a development token with the shared secret"`
}

// TokenIssueCmd signs a token locally. Only useful against an API that
// shares AUTH_JWT_SECRET, i.e. local and dev environments.
type TokenIssueCmd struct {
	UserID   string        `flag:"" required:"" name:"user-id" help:"Learner id (token subject)"`
	Name     string        `flag:"" required:"" help:"Learner display name"`
	Role     string        `flag:"" default:"student" enum:"student,teacher,parent,admin" help:"Role claim"`
	Secret   string        `flag:"" required:"" env:"AUTH_JWT_SECRET" help:"Signing secret"`
	Issuer   string        `flag:"" env:"AUTH_JWT_ISSUER" help:"Issuer claim"`
	Audience string        `flag:"" env:"AUTH_JWT_AUDIENCE" help:"Audience claim"`
	TTL      time.Duration `flag:"" default:"1h" help:"Token lifetime"`
	Store    bool          `flag:"" help:"Also store the token in the keychain"`
}

func (c *TokenIssueCmd) Run() error {
	m, err := auth.NewManager(config.AuthConfig{
		JWTSecret:      c.Secret,
		JWTIssuer:      c.Issuer,
		JWTAudience:    c.Audience,
		AccessTokenTTL: c.TTL,
	})
	if err != nil {
		return fmt.Errorf("token manager: %w", err)
	}
	tok, err := m.Issue(time.Now(), auth.Identity{UserID: c.UserID, DisplayName: c.Name, Role: c.Role})
	if err != nil {
		return fmt.Errorf("issue token: %w", err)
	}
	if c.Store {
		if err := keyring.SetToken(tok); err != nil {
			return err
		}
		slog.Debug("token stored in keychain", "user_id", c.UserID)
	}
	fmt.Println(tok)
	return nil
}

// SessionCmd runs the session screen.
type SessionCmd struct {
	TopicID string `arg:"" name:"topic-id" help:"Topic to hold the session about"`
	Token   string `flag:"" env:"TUTOR_TOKEN" help:"Session token (default: keychain)"`
	Start   bool   `flag:"" help:"Start the call as soon as the screen opens"`
}

func (c *SessionCmd) Run(g *Globals) error {
	tok := c.Token
	if tok == "" {
		var err error
		if tok, err = keyring.Token(); err != nil {
			if errors.Is(err, keyring.ErrNoToken) {
				return errors.New("not logged in: run 'tutorctl login --token <jwt>' or set TUTOR_TOKEN")
			}
			return err
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	conn, err := tui.Dial(ctx, g.API, tok)
	if err != nil {
		return err
	}
	defer conn.Close()

	model := tui.New(conn, c.TopicID)
	p := tea.NewProgram(model, tea.WithAltScreen())
	if c.Start {
		go p.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'s'}})
	}
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("failed to run session screen: %w", err)
	}
	return nil
}

func main() {
	cli := &CLI{}
	ctx := kong.Parse(cli,
		kong.Name("tutorctl"),
		kong.Description("Terminal client for voice tutoring sessions."),
		kong.UsageOnError(),
	)

	level := slog.LevelInfo
	if cli.Debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	ctx.FatalIfErrorf(ctx.Run(&cli.Globals))
}
