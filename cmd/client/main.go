package main

import (
	"bufio"
	"chat-relay/client"
	"chat-relay/domain/event"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/gookit/color"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// Config defines the client-side environment variables.
type Config struct {
	ServerURL    string `env:"RELAY_URL,default=ws://localhost:8080/socket"`
	Origin       string `env:"RELAY_ORIGIN,default=http://localhost:3000"`
	Identity     string `env:"RELAY_IDENTITY,required=true"`
	ChatID       string `env:"RELAY_CHAT_ID,required=true"`
	Participants string `env:"RELAY_PARTICIPANTS,required=true"`
	LogLevel     string `env:"LOG_LEVEL,default=INFO"`
}

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

// run connects, identifies, joins the configured chat and then relays stdin lines.
// Lines starting with "/" are commands, anything else is sent as a message.
func run() (int, error) {
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := client.Dial(ctx, config.ServerURL, config.Origin, 256)
	if err != nil {
		return exitRuntime, err
	}
	defer c.Close()

	if err := c.Setup(config.Identity); err != nil {
		return exitRuntime, fmt.Errorf("setup: %w", err)
	}
	if err := c.JoinChat(config.ChatID); err != nil {
		return exitRuntime, fmt.Errorf("join chat: %w", err)
	}
	log.Info("Connected", "url", config.ServerURL, "identity", config.Identity, "chat", config.ChatID)

	go printEvents(c)

	participants := strings.Split(config.Participants, ",")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			break
		}
		if err := handleLine(c, &config, participants, strings.TrimSpace(scanner.Text())); err != nil {
			return exitRuntime, err
		}
	}
	return exitOK, nil
}

func handleLine(c *client.Client, config *Config, participants []string, line string) error {
	switch {
	case line == "":
		return nil
	case line == "/typing":
		return c.Typing(config.ChatID)
	case line == "/stop":
		return c.StopTyping(config.ChatID)
	case strings.HasPrefix(line, "/join "):
		config.ChatID = strings.TrimSpace(strings.TrimPrefix(line, "/join "))
		return c.JoinChat(config.ChatID)
	default:
		users := make([]map[string]string, 0, len(participants))
		for _, p := range participants {
			users = append(users, map[string]string{"_id": strings.TrimSpace(p)})
		}
		return c.NewMessage(map[string]any{
			"chat":    map[string]any{"_id": config.ChatID, "users": users},
			"sender":  map[string]string{"_id": config.Identity},
			"content": line,
		})
	}
}

func printEvents(c *client.Client) {
	for env := range c.Events() {
		switch env.Event {
		case event.Connected:
			color.Green.Println("● connected")
		case event.Typing:
			color.Gray.Printf("… typing in %s\n", string(env.Data))
		case event.StopTyping:
			color.Gray.Printf("  stopped typing in %s\n", string(env.Data))
		case event.MessageReceived:
			color.Cyan.Printf("» %s\n", string(env.Data))
		default:
			color.Yellow.Printf("? %s %s\n", env.Event, string(env.Data))
		}
	}
	color.Red.Println("connection closed")
}
