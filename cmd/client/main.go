package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"chatline/internal/config"
	"chatline/internal/session"
	"chatline/internal/ws"

	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.LoadClient()
	if err != nil {
		return err
	}

	name := flag.String("name", cfg.Name, "display name")
	serverURL := flag.String("server", cfg.ServerURL, "chat server websocket URL")
	flag.Parse()
	if *name == "" {
		return fmt.Errorf("a display name is required (-name or CHAT_NAME)")
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	conn, err := ws.Dial(ctx, *serverURL, logger)
	if err != nil {
		return fmt.Errorf("dial %s: %w", *serverURL, err)
	}
	defer conn.Close()

	s := session.New(ctx, *name, conn, logger)

	go func() {
		if err := conn.ReadLoop(func(text string) {
			s.Inbox() <- session.Inbound{Text: text}
		}); err != nil {
			logger.Warn("connection lost", zap.Error(err))
		}
		cancel()
	}()

	go render(ctx, s)

	// Stdin loop: each line is one submission.
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		s.Inbox() <- session.Submit{Text: strings.TrimRight(scanner.Text(), "\r\n")}
	}
	return scanner.Err()
}

// render prints roster and log changes as the session signals updates.
func render(ctx context.Context, s *session.Session) {
	printed := 0
	lastRoster := ""
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.Updates():
		}

		reply := make(chan session.View, 1)
		s.Inbox() <- session.GetState{Reply: reply}
		var view session.View
		select {
		case view = <-reply:
		case <-ctx.Done():
			return
		}

		names := make([]string, len(view.Users))
		for i, u := range view.Users {
			names[i] = u.Name
		}
		if roster := strings.Join(names, ", "); roster != lastRoster {
			fmt.Printf("* online (%d): %s\n", len(names), roster)
			lastRoster = roster
		}

		for ; printed < len(view.Messages); printed++ {
			entry := view.Messages[printed]
			if entry.FromSelf() {
				fmt.Printf("you> %s\n", entry.Message)
			} else {
				fmt.Printf("%s> %s\n", entry.From, entry.Message)
			}
		}
	}
}
