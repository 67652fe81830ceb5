package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/studychat-server/internal/log"
	"github.com/vovakirdan/studychat-server/internal/proto"
)

func main() {
	var addr string

	cmd := &cobra.Command{
		Use:          "chatclient",
		Short:        "Interactive terminal client for the studychat server",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "ws://localhost:3000/ws", "WebSocket address")

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, addr string) error {
	logger := log.New("warn", "console")

	baseCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	fmt.Printf("Connected to %s\n", addr)
	fmt.Println("Type messages and press Enter to send. Start with @ai to ask the assistant. Ctrl+C to exit.")

	go func() {
		defer cancel()
		readLoop(ctx, conn, logger)
	}()

	writeLoop(ctx, conn, logger)

	stop()
	cancel()
	_ = conn.Close(websocket.StatusNormalClosure, "bye")
	return nil
}

type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func readLoop(ctx context.Context, conn *websocket.Conn, logger *zerolog.Logger) {
	for {
		var in frame
		if err := wsjson.Read(ctx, conn, &in); err != nil {
			// Treat expected shutdowns quietly.
			if errors.Is(err, context.Canceled) {
				return
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return
			}
			logger.Error().Err(err).Msg("read error")
			return
		}

		switch in.Event {
		case proto.EventYourUsername:
			var name string
			if err := json.Unmarshal(in.Data, &name); err != nil {
				logger.Warn().Err(err).Msg("unmarshal username")
				continue
			}
			fmt.Printf("You are %s\n", name)
		case proto.EventChatHistory:
			var msgs []proto.Message
			if err := json.Unmarshal(in.Data, &msgs); err != nil {
				logger.Warn().Err(err).Msg("unmarshal history")
				continue
			}
			for _, m := range msgs {
				printMessage(m)
			}
		case proto.EventChatMessage:
			var m proto.Message
			if err := json.Unmarshal(in.Data, &m); err != nil {
				logger.Warn().Err(err).Msg("unmarshal message")
				continue
			}
			printMessage(m)
		case proto.EventOnlineUsers:
			var users []string
			if err := json.Unmarshal(in.Data, &users); err != nil {
				logger.Warn().Err(err).Msg("unmarshal roster")
				continue
			}
			fmt.Printf("* online: %s\n", strings.Join(users, ", "))
		case proto.EventError:
			var perr proto.Error
			if err := json.Unmarshal(in.Data, &perr); err != nil {
				logger.Warn().Err(err).Msg("unmarshal error")
				continue
			}
			fmt.Printf("! %s: %s\n", perr.Code, perr.Msg)
		default:
			fmt.Printf("event=%s data=%s\n", in.Event, in.Data)
		}
	}
}

func printMessage(m proto.Message) {
	ts := m.CreatedAt.Local().Format("15:04:05")
	text := ""
	if m.Text != nil {
		text = *m.Text
	}
	if m.File != nil {
		fmt.Printf("[%s] %s: %s [file %s %s]\n", ts, m.User, text, m.File.Name, m.File.Path)
		return
	}
	fmt.Printf("[%s] %s: %s\n", ts, m.User, text)
}

func writeLoop(ctx context.Context, conn *websocket.Conn, logger *zerolog.Logger) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			text := strings.TrimSpace(line)
			if text == "" {
				continue
			}

			payload, err := json.Marshal(text)
			if err != nil {
				logger.Error().Err(err).Msg("marshal message")
				return
			}
			if err := wsjson.Write(ctx, conn, proto.Envelope{Event: proto.EventChatMessage, Data: payload}); err != nil {
				logger.Error().Err(err).Msg("send error")
				return
			}
		}
	}
}
