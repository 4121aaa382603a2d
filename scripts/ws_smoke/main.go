// Command ws_smoke connects to a running server, introduces itself, joins a
// room, sends one message, and prints everything it receives until the
// timeout. Handy for checking a deployment end to end.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/noknowgram/server/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	user := flag.String("user", "tester", "username to announce with hello")
	token := flag.String("token", "", "JWT to authenticate the hello with")
	room := flag.String("room", "general", "room to join")
	text := flag.String("text", "hello from smoke test", "message text to send")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	send := func(msgType string, data any) error {
		payload, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", msgType, err)
		}
		if err := wsjson.Write(ctx, conn, proto.Inbound{Type: msgType, Data: payload}); err != nil {
			return fmt.Errorf("send %s: %w", msgType, err)
		}
		return nil
	}

	if err := send(proto.InboundTypeHello, proto.HelloData{User: *user, Token: *token}); err != nil {
		return err
	}
	if err := send(proto.InboundTypeJoinRoom, proto.JoinRoomData{Room: *room}); err != nil {
		return err
	}
	if err := send(proto.InboundTypeMsg, proto.MsgData{Room: *room, Text: *text}); err != nil {
		return err
	}

	for {
		var outbound struct {
			Type  string          `json:"type"`
			Event string          `json:"event,omitempty"`
			Data  json.RawMessage `json:"data,omitempty"`
			Error *proto.Error    `json:"error,omitempty"`
		}
		if err := wsjson.Read(ctx, conn, &outbound); err != nil {
			return fmt.Errorf("read: %w", err)
		}

		fmt.Printf("received: type=%s", outbound.Type)
		if outbound.Event != "" {
			fmt.Printf(" event=%s", outbound.Event)
		}
		if outbound.Error != nil {
			fmt.Printf(" error=%s(%s)", outbound.Error.Code, outbound.Error.Msg)
		}
		if len(outbound.Data) > 0 {
			fmt.Printf(" data=%s", outbound.Data)
		}
		fmt.Println()
	}
}
