package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/dkeye/Chatline/internal/client"
	"github.com/dkeye/Chatline/internal/domain"
	"github.com/dkeye/Chatline/internal/protocol"
)

const usage = `commands:
  call voice|video <user>
  accept | reject | hangup
  msg <user> <text>
  online
  quit`

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.WarnLevel)

	server := pflag.String("server", "ws://localhost:8080/api/ws", "relay websocket URL")
	user := pflag.String("user", "", "user id to announce")
	name := pflag.String("name", "", "display name")
	timeout := pflag.Duration("timeout", client.DefaultCallTimeout, "ring timeout (default: the relay's call_timeout)")
	pflag.Parse()

	self, err := domain.NewProfile(domain.UserID(*user), *name)
	if err != nil {
		log.Fatal().Err(err).Msg("--user is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if !pflag.CommandLine.Changed("timeout") {
		if s, err := client.FetchSettings(ctx, *server); err != nil {
			log.Warn().Err(err).Msg("relay settings unavailable, using default ring timeout")
		} else if s.CallTimeout() > 0 {
			*timeout = s.CallTimeout()
		}
	}
	c, err := client.Dial(ctx, *server, *self, client.Options{CallTimeout: *timeout})
	cancel()
	if err != nil {
		log.Fatal().Err(err).Msg("connect")
	}
	defer c.Close()

	c.Calls.OnTransition(func(t client.Transition) {
		peer := t.Session.Peer.DisplayName()
		switch t.To {
		case client.Incoming:
			fmt.Printf("* incoming %s call from %s (accept/reject)\n", t.Session.Kind, peer)
		case client.Outgoing:
			fmt.Printf("* calling %s...\n", peer)
		case client.Connected:
			fmt.Printf("* connected with %s, room %s\n", peer, t.Session.RoomID)
		case client.Ended:
			fmt.Printf("* call with %s ended: %s\n", peer, t.Outcome)
		}
	})
	c.OnMessage(func(m protocol.MsgReceive) {
		fmt.Printf("[%s] %s\n", m.From, string(m.Message))
	})
	c.OnOnline(func(users []domain.UserID) {
		fmt.Printf("* online: %v\n", users)
	})
	c.OnError(func(e protocol.Error) {
		fmt.Printf("! server: %s (%s)\n", e.Error, e.Event)
	})

	fmt.Println(usage)
	lines := make(chan string)
	go func() {
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			lines <- sc.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-c.Done():
			fmt.Println("* disconnected")
			return
		case line, ok := <-lines:
			if !ok {
				_ = c.SignOut()
				return
			}
			if quit := exec(c, strings.Fields(line)); quit {
				_ = c.SignOut()
				return
			}
		}
	}
}

func exec(c *client.Client, args []string) (quit bool) {
	if len(args) == 0 {
		return false
	}
	var err error
	switch args[0] {
	case "call":
		if len(args) != 3 {
			fmt.Println(usage)
			return false
		}
		kind, perr := domain.ParseCallKind(args[1])
		if perr != nil {
			err = perr
			break
		}
		_, err = c.Calls.Call(kind, domain.Profile{ID: domain.UserID(args[2])})
	case "accept":
		err = c.Calls.Accept()
	case "reject":
		err = c.Calls.Reject()
	case "hangup":
		err = c.Calls.Hangup()
	case "msg":
		if len(args) < 3 {
			fmt.Println(usage)
			return false
		}
		err = c.SendMessage(domain.UserID(args[1]), strings.Join(args[2:], " "))
	case "online":
		fmt.Printf("* online: %v\n", c.Online())
	case "quit", "exit":
		return true
	default:
		fmt.Println(usage)
	}
	if err != nil {
		fmt.Printf("! %v\n", err)
	}
	return false
}
