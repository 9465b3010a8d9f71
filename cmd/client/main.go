// Terminal client for the collab editor relay. Lines typed on stdin are sent
// as local edits; remote edits and membership changes are printed.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/collab-editor-demo/client"
)

func main() {
	serverURL := flag.String("server", "ws://localhost:5001/ws", "websocket endpoint")
	roomID := flag.String("room", "", "room id to join")
	username := flag.String("username", "", "display name")
	flag.Parse()

	session, err := client.New(client.Config{
		ServerURL: *serverURL,
		RoomID:    *roomID,
		Username:  *username,
		Surface: client.SurfaceFunc(func(code string) {
			fmt.Printf("--- remote edit ---\n%s\n-------------------\n", code)
		}),
		Notifier: client.NotifierFunc(func(kind client.Kind, message string) {
			fmt.Printf("[%s] %s\n", kind, message)
		}),
	})
	if err != nil {
		flag.Usage()
		log.Fatalf("invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := session.Connect(ctx); err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer session.Close()

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
			if err := session.LocalChange(line); err != nil {
				log.Printf("send edit: %v", err)
			}
		}
	}
}
