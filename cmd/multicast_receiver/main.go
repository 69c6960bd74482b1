package main

import (
	"flag"
	"fmt"
	"os"

	"multicast-chat/internal/chat"
	"multicast-chat/internal/config"
	"multicast-chat/internal/logger"
	"multicast-chat/internal/multicast"
)

// Dumps every datagram on the chat group, including ones a session would
// discard, together with the decode verdict.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		os.Exit(2)
	}

	group := flag.String("group", cfg.Group, "multicast group address")
	port := flag.Int("port", cfg.Port, "UDP port")
	flag.Parse()

	cfg.Group = *group
	cfg.Port = *port
	if err := cfg.Validate(); err != nil {
		fmt.Println("Error:", err)
		os.Exit(2)
	}

	ch, err := multicast.Open(cfg.Channel(), logger.New(cfg.Level()))
	if err != nil {
		fmt.Println("Error listening:", err)
		os.Exit(1)
	}
	defer ch.Close()

	fmt.Printf("Listening for chat datagrams on %s\n", ch.Group())

	for {
		payload, err := ch.Receive()
		if err != nil {
			fmt.Println("Error reading:", err)
			return
		}

		if m, err := chat.Decode(payload); err != nil {
			fmt.Printf("MALFORMED (%d bytes): %q: %v\n", len(payload), payload, err)
		} else {
			fmt.Printf("ok author=%q body=%q at=%s\n", m.Author, m.Body, m.Timestamp.Format("15:04:05"))
		}
	}
}
