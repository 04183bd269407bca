// Command gardenctl is a terminal dashboard for the irrigation server.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/plantCo2/water-device/client"

	tea "github.com/charmbracelet/bubbletea"
)

func main() {
	server := flag.String("server", envOr("GARDEN_SERVER", "http://localhost:3536"), "irrigation server base URL")
	flag.Parse()

	p := tea.NewProgram(initialModel(client.New(*server), *server))
	if _, err := p.Run(); err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
