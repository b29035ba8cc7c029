package main

import (
	"flag"
	"log"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"medrag/internal/tui"
)

func main() {
	_ = godotenv.Load()

	var addr string
	flag.StringVar(&addr, "addr", "http://localhost:8080", "base URL of the medrag service")
	flag.Parse()

	api := tui.NewAPIClient(addr, 0)
	if ok, err := api.Health(); err != nil || !ok {
		log.Printf("warning: service at %s is not healthy; queries will fail until the index is loaded", addr)
	}

	m := tui.New(api)
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		log.Fatal(err)
	}
}
