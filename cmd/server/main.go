package main

import (
	"fmt"
	"os"

	"perfhub/internal/app/server"
)

func main() {
	if err := server.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "perfhub: %v\n", err)
		os.Exit(1)
	}
}
