package main

import (
	"context"
	"fmt"
	"os"

	"github.com/benchwise/protolab-backend/internal/app"
)

func main() {
	a, err := app.New(context.Background())
	if err != nil {
		fmt.Printf("Failed to start: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	if err := a.Run(); err != nil {
		a.Log.Error("Server failed", "error", err)
	}
}
