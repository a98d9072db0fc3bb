package main

import (
	"fmt"
	"os"

	sseconncmder "github.com/pulsegate/sseconn/cmd/sseconn"
)

func main() {
	cmd := sseconncmder.NewSSEConnCmd()

	err := cmd.Execute()
	if err != nil {
		fmt.Printf("Error executing root command: %v\n", err)
		os.Exit(1)
	}
}
