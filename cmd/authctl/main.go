package main

import (
	"github.com/joho/godotenv"

	"github.com/authcode/authcode-go/cmd/authctl/cmd"
)

func main() {
	_ = godotenv.Load()
	cmd.Execute()
}
