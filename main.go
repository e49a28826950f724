package main

import (
	"github.com/joho/godotenv"

	"calendar-service/cmd"
)

func main() {
	godotenv.Load()
	cmd.Execute()
}
