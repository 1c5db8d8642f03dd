package main

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/interviewlab/sentinel/cmd"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
