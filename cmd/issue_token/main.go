package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"ocrweb/pkg/apitoken"
)

// Prints a bearer token for the /api routes, signed with API_JWT_SECRET.
func main() {
	client := flag.String("client", "", "client name stored in the subject claim")
	ttl := flag.Duration("ttl", 30*24*time.Hour, "token lifetime")
	flag.Parse()
	if *client == "" {
		fmt.Println("usage: go run ./cmd/issue_token -client <name> [-ttl 720h]")
		os.Exit(2)
	}
	_ = godotenv.Load()
	secret := os.Getenv("API_JWT_SECRET")
	if secret == "" {
		log.Fatal("API_JWT_SECRET not set in environment")
	}
	token, err := apitoken.Issue([]byte(secret), *client, *ttl)
	if err != nil {
		log.Fatalf("issue token: %v", err)
	}
	fmt.Println(token)
}
