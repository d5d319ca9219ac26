// Command devtoken prints a bearer token for local testing against the
// ledger server.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/mmynk/grocerysplit/internal/auth"
	"github.com/mmynk/grocerysplit/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	logging.Setup()

	userID := flag.String("user", "", "user id to embed in the token")
	email := flag.String("email", "", "email to embed in the token")
	secret := flag.String("secret", os.Getenv("JWT_SECRET"), "signing secret (defaults to JWT_SECRET)")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	jwtManager, err := auth.NewJWTManager(*secret, *ttl)
	if err != nil {
		slog.Error("Failed to create token manager", "error", err)
		os.Exit(1)
	}
	token, err := jwtManager.Generate(*userID, *email)
	if err != nil {
		slog.Error("Failed to generate token", "user_id", *userID, "error", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
