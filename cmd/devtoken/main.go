// Command devtoken prints a signed access token for local testing.
//
//	go run ./cmd/devtoken -user 1
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/iliyamo/seat-booking-service/internal/config"
	"github.com/iliyamo/seat-booking-service/internal/utils"
)

func main() {
	userID := flag.Uint64("user", 1, "user id placed in the sub claim")
	role := flag.String("role", utils.RoleCustomer, "role claim")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	config.LoadDotEnv()
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("JWT_SECRET is not set")
	}

	tok, err := utils.NewAccessToken(secret, *userID, *role, *ttl)
	if err != nil {
		log.Fatalf("sign token: %v", err)
	}
	fmt.Println(tok.Token)
	fmt.Fprintf(os.Stderr, "expires %s\n", tok.Exp.Format(time.RFC3339))
}
