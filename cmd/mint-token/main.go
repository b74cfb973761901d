// Command mint-token issues a JWT access/refresh pair for a client device.
//
// Token pairs are minted out of band and handed to dashboards or
// integrations; the HTTP API only refreshes existing pairs.
//
// Usage:
//
//	go run ./cmd/mint-token -sub wall-panel-1 -device "Kitchen Panel"
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/micro-nova/amplipi-hub/internal/auth"
	"github.com/micro-nova/amplipi-hub/internal/config"
)

func main() {
	sub := flag.String("sub", "", "subject identifier for the client (required)")
	device := flag.String("device", "", "human-readable device name")
	flag.Parse()

	if *sub == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	pair, err := auth.GenerateTokenPair(cfg, auth.TokenPayload{
		Sub:        *sub,
		DeviceName: *device,
	})
	if err != nil {
		log.Fatalf("token error: %v", err)
	}

	out, err := json.MarshalIndent(map[string]any{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"expires_in":    pair.ExpiresInSec,
		"token_type":    "Bearer",
	}, "", "  ")
	if err != nil {
		log.Fatalf("encode error: %v", err)
	}
	fmt.Println(string(out))
}
