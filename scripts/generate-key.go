// Package main is a development utility for generating a session signing
// secret. It prints a hex-encoded 32-byte value ready to paste into the
// GA_SESSION_SECRET environment variable. Equivalent to `openssl rand -hex 32`
// for developers without openssl on hand.
package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
)

func main() {
	randomBytes := make([]byte, 32)
	if _, err := rand.Read(randomBytes); err != nil {
		log.Fatal(err)
	}

	secret := hex.EncodeToString(randomBytes)

	fmt.Println("==========================================================")
	fmt.Println("Session Secret Generated")
	fmt.Println("==========================================================")
	fmt.Printf("\nGA_SESSION_SECRET=%s\n", secret)
	fmt.Println("\n==========================================================")
}
