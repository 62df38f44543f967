// Package main is a utility for generating the bcrypt hash of the shared
// admin password. The server is configured with the hash (GA_ADMIN_PASSWORD_HASH)
// rather than the plaintext password, so this tool is run once when setting
// up a deployment and its output pasted into the environment or config file.
//
// Usage: hash <password>
package main

import (
	"fmt"
	"os"

	"github.com/brainsta/game-admin/internal/auth"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: hash <password>")
		os.Exit(1)
	}

	hash, err := auth.HashPassword(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to hash password: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(hash)
}
