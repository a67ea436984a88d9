// Package main prints the bcrypt hash of a password given on the command
// line, for seeding user rows directly in the database. The cost matches the
// server's default.
package main

import (
	"fmt"
	"os"

	"github.com/bugtracker/bugtracker/internal/auth"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <password>\n", os.Args[0])
		os.Exit(2)
	}

	hash, err := auth.NewPasswordHasher(auth.DefaultBcryptCost).Hash(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to hash password: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(hash)
}
