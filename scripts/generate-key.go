// Package main is a development utility that prints a random signing secret
// for auth.jwt_secret. The secret is 32 random bytes, base64url-encoded, which
// comfortably exceeds the minimum length the server accepts.
package main

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log"
)

func main() {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		log.Fatal(err)
	}

	encoded := base64.RawURLEncoding.EncodeToString(secret)

	fmt.Println("==========================================================")
	fmt.Println("JWT Signing Secret Generated")
	fmt.Println("==========================================================")
	fmt.Printf("\nSecret: %s\n", encoded)
	fmt.Println("\nSet it with:")
	fmt.Printf("  export BT_AUTH_JWT_SECRET=%s\n", encoded)
	fmt.Println("==========================================================")
}
