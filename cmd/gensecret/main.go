package main

import (
	"fmt"
	"os"

	"github.com/pkazanov/diskbot/internal/secrets"
)

// Prints a random hex secret suitable for SECRET_KEY or CIPHER_KEY
const secretKeyBytesLen = 32

func main() {
	secret, err := secrets.RandomHex(secretKeyBytesLen)
	if err != nil {
		fmt.Printf("error while generating secret key: %v", err)
		os.Exit(1)
	}

	fmt.Println(secret)
}
