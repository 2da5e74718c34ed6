// Command hashpass prints a bcrypt hash for ADMIN_PASSWORD_HASH.
//
// The password is read from the first argument or, when absent, from the
// first line of standard input:
//
//	echo -n 'secret' | go run ./cmd/hashpass
package main

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/JonMunkholm/dealership/internal/auth"
)

func main() {
	password, err := readPassword()
	if err != nil {
		slog.Error("failed to read password", "error", err)
		os.Exit(1)
	}
	if password == "" {
		slog.Error("password must not be empty")
		os.Exit(1)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		slog.Error("failed to hash password", "error", err)
		os.Exit(1)
	}
	fmt.Println(hash)
}

func readPassword() (string, error) {
	if len(os.Args) > 1 {
		return os.Args[1], nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
