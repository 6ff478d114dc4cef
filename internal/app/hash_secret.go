package app

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shareef6907/BahrainNights-sub013/internal/auth"
)

func runHashSecret(args []string) int {
	fs := flag.NewFlagSet("hash-secret", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	secret := fs.String("secret", "", "Secret to hash; \"-\" reads one line from stdin")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	value, err := resolveSecret(*secret, os.Stdin)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	hash, err := auth.HashSecret(value)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to hash secret: %v\n", err)
		return 1
	}
	fmt.Println(hash)
	return 0
}

func resolveSecret(flagValue string, stdin io.Reader) (string, error) {
	value := strings.TrimSpace(flagValue)
	if value == "-" {
		line, err := bufio.NewReader(stdin).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("read secret from stdin: %w", err)
		}
		value = strings.TrimSpace(line)
	}
	if value == "" {
		return "", fmt.Errorf("--secret is required")
	}
	return value, nil
}
