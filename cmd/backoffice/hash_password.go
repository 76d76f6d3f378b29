package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	apphasher "github.com/Miraines/management-company/backoffice/internal/app/auth/hasher"
	"github.com/Miraines/management-company/backoffice/internal/infra/config"
	"github.com/Miraines/management-company/backoffice/internal/infra/workerpool"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// Test seams for the terminal.
var (
	readPassword = term.ReadPassword
	isTerminal   = term.IsTerminal
)

func NewHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password",
		Short: "Print the credential string for a password",
		Long: `Derive a credential with the configured argon2id parameters and print
it, for seeding accounts directly in the database. The password is read from
the terminal without echo, or as a single line from standard input.`,
		Args: cobra.NoArgs,
		RunE: runHashPassword,
	}
}

func runHashPassword(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadHashing(configFile)
	if err != nil {
		return err
	}

	password, err := promptPassword(cmd)
	if err != nil {
		return err
	}

	pool := workerpool.New(1, nil)
	defer pool.Close()

	encoded, err := apphasher.NewArgon2Hasher(cfg.Argon2Params(), pool, nil).Hash(cmd.Context(), password)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), encoded)
	return err
}

func promptPassword(cmd *cobra.Command) (string, error) {
	fd := int(os.Stdin.Fd())
	if isTerminal(fd) {
		fmt.Fprint(cmd.ErrOrStderr(), "Enter password: ")
		pw, err := readPassword(fd)
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", err
		}
		return string(pw), nil
	}

	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
