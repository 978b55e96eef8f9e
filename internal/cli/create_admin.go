package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/99minutos/account-system/internal/app"
	"github.com/99minutos/account-system/internal/core/ports"
)

// Test seams for the terminal.
var (
	readPassword = term.ReadPassword
	isTerminal   = term.IsTerminal
)

func newCreateAdminCmd() *cobra.Command {
	var (
		username      string
		email         string
		passwordStdin bool
	)

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Provision a privileged user",
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := adminPassword(cmd, passwordStdin)
			if err != nil {
				return err
			}

			a, err := app.Build(cmd.Context(), cfg, log, app.Options{SkipHTTPMetrics: true})
			if err != nil {
				return err
			}
			defer func() {
				if err := a.Close(context.WithoutCancel(cmd.Context())); err != nil {
					log.Error().Err(err).Msg("release resources")
				}
			}()

			identity, err := a.Accounts.Provision(cmd.Context(), ports.CreateIdentityInput{
				Username:   username,
				Email:      email,
				Password:   password,
				Privileged: true,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "created admin %q (id %d)\n", identity.Username, identity.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "Username of the new admin")
	cmd.Flags().StringVar(&email, "email", "", "Email of the new admin")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from stdin instead of prompting")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func adminPassword(cmd *cobra.Command, fromStdin bool) (string, error) {
	if fromStdin {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("read password: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fd := int(os.Stdin.Fd())
	if !isTerminal(fd) {
		return "", errors.New("stdin is not a terminal; use --password-stdin")
	}

	w := cmd.ErrOrStderr()
	fmt.Fprint(w, "Password: ")
	first, err := readPassword(fd)
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	fmt.Fprint(w, "Repeat password: ")
	second, err := readPassword(fd)
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	if string(first) != string(second) {
		return "", errors.New("passwords do not match")
	}
	return string(first), nil
}
