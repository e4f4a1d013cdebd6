package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password [password]",
	Short: "Generate a bcrypt hash for the admin password",
	Long: `Generate a bcrypt hash for the admin password.

The password is read from the first argument or, if omitted, from stdin.
Add the generated hash to your configuration file under auth.password_hash
instead of storing the plain password.`,
	Args: cobra.MaximumNArgs(1),
	RunE: hashPassword,
}

func init() {
	rootCmd.AddCommand(hashPasswordCmd)
}

func hashPassword(cmd *cobra.Command, args []string) error {
	var password string
	if len(args) == 1 {
		password = args[0]
	} else {
		fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("failed to read password: %w", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}
	if password == "" {
		return fmt.Errorf("password must not be empty")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Add this to your configuration file:")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "auth:")
	fmt.Fprintln(out, "  username: \"admin\"")
	fmt.Fprintf(out, "  password_hash: \"%s\"\n", hash)
	fmt.Fprintln(out)
	fmt.Fprintf(out, "or set MEALDESK_AUTH_PASSWORD_HASH='%s'\n", hash)

	return nil
}
