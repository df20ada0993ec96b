package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"library-backend/internal/platform/apierr"
	"library-backend/internal/platform/auth"
)

// readPassword はターミナルならエコーなしで 2 回聞き、パイプなら 1 行読む
func readPassword(in io.Reader, out io.Writer) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(out, "Password: ")
		first, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", err
		}
		fmt.Fprint(out, "Confirm password: ")
		second, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", err
		}
		if string(first) != string(second) {
			return "", errors.New("passwords do not match")
		}
		return string(first), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func newUserAddCmd(opts *rootOptions) *cobra.Command {
	var name, email, role string
	cmd := &cobra.Command{
		Use:   "useradd",
		Short: "Create a user (the only way to create admin accounts)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}

			password, err := readPassword(cmd.InOrStdin(), cmd.ErrOrStderr())
			if err != nil {
				return fmt.Errorf("read password: %w", err)
			}

			conn, err := openDB(cmd.Context(), cfg, false)
			if err != nil {
				return err
			}
			defer conn.Close()

			svc := auth.NewService(auth.NewStore(conn), nil)
			u, err := svc.CreateUser(cmd.Context(), name, email, password, auth.Role(role))
			if apierr.Is(err, apierr.CodeConflict) {
				return fmt.Errorf("useradd: %s is already registered", email)
			}
			if err != nil {
				return err
			}
			log.Printf("[INFO] created user id=%d email=%s role=%s", u.ID, u.Email, u.Role)
			fmt.Fprintln(cmd.OutOrStdout(), u.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "login email")
	cmd.Flags().StringVar(&role, "role", string(auth.RoleStudent), "student | admin")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}
