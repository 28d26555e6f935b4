package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/dig"
	"golang.org/x/term"

	"github.com/trezcool/masomo-portal/core"
	"github.com/trezcool/masomo-portal/core/session"
	"github.com/trezcool/masomo-portal/core/user"
	"github.com/trezcool/masomo-portal/storage/keystore"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errEmptyPassword = errors.New("password is required")
	errNotSignedIn   = errors.New("not signed in")
)

func newRootCmd(c *dig.Container) *cobra.Command {
	root := &cobra.Command{
		Use:   "portal",
		Short: "Masomo school portal",
		Long: `The Masomo portal serves the admin, teacher and student screens of the school service.

The session is shared by every command: sign in once with "login", then "serve" or "whoami" reuse it.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newServeCmd(c),
		newLoginCmd(c),
		newSignupCmd(c),
		newLogoutCmd(c),
		newWhoamiCmd(c),
		newMigrateCmd(c),
	)
	return root
}

func newLoginCmd(c *dig.Container) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in; the password is prompted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pwd, err := promptPassword(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			return withStore(c, func(store *session.Store, translator ut.Translator) error {
				snap, err := store.SignIn(cmd.Context(), email, pwd)
				if err != nil {
					return authFailure(err, translator)
				}
				printSession(cmd.OutOrStdout(), snap)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "The account's email. The password will be prompted next.")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newSignupCmd(c *dig.Container) *cobra.Command {
	var acct user.NewAccount
	var role string

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and sign in; the password is prompted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pwd, err := promptPassword(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			acct.Password = pwd
			acct.Role = user.Role(strings.ToUpper(role))

			return withStore(c, func(store *session.Store, translator ut.Translator) error {
				snap, err := store.SignUp(cmd.Context(), acct)
				if err != nil {
					return authFailure(err, translator)
				}
				printSession(cmd.OutOrStdout(), snap)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&acct.Email, "email", "", "The account's email")
	cmd.Flags().StringVar(&acct.FullName, "name", "", "The account holder's full name")
	cmd.Flags().StringVar(&acct.Phone, "phone", "", "The account's phone number")
	cmd.Flags().StringVar(&role, "role", string(user.RoleStudent), "One of STUDENT, TEACHER, ADMIN")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newLogoutCmd(c *dig.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the persisted session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(c, func(store *session.Store, _ ut.Translator) error {
				store.SignOut(cmd.Context())
				fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
				return nil
			})
		},
	}
}

func newWhoamiCmd(c *dig.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Restore the persisted session and print who is signed in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(c, func(store *session.Store, _ ut.Translator) error {
				snap := store.Restore(cmd.Context())
				if !snap.IsAuthenticated() {
					fmt.Fprintln(cmd.OutOrStdout(), "Not signed in.")
					return errNotSignedIn
				}
				printSession(cmd.OutOrStdout(), snap)
				return nil
			})
		},
	}
}

// withStore runs fn with the session store and closes the keystore behind it.
func withStore(c *dig.Container, fn func(store *session.Store, translator ut.Translator) error) error {
	return c.Invoke(func(store *session.Store, translator ut.Translator, ks *keystore.Keystore, logger core.Logger) error {
		defer func() {
			if err := ks.Close(); err != nil {
				logger.Error("closing keystore", err)
			}
		}()
		return fn(store, translator)
	})
}

func promptPassword(out io.Writer) (string, error) {
	fmt.Fprint(out, "Enter password:")
	pwd, err := readPasswordFunc(int(os.Stdin.Fd()))
	fmt.Fprintln(out)
	if err != nil {
		return "", errors.Wrap(err, "reading password")
	}
	if len(pwd) == 0 {
		return "", errEmptyPassword
	}
	return string(pwd), nil
}

// authFailure turns a rejected sign-in or sign-up into what the user should read.
func authFailure(err error, translator ut.Translator) error {
	var authErr *session.AuthError
	if errors.As(err, &authErr) {
		return errors.New(authErr.Message)
	}
	if vErrs, ok := errors.Cause(err).(validator.ValidationErrors); ok {
		fields := core.TranslateErrors(vErrs, translator)
		msgs := make([]string, 0, len(fields))
		for fld, msg := range fields {
			msgs = append(msgs, fld+": "+msg)
		}
		sort.Strings(msgs)
		return errors.New(strings.Join(msgs, "; "))
	}
	return err
}

func printSession(out io.Writer, snap session.Snapshot) {
	usr := snap.User()
	fmt.Fprintf(out, "Signed in as %s <%s> (%s)\n", usr.FullName, usr.Email, snap.Role)
	if !snap.ExpiresAt.IsZero() {
		fmt.Fprintf(out, "Session expires %s\n", snap.ExpiresAt.Local().Format("Jan 2, 2006 15:04"))
	}
}
