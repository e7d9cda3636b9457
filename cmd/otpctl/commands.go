package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/natefinch/atomic"
	"github.com/spf13/cobra"

	"github.com/ericfisherdev/otpdeck/internal/domain/model"
	"github.com/ericfisherdev/otpdeck/internal/domain/otpauth"
	"github.com/ericfisherdev/otpdeck/internal/domain/port/driven"
)

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured accounts in display order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configs, err := a.store(cmd)
			if err != nil {
				return err
			}
			accounts, err := configs.List(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(accounts) == 0 {
				fmt.Fprintln(out, "No accounts configured.")
				return nil
			}
			for i, c := range accounts {
				fmt.Fprintf(out, "%3d  %-32s  %d digits  %3ds  #%06x\n", i, c.Label(), c.Digits, c.Period, c.Color)
			}
			return nil
		},
	}
}

func newAddCmd(a *app) *cobra.Command {
	var (
		name, issuer, secret, color string
		digits, period              int
		generate                    bool
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an account from individual fields",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if generate {
				if secret != "" {
					return errors.New("--secret and --generate are mutually exclusive")
				}
				s, err := otpauth.GenerateSecret(otpauth.DefaultSecretLength)
				if err != nil {
					return err
				}
				secret = s
			}

			cred := model.NewCredential(name, issuer, strings.ReplaceAll(secret, " ", ""))
			cred.Digits = digits
			cred.Period = period
			rgb, err := parseColor(color)
			if err != nil {
				return err
			}
			cred.Color = rgb

			configs, err := a.store(cmd)
			if err != nil {
				return err
			}
			if err := configs.Append(cmd.Context(), cred); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Added %s\n", cred.Label())
			if generate {
				fmt.Fprintf(cmd.OutOrStdout(), "Secret: %s\n", cred.Secret)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "account name (required)")
	cmd.Flags().StringVar(&issuer, "issuer", "", "issuer shown before the name")
	cmd.Flags().StringVar(&secret, "secret", "", "base32 shared secret")
	cmd.Flags().BoolVar(&generate, "generate", false, "generate a random secret")
	cmd.Flags().IntVar(&digits, "digits", model.DefaultDigits, "code length, 6 or 8")
	cmd.Flags().IntVar(&period, "period", model.DefaultPeriod, "code period in seconds")
	cmd.Flags().StringVar(&color, "color", fmt.Sprintf("%06x", model.DefaultColor), "display color as RRGGBB hex")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newRemoveCmd(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "remove <index>",
		Short: "Remove the account at index (see list)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			configs, err := a.store(cmd)
			if err != nil {
				return err
			}

			accounts, err := configs.List(cmd.Context())
			if err != nil {
				return err
			}
			if index >= len(accounts) {
				return fmt.Errorf("%w: %d of %d", driven.ErrIndexOutOfRange, index, len(accounts))
			}

			ok, err := a.confirm(cmd, yes, fmt.Sprintf("Remove %s?", accounts[index].Label()))
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
				return nil
			}

			removed, err := configs.Remove(cmd.Context(), index)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", removed.Label())
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func newImportCmd(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "import <otpauth-uri>",
		Short: "Import an account from an otpauth:// provisioning URI",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cred, err := otpauth.Parse(args[0])
			if err != nil {
				return err
			}
			if err := cred.Validate(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Name:   %s\n", cred.Name)
			fmt.Fprintf(out, "Issuer: %s\n", cred.Issuer)
			fmt.Fprintf(out, "Digits: %d\n", cred.Digits)
			fmt.Fprintf(out, "Period: %ds\n", cred.Period)

			ok, err := a.confirm(cmd, yes, "Add this account?")
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(out, "Cancelled.")
				return nil
			}

			configs, err := a.store(cmd)
			if err != nil {
				return err
			}
			if err := configs.Append(cmd.Context(), cred); err != nil {
				return err
			}
			fmt.Fprintf(out, "Added %s\n", cred.Label())
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the configuration as indented JSON",
		Long:  "Write the configuration as indented JSON. The output contains every shared secret in the clear.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configs, err := a.store(cmd)
			if err != nil {
				return err
			}
			doc, err := configs.Load(cmd.Context())
			if err != nil {
				return err
			}
			data, err := model.EncodeDocumentIndent(doc)
			if err != nil {
				return fmt.Errorf("encode document: %w", err)
			}
			data = append(data, '\n')

			fmt.Fprintln(cmd.ErrOrStderr(), "warning: the export contains shared secrets; store it securely")

			if outPath == "" {
				_, err := cmd.OutOrStdout().Write(data)
				return err
			}
			if err := atomic.WriteFile(outPath, bytes.NewReader(data)); err != nil {
				return fmt.Errorf("write export: %w", err)
			}
			if err := os.Chmod(outPath, 0o600); err != nil {
				return fmt.Errorf("restrict export permissions: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d accounts to %s\n", len(doc.Accounts), outPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write to file instead of stdout")
	return cmd
}

func newURICmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "uri <index>",
		Short: "Print the otpauth:// provisioning URI for an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			configs, err := a.store(cmd)
			if err != nil {
				return err
			}
			accounts, err := configs.List(cmd.Context())
			if err != nil {
				return err
			}
			if index >= len(accounts) {
				return fmt.Errorf("%w: %d of %d", driven.ErrIndexOutOfRange, index, len(accounts))
			}

			fmt.Fprintln(cmd.OutOrStdout(), otpauth.Format(accounts[index]))
			return nil
		},
	}
}

func newSecretCmd() *cobra.Command {
	var length int

	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Generate a random base32 secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			secret, err := otpauth.GenerateSecret(length)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), secret)
			return nil
		},
	}

	cmd.Flags().IntVarP(&length, "length", "n", otpauth.DefaultSecretLength, "secret length in base32 characters")
	return cmd
}

func newPromoteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "promote",
		Short: "Apply a staged upload now instead of at the next checkpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configs, err := a.store(cmd)
			if err != nil {
				return err
			}
			promoted, err := configs.PromoteStaged(cmd.Context())
			if err != nil {
				return err
			}
			if !promoted {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing staged.")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Staged configuration applied (%d accounts).\n", configs.Count(cmd.Context()))
			return nil
		},
	}
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the stored configuration summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configs, err := a.store(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			pending, err := configs.Pending(cmd.Context())
			if err != nil {
				return err
			}

			doc, err := configs.Load(cmd.Context())
			switch {
			case errors.Is(err, driven.ErrNotFound):
				fmt.Fprintln(out, "Configuration: none")
			case errors.Is(err, driven.ErrCorrupt):
				fmt.Fprintf(out, "Configuration: corrupt (%v)\n", err)
			case err != nil:
				return err
			default:
				fmt.Fprintf(out, "Accounts:      %d\n", len(doc.Accounts))
				fmt.Fprintf(out, "Pages:         %d\n", doc.Pages())
				fmt.Fprintf(out, "Brightness:    %g\n", doc.Settings.DisplayBrightness)
				fmt.Fprintf(out, "Rotation:      %ds\n", doc.Settings.RotationInterval)
				fmt.Fprintf(out, "Codes/page:    %d\n", doc.Settings.CodesPerPage)
			}
			fmt.Fprintf(out, "Staged upload: %t\n", pending)
			return nil
		},
	}
}

func newResetCmd(a *app) *cobra.Command {
	var yes, demo bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Replace the configuration with an empty default document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ok, err := a.confirm(cmd, yes, "Delete every account on the device?")
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
				return nil
			}

			configs, err := a.store(cmd)
			if err != nil {
				return err
			}
			if err := configs.Reset(cmd.Context(), demo); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Configuration reset.")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	cmd.Flags().BoolVar(&demo, "demo", false, "include a demo account")
	return cmd
}

func parseIndex(raw string) (int, error) {
	index, err := strconv.Atoi(raw)
	if err != nil || index < 0 {
		return 0, fmt.Errorf("invalid index %q", raw)
	}
	return index, nil
}

// parseColor accepts RRGGBB with an optional leading # or 0x.
func parseColor(raw string) (uint32, error) {
	s := strings.TrimPrefix(strings.TrimPrefix(strings.ToLower(raw), "#"), "0x")
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil || len(s) == 0 || len(s) > 6 {
		return 0, fmt.Errorf("invalid color %q: want RRGGBB hex", raw)
	}
	return uint32(v), nil
}
