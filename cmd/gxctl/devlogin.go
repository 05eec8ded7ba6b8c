package main

import (
	"errors"

	"github.com/spf13/cobra"

	"gxshared/internal/email"
	"gxshared/internal/guard"
)

var devLogin guard.DevLogin

var devLoginURLCmd = &cobra.Command{
	Use:     "dev-login-url <email>",
	Short:   "Print a login URL that authenticates without email (dev only)",
	GroupID: "system",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.IsProd() {
			return errors.New("dev login URLs are rejected in prod")
		}
		login := devLogin
		login.Email = args[0]
		base := email.URLConfig{
			PublicURL:    cfg.PublicURLString(),
			PlatformHost: cfg.PlatformURL,
			LocalPort:    cfg.LocalPort,
		}.BaseURL()
		u, err := guard.CreateDevLoginURL(base, login)
		if err != nil {
			return err
		}
		return printResult(cmd.OutOrStdout(), map[string]string{"url": u}, u)
	},
}

func init() {
	devLoginURLCmd.Flags().BoolVar(&devLogin.IsAdmin, "admin", false, "grant admin rights")
	devLoginURLCmd.Flags().StringVar(&devLogin.UserID, "user-id", "", "user id carried in the token")
	devLoginURLCmd.Flags().StringVar(&devLogin.Name, "name", "", "display name")
	devLoginURLCmd.Flags().StringVar(&devLogin.RedirectPath, "path", "", "verify path (default "+guard.DefaultDevVerify+")")
}
