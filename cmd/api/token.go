package main

import (
	"fmt"
	"time"

	"pet-wellness/internal/adapters/auth/jwtauth"
	"pet-wellness/internal/config"
	"pet-wellness/internal/ports/auth"

	"github.com/spf13/cobra"
)

var (
	tokenUser  string
	tokenEmail string
	tokenTTL   time.Duration
)

func runToken(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	signer, err := jwtauth.NewSigner(jwtConfig(cfg))
	if err != nil {
		return fmt.Errorf("token: %w (set JWT_SECRET)", err)
	}

	tok, err := signer.Sign(auth.Claims{UserID: tokenUser, Email: tokenEmail}, tokenTTL)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), tok)
	return err
}
