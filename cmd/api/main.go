package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "api",
	Short: "Pet Wellness API",
	Long: `Servidor HTTP de Pet Wellness: perfil de la mascota, sesión con tier,
flows de IA con gating y pagos.

Sin subcomando arranca el servidor (igual que "serve").`,
	SilenceUsage: true,
	RunE:         runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Arranca el servidor HTTP",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Aplica el schema de Postgres (requiere DB_DSN)",
	RunE:  runMigrate,
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Emite un JWT de desarrollo firmado con JWT_SECRET",
	RunE:  runToken,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("CONFIG"), "Archivo YAML de configuración (o env CONFIG)")

	tokenCmd.Flags().StringVar(&tokenUser, "user", "", "User ID (sub)")
	tokenCmd.Flags().StringVar(&tokenEmail, "email", "", "Email del usuario")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "Vigencia del token (default 1h)")
	_ = tokenCmd.MarkFlagRequired("user")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(tokenCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
