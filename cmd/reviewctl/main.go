package main

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"reviewhub/internal/adapters/observability"
	"reviewhub/internal/security"
	"reviewhub/internal/shared"
	mysqlrepo "reviewhub/internal/storage/mysql"
	"reviewhub/internal/tenancy"
	migrations "reviewhub/migrations/mysql"
)

func main() {
	cfg := shared.Load()
	log.Logger = observability.NewLogger("dev", cfg.LogLevel, "reviewctl")

	root := &cobra.Command{
		Use:           "reviewctl",
		Short:         "Operator tooling for reviewhub",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(migrateCmd(cfg), tokenCmd(cfg), hashCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func migrateCmd(cfg shared.Config) *cobra.Command {
	dsn := cfg.MySQLDSN
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := sql.Open("mysql", dsn)
			if err != nil {
				return err
			}
			defer db.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()
			applied, err := mysqlrepo.Migrate(ctx, db, migrations.FS)
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				fmt.Println("schema up to date")
				return nil
			}
			for _, name := range applied {
				fmt.Println("applied", name)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dsn, "dsn", dsn, "MySQL DSN (env MYSQL_DSN)")
	return cmd
}

func tokenCmd(cfg shared.Config) *cobra.Command {
	var (
		userID    int64
		role      string
		companies []int64
		ttl       = cfg.JWTTTL
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for operational use",
		RunE: func(cmd *cobra.Command, args []string) error {
			policy, err := tenancy.LoadPolicy(cfg.PolicyFile)
			if err != nil {
				return err
			}
			if !policy.Known(tenancy.Role(role)) {
				return fmt.Errorf("unknown role %q", role)
			}
			if userID <= 0 {
				return fmt.Errorf("--user must be a positive id")
			}
			tokens, err := security.NewTokens(cfg.JWTSecret, cfg.JWTIssuer, ttl)
			if err != nil {
				return err
			}
			tok, exp, err := tokens.Mint(userID, role, companies)
			if err != nil {
				return err
			}
			fmt.Println(tok)
			fmt.Fprintln(os.Stderr, "expires", exp.UTC().Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 0, "user id (sub claim)")
	cmd.Flags().StringVar(&role, "role", string(tenancy.RoleViewer), "role name from the role policy")
	cmd.Flags().Int64SliceVar(&companies, "company", nil, "authorized company id (repeatable)")
	cmd.Flags().DurationVar(&ttl, "ttl", ttl, "token lifetime")
	return cmd
}

// hashCmd reads a password from stdin so it stays out of shell history.
func hashCmd() *cobra.Command {
	var cost int
	cmd := &cobra.Command{
		Use:   "hash-password",
		Short: "Print a bcrypt hash for a password read from stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("read password: %w", err)
			}
			pw := strings.TrimRight(line, "\r\n")
			if pw == "" {
				return fmt.Errorf("empty password")
			}
			h, err := security.HashPassword(pw, cost)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), h)
			return nil
		},
	}
	cmd.Flags().IntVar(&cost, "cost", 0, "bcrypt cost (0 = default)")
	return cmd
}
