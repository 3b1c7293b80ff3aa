package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	schema "hotspot-billing/deploy/postgres"
	"hotspot-billing/internal/infra/api"
	pg "hotspot-billing/internal/infra/db/postgres"
)

func migrateCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, log, err := loadConfig(flags)
			if err != nil {
				return err
			}
			pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 2)
			if err != nil {
				return fmt.Errorf("postgres: %w", err)
			}
			defer pool.Close()
			if err := pg.Migrate(ctx, pool, schema.InitSQL); err != nil {
				return err
			}
			log.Info().Msg("schema applied")
			return nil
		},
	}
}

func syncPackageCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "sync-package <package-id>",
		Short: "Create the router profile of a package and mark it synced",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := buildApp(ctx, flags, false)
			if err != nil {
				return err
			}
			defer a.close()

			pkg, err := a.packageUC.Sync(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "package %s synced with profile %s\n", pkg.ID, pkg.ProfileName)
			return nil
		},
	}
}

func activateCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "activate <transaction-reference>",
		Short: "Confirm a payment by hand and issue its voucher",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := buildApp(ctx, flags, false)
			if err != nil {
				return err
			}
			defer a.close()

			a.queue.Start(ctx)
			// Stop runs the queued confirmation e-mail before exit, even on Ctrl-C.
			defer a.queue.Stop()

			res, err := a.activation.Activate(ctx, args[0])
			if err != nil {
				return err
			}
			code := ""
			if res.Voucher != nil {
				code = res.Voucher.Username
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s status=%s voucher=%s\n", res.Outcome, res.Status, code)
			return nil
		},
	}
}

func adminTokenCmd(flags *rootFlags) *cobra.Command {
	var subject string
	var scopes []string
	cmd := &cobra.Command{
		Use:   "admin-token",
		Short: "Mint a bearer token for the admin endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(flags)
			if err != nil {
				return err
			}
			auth := api.NewAuthManager(cfg.Auth.JWTSecret, cfg.Auth.TTL)
			tok, err := auth.Mint(subject, "admin", scopes)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "operator", "token subject, logged as actor")
	cmd.Flags().StringSliceVar(&scopes, "scope", []string{api.ScopePaymentsActivate, api.ScopePackagesSync},
		"granted scopes ("+strings.Join([]string{api.ScopePaymentsActivate, api.ScopePackagesSync, api.ScopeAll}, ", ")+")")
	return cmd
}
