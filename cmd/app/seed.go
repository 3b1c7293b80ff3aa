package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"hotspot-billing/internal/domain/model"
	pg "hotspot-billing/internal/infra/db/postgres"
)

// seedCmd inserts sample packages and a demo user for local testing.
// Packages are created unsynced; run sync-package on each afterwards.
func seedCmd(flags *rootFlags) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert sample packages and a demo user",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, _, err := loadConfig(flags)
			if err != nil {
				return err
			}
			pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 2)
			if err != nil {
				return fmt.Errorf("postgres: %w", err)
			}
			defer pool.Close()

			packages := pg.NewPackageRepo(pool)
			seed := []struct {
				name  string
				hours int
				price int64
				rate  string
			}{
				{"1 heure", 1, 200, "1M/1M"},
				{"5 heures", 5, 500, "1M/1M"},
				{"24 heures", 24, 1000, "2M/2M"},
			}
			out := cmd.OutOrStdout()
			for _, s := range seed {
				p, err := model.NewPackage(uuid.NewString(), s.name, decimal.NewFromInt(s.price), s.hours, s.rate)
				if err != nil {
					return err
				}
				if err := packages.Save(ctx, nil, p); err != nil {
					return fmt.Errorf("save package %q: %w", s.name, err)
				}
				fmt.Fprintf(out, "package %s id=%s price=%s %s profile=%s\n", p.Name, p.ID, p.Price, cfg.Payment.CinetPay.Currency, p.DeriveProfileName())
			}

			u, err := model.NewUser("", "demo", email)
			if err != nil {
				return err
			}
			if err := pg.NewUserRepo(pool).Save(ctx, nil, u); err != nil {
				return fmt.Errorf("save user: %w", err)
			}
			fmt.Fprintf(out, "user %s id=%s email=%s\n", u.Username, u.ID, u.ContactEmail())
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "demo@example.com", "demo user e-mail")
	return cmd
}
