package main

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/jhoicas/Facturacion-api/internal/application/billing"
	"github.com/jhoicas/Facturacion-api/internal/bootstrap"
)

func (c *cli) ratesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rates",
		Short: "Tasas de cambio",
	}
	var (
		at     string
		source string
	)
	add := &cobra.Command{
		Use:     "add BASE TARGET RATE",
		Short:   "Registra una tasa BASE→TARGET",
		Example: "  billingctl rates add USD EUR 0.9215 --at 2025-03-01T00:00:00Z",
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			rate, err := decimal.NewFromString(args[2])
			if err != nil {
				return fmt.Errorf("RATE: número inválido %q", args[2])
			}
			var fetchedAt time.Time
			if at != "" {
				if fetchedAt, err = time.Parse(time.RFC3339, at); err != nil {
					return fmt.Errorf("--at: se espera RFC3339: %w", err)
				}
			}
			return c.withServices(cmd.Context(), func(svc *bootstrap.Services) error {
				saved, err := svc.Rates.RecordRate(cmd.Context(), args[0], args[1], rate, fetchedAt, source)
				if err != nil {
					return err
				}
				return c.printJSON(billing.RateResponse(saved))
			})
		},
	}
	add.Flags().StringVar(&at, "at", "", "instante de publicación RFC3339 (por defecto ahora)")
	add.Flags().StringVar(&source, "source", "cli", "origen de la tasa")
	cmd.AddCommand(add)
	return cmd
}
