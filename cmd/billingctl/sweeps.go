package main

import (
	"github.com/spf13/cobra"

	"github.com/jhoicas/Facturacion-api/internal/application/dto"
	"github.com/jhoicas/Facturacion-api/internal/bootstrap"
)

func (c *cli) recurringCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recurring",
		Short: "Perfiles de facturación recurrente",
	}
	var asOf string
	run := &cobra.Command{
		Use:   "run",
		Short: "Genera las facturas vencidas de todos los perfiles activos",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withServices(cmd.Context(), func(svc *bootstrap.Services) error {
				at, err := parseAsOf(asOf, svc.Clock.Now())
				if err != nil {
					return err
				}
				report, err := svc.Scheduler.RunDue(cmd.Context(), at)
				if err != nil {
					return err
				}
				c.log.Info().Int("generated", report.Generated).Int("failed", report.Failed).Msg("recurrencias procesadas")
				return c.printJSON(report)
			})
		},
	}
	run.Flags().StringVar(&asOf, "as-of", "", "fecha de corte YYYY-MM-DD (por defecto hoy)")
	cmd.AddCommand(run)
	return cmd
}

func (c *cli) invoicesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invoices",
		Short: "Operaciones masivas sobre facturas",
	}
	var asOf string
	overdue := &cobra.Command{
		Use:   "mark-overdue",
		Short: "Marca como vencidas las facturas con due_date anterior a la fecha de corte",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withServices(cmd.Context(), func(svc *bootstrap.Services) error {
				at, err := parseAsOf(asOf, svc.Clock.Now())
				if err != nil {
					return err
				}
				n, err := svc.Docs.MarkOverdue(cmd.Context(), at)
				if err != nil {
					return err
				}
				return c.printJSON(dto.CountResponse{Updated: n})
			})
		},
	}
	overdue.Flags().StringVar(&asOf, "as-of", "", "fecha de corte YYYY-MM-DD (por defecto hoy)")
	cmd.AddCommand(overdue)
	return cmd
}

func (c *cli) quotesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quotes",
		Short: "Operaciones masivas sobre cotizaciones",
	}
	var asOf string
	expire := &cobra.Command{
		Use:   "expire",
		Short: "Expira las cotizaciones enviadas cuya validez terminó",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withServices(cmd.Context(), func(svc *bootstrap.Services) error {
				at, err := parseAsOf(asOf, svc.Clock.Now())
				if err != nil {
					return err
				}
				n, err := svc.Docs.ExpireQuotes(cmd.Context(), at)
				if err != nil {
					return err
				}
				return c.printJSON(dto.CountResponse{Updated: n})
			})
		},
	}
	expire.Flags().StringVar(&asOf, "as-of", "", "fecha de corte YYYY-MM-DD (por defecto hoy)")
	cmd.AddCommand(expire)
	return cmd
}
