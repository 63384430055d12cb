package main

import (
	"github.com/spf13/cobra"

	"github.com/jhoicas/Facturacion-api/internal/infrastructure/postgres"
)

func (c *cli) migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Aplica o revierte el esquema embebido en PostgreSQL",
	}
	run := func(apply func(m *postgres.Migrator) error) func(*cobra.Command, []string) error {
		return func(_ *cobra.Command, _ []string) error {
			m, err := postgres.NewMigrator(c.cfg.DB.ConnectionString(), c.log.Component("migrate"))
			if err != nil {
				return err
			}
			defer m.Close()
			if err := apply(m); err != nil {
				return err
			}
			version, dirty, err := m.Version()
			if err != nil {
				return err
			}
			return c.printJSON(map[string]any{"version": version, "dirty": dirty})
		}
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Aplica las migraciones pendientes",
			Args:  cobra.NoArgs,
			RunE:  run((*postgres.Migrator).Up),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Revierte todas las migraciones",
			Args:  cobra.NoArgs,
			RunE:  run((*postgres.Migrator).Down),
		},
	)
	return cmd
}
