package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/jhoicas/Facturacion-api/internal/application/dto"
	"github.com/jhoicas/Facturacion-api/internal/bootstrap"
	"github.com/jhoicas/Facturacion-api/pkg/config"
	"github.com/jhoicas/Facturacion-api/pkg/logger"
)

// cli estado compartido por los subcomandos. La configuración se carga en PersistentPreRunE.
type cli struct {
	out io.Writer
	cfg *config.Config
	log *logger.Logger
}

func newRootCmd(out io.Writer) *cobra.Command {
	c := &cli{out: out}
	root := &cobra.Command{
		Use:           "billingctl",
		Short:         "Operación de facturación: migraciones, recurrencias, vencimientos y tasas",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			c.cfg = cfg
			c.log = logger.New(logger.Config{
				Env:     cfg.App.Env,
				Level:   cfg.Log.Level,
				Service: "billingctl",
				Out:     cmd.ErrOrStderr(),
			})
			return nil
		},
	}
	root.AddCommand(
		c.migrateCmd(),
		c.recurringCmd(),
		c.invoicesCmd(),
		c.quotesCmd(),
		c.ratesCmd(),
	)
	return root
}

// withServices construye los servicios, ejecuta fn y libera las conexiones.
func (c *cli) withServices(ctx context.Context, fn func(svc *bootstrap.Services) error) error {
	svc, err := bootstrap.Build(ctx, c.cfg, c.log)
	if err != nil {
		return err
	}
	defer svc.Close()
	return fn(svc)
}

// printJSON escribe el resultado indentado en la salida del comando.
func (c *cli) printJSON(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// parseAsOf interpreta --as-of (YYYY-MM-DD); vacío usa now.
func parseAsOf(s string, now time.Time) (time.Time, error) {
	t, ok, err := dto.ParseDate(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("--as-of: se espera YYYY-MM-DD: %w", err)
	}
	if !ok {
		return now, nil
	}
	return t, nil
}
