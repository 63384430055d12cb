// billingctl tareas de operación: migraciones, recurrencias, barridos y tasas de cambio.
//
// Uso: billingctl migrate up | recurring run --as-of 2025-03-31 | rates add USD EUR 0.92
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// .env opcional; las variables ya exportadas tienen prioridad
	_ = godotenv.Load()

	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
