package entity

import (
	"fmt"
	"time"
)

// SequenceScope alcance (tabla, prefijo, año) bajo el cual se asignan números consecutivos.
type SequenceScope struct {
	Table  string
	Prefix string
	Year   int
}

// Key clave persistida del contador, ej. "invoices:FAC:2025".
func (s SequenceScope) Key() string {
	return fmt.Sprintf("%s:%s:%d", s.Table, s.Prefix, s.Year)
}

// SequenceCounter último número entregado en un alcance. LastNumber solo aumenta.
type SequenceCounter struct {
	Scope      SequenceScope
	LastNumber int64
	UpdatedAt  time.Time
}
