package services

import "fmt"

// InitError reports that the model client or the store could not be initialized.
// It fails the request with a server-side error.
type InitError struct {
	Component string // "model" or "store"
	Err       error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("Error de inicialización: %s: %v", e.Component, e.Err)
}

func (e *InitError) Unwrap() error { return e.Err }

// SQLExecutionError reports that the store rejected a generated statement.
// The orchestrator recovers from it through the retry turn.
type SQLExecutionError struct {
	SQL string
	Err error
}

// Error returns the store's message unchanged; it is what the model and the error row see.
func (e *SQLExecutionError) Error() string {
	return e.Err.Error()
}

func (e *SQLExecutionError) Unwrap() error { return e.Err }

// QuotaExceededMessage is shown when the model provider rejects a call for quota or rate limits.
const QuotaExceededMessage = "Cuota de IA excedida. Por favor intenta más tarde."
