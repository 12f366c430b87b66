package logger

import "context"

// NopLogger discards everything. Useful in tests.
type NopLogger struct{}

// NewNop returns a logger that drops all output.
func NewNop() *NopLogger { return &NopLogger{} }

func (NopLogger) Debug(context.Context, string, ...map[string]interface{}) {}

func (NopLogger) Info(context.Context, string, ...map[string]interface{}) {}

func (NopLogger) Warn(context.Context, string, ...map[string]interface{}) {}

func (NopLogger) Error(context.Context, error, string, ...map[string]interface{}) {}
