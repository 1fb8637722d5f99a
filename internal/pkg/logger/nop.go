package logger

import "github.com/dvaldes/tars-go/internal/ports"

// Nop discards everything. Useful in tests.
type Nop struct{}

func (Nop) Debug(string, map[string]interface{})        {}
func (Nop) Info(string, map[string]interface{})         {}
func (Nop) Warn(string, map[string]interface{})         {}
func (Nop) Error(string, error, map[string]interface{}) {}

var _ ports.Logger = Nop{}
