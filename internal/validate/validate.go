// SPDX-License-Identifier: MIT

// Package validate collects configuration failures so they can be reported together.
package validate

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// Error is one failed field.
type Error struct {
	Field   string
	Value   any
	Message string
}

func (e Error) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
}

// ValidationError is every failure of one validation pass.
type ValidationError struct {
	errors []Error
}

// Errors returns the individual failures in the order they were found.
func (e ValidationError) Errors() []Error {
	return append([]Error(nil), e.errors...)
}

func (e ValidationError) Error() string {
	msgs := make([]string, len(e.errors))
	for i, err := range e.errors {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Validator accumulates failures; Err reports them.
type Validator struct {
	errors []Error
}

func New() *Validator {
	return &Validator{}
}

func (v *Validator) AddError(field, message string, value any) {
	v.errors = append(v.errors, Error{Field: field, Value: value, Message: message})
}

// Err returns nil or a ValidationError holding a copy of the failures.
func (v *Validator) Err() error {
	if len(v.errors) == 0 {
		return nil
	}
	return ValidationError{errors: append([]Error(nil), v.errors...)}
}

// Port checks 1..65535.
func (v *Validator) Port(field string, port int) {
	if port <= 0 || port > 65535 {
		v.AddError(field, fmt.Sprintf("port must be between 1 and 65535, got %d", port), port)
	}
}

// ListenAddr checks a host:port listen address. The host may be empty.
func (v *Validator) ListenAddr(field, addr string) {
	v.hostPort(field, addr, false)
}

// Endpoint checks a host:port address that must name a host.
func (v *Validator) Endpoint(field, addr string) {
	v.hostPort(field, addr, true)
}

func (v *Validator) hostPort(field, addr string, needHost bool) {
	if addr == "" {
		v.AddError(field, "address cannot be empty", addr)
		return
	}
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		v.AddError(field, fmt.Sprintf("invalid address: %v", err), addr)
		return
	}
	if needHost && host == "" {
		v.AddError(field, "address must include a host", addr)
		return
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		v.AddError(field, fmt.Sprintf("invalid port %q", portStr), addr)
		return
	}
	v.Port(field, port)
}

// DurationRange checks minVal <= value <= maxVal.
func (v *Validator) DurationRange(field string, value, minVal, maxVal time.Duration) {
	if value < minVal || value > maxVal {
		v.AddError(field, fmt.Sprintf("duration must be between %s and %s, got %s", minVal, maxVal, value), value)
	}
}

// FloatRange checks minVal <= value <= maxVal.
func (v *Validator) FloatRange(field string, value, minVal, maxVal float64) {
	if value < minVal || value > maxVal {
		v.AddError(field, fmt.Sprintf("value must be between %g and %g, got %g", minVal, maxVal, value), value)
	}
}

// NotEmpty rejects empty and whitespace-only strings.
func (v *Validator) NotEmpty(field, value string) {
	if strings.TrimSpace(value) == "" {
		v.AddError(field, "value cannot be empty", value)
	}
}

func (v *Validator) OneOf(field, value string, allowed []string) {
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	v.AddError(field, fmt.Sprintf("value must be one of %v, got %q", allowed, value), value)
}
