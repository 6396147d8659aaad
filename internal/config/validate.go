package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ValidationError represents a config validation failure.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors represents multiple validation failures.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var b strings.Builder
	b.WriteString("config validation failed:\n")
	for _, err := range e {
		b.WriteString("  - ")
		b.WriteString(err.Error())
		b.WriteString("\n")
	}
	return b.String()
}

var validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

var validLogFormats = map[string]bool{"text": true, "json": true}

// Validate checks the configuration for errors.
// Returns ValidationErrors if validation fails.
func Validate(cfg *Config) error {
	var errs ValidationErrors

	if !validLogLevels[strings.ToLower(cfg.Log.Level)] {
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("must be one of debug, info, warn, error; got %q", cfg.Log.Level),
		})
	}
	if !validLogFormats[strings.ToLower(cfg.Log.Format)] {
		errs = append(errs, ValidationError{
			Field:   "log.format",
			Message: fmt.Sprintf("must be text or json; got %q", cfg.Log.Format),
		})
	}

	// Map iteration order is random; report in a stable order.
	types := make([]string, 0, len(cfg.References))
	for t := range cfg.References {
		types = append(types, t)
	}
	sort.Strings(types)

	for _, t := range types {
		for i, r := range cfg.References[t].Rules {
			field := fmt.Sprintf("references.%s.rules[%d]", t, i)
			if r.Dir != "from" && r.Dir != "to" {
				errs = append(errs, ValidationError{
					Field:   field + ".dir",
					Message: fmt.Sprintf("must be \"from\" or \"to\"; got %q", r.Dir),
				})
			}
			if len(r.Targets) == 0 {
				errs = append(errs, ValidationError{
					Field:   field + ".targets",
					Message: "must not be empty",
				})
			}
			if r.Min != nil && *r.Min < 0 {
				errs = append(errs, ValidationError{
					Field:   field + ".min",
					Message: fmt.Sprintf("must not be negative; got %d", *r.Min),
				})
			}
			if r.Min != nil && r.Max != nil && *r.Min > *r.Max {
				errs = append(errs, ValidationError{
					Field:   field,
					Message: fmt.Sprintf("min %d exceeds max %d", *r.Min, *r.Max),
				})
			}
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// IsValidationError reports whether err came from Validate.
func IsValidationError(err error) bool {
	var ve ValidationError
	var ves ValidationErrors
	return errors.As(err, &ve) || errors.As(err, &ves)
}
