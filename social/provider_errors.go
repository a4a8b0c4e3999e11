package social

import (
	"errors"
	"fmt"

	goerrors "github.com/goliatone/go-errors"
)

// ProviderError captures normalized provider response details.
type ProviderError struct {
	Provider    string
	Operation   string
	Status      int
	Code        string
	Description string
	Err         error
	Raw         map[string]any
}

func (e *ProviderError) Error() string {
	if e == nil {
		return "provider error"
	}

	scope := "provider"
	switch {
	case e.Provider != "" && e.Operation != "":
		scope = e.Provider + " " + e.Operation
	case e.Provider != "":
		scope = e.Provider
	case e.Operation != "":
		scope = e.Operation
	}

	switch {
	case e.Description != "":
		return fmt.Sprintf("%s failed: %s", scope, e.Description)
	case e.Code != "":
		return fmt.Sprintf("%s failed: %s", scope, e.Code)
	case e.Err != nil:
		return fmt.Sprintf("%s failed: %v", scope, e.Err)
	}
	return scope + " failed"
}

func (e *ProviderError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Metadata flattens the response detail for structured logging.
func (e *ProviderError) Metadata() map[string]any {
	if e == nil {
		return nil
	}

	meta := map[string]any{}
	put := func(key string, ok bool, val any) {
		if ok {
			meta[key] = val
		}
	}

	put("provider", e.Provider != "", e.Provider)
	put("operation", e.Operation != "", e.Operation)
	put("status", e.Status != 0, e.Status)
	put("code", e.Code != "", e.Code)
	put("description", e.Description != "", e.Description)
	put("raw", len(e.Raw) > 0, e.Raw)

	return meta
}

// wrapProviderError folds a raw provider failure into one of the taxonomy
// errors, carrying the response detail as metadata for the operator log.
// The user-facing message stays the generic one on the base error.
func wrapProviderError(base *goerrors.Error, provider, operation string, err error) error {
	if base == nil {
		return err
	}

	meta := map[string]any{
		"provider":  provider,
		"operation": operation,
	}
	for k, v := range meta {
		if v == "" {
			delete(meta, k)
		}
	}

	var perr *ProviderError
	switch {
	case errors.As(err, &perr) && perr != nil:
		for k, v := range perr.Metadata() {
			meta[k] = v
		}
	case err != nil:
		meta["error"] = err.Error()
	}

	wrapped := base.Clone()
	if wrapped == nil {
		wrapped = base
	}
	if err != nil {
		wrapped.Source = err
	}
	if len(meta) > 0 {
		wrapped.WithMetadata(meta)
	}

	return wrapped
}
