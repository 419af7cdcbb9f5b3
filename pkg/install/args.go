package install

import (
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// ArgValue is a single workload argument: an explicit value, falling back to
// a default when unset.
type ArgValue struct {
	Value   string `json:"value,omitempty" mapstructure:"value"`
	Default string `json:"default,omitempty" mapstructure:"default"`
}

func (v ArgValue) Get() string {
	if v.Value != "" {
		return v.Value
	}
	return v.Default
}

// Args is the workload argument mapping a strategy is constructed with.
// Keys are unique by construction.
type Args map[string]ArgValue

// Get resolves a key to its effective value.
func (a Args) Get(key string) string {
	return a[key].Get()
}

// GetDefault resolves a key, substituting fallback when the argument is
// absent or empty.
func (a Args) GetDefault(key, fallback string) string {
	if v := a.Get(key); v != "" {
		return v
	}
	return fallback
}

// Require fails construction when any of the named arguments resolves to an
// empty value. Missing required arguments are a caller bug and abort before
// any check runs.
func (a Args) Require(keys ...string) error {
	var merr *multierror.Error
	for _, key := range keys {
		if a.Get(key) == "" {
			merr = multierror.Append(merr, errors.Errorf("required workload argument %q is missing", key))
		}
	}
	return merr.ErrorOrNil()
}
