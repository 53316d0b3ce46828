package config

import (
	"strings"

	"gitlab.com/tozd/go/errors"
)

// ErrUnknownModel is returned for a model outside Models.
var ErrUnknownModel = errors.Base("unknown model")

// DefaultModel is used when neither the flag nor the settings file pick one.
const DefaultModel = "claude-sonnet-4-0"

// Models is the fixed set of accepted model identifiers.
var Models = []string{
	"claude-sonnet-4-0",
	"claude-opus-4-0",
	"claude-opus-4-1",
	"claude-3-7-sonnet-latest",
	"claude-3-5-haiku-latest",
}

// ValidateModel returns ErrUnknownModel unless model is one of Models.
func ValidateModel(model string) error {
	for _, m := range Models {
		if m == model {
			return nil
		}
	}
	return errors.Errorf("%w %q (available: %s)", ErrUnknownModel, model, strings.Join(Models, ", "))
}
