package config

import (
	"fmt"
	"strings"

	"github.com/walteh/twinsync/pkg/snapshot"
	"gitlab.com/tozd/go/errors"
)

// 💡 Hint returns a remediation hint for a startup error, or "" when there is none.
func Hint(err error) string {
	var notFound snapshot.FileNotFoundError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &notFound):
		return fmt.Sprintf("create it first, for example: touch %s", notFound.Path)
	case errors.Is(err, ErrMissingAPIKey):
		path, perr := APIKeyPath()
		if perr != nil {
			path = "~/" + Dir + "/" + APIKeyFile
		}
		return fmt.Sprintf("write your Anthropic api key on a single line to %s", path)
	case errors.Is(err, ErrUnknownModel):
		return "pass one of --model " + strings.Join(Models, ", ")
	default:
		return ""
	}
}
