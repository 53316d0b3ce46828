// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/walteh/twinsync/pkg/config"
	"github.com/walteh/twinsync/pkg/log"
	"gitlab.com/tozd/go/errors"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	h := NewHandler(afero.NewOsFs(), os.Stdout)
	rootCmd := newRootCmd(h)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		reportError(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// reportError prints a startup error with its remediation hint
func reportError(w io.Writer, err error) {
	ui := log.New(w, zerolog.Nop(), false)
	ui.Error(err.Error())

	hint := config.Hint(err)
	if hint == "" && errors.Is(err, errUsage) {
		hint = "run twinsync --help for usage"
	}
	if hint != "" {
		ui.Info(hint)
	}
}
