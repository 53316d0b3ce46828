//go:build tools

// Package tools pins the development tools used by this repository.
//
//	go run github.com/vektra/mockery/v2            # regenerates gen/mockery from .mockery.yaml
//	go run github.com/google/addlicense -c "walteh LLC" .
//	go run gotest.tools/gotestsum -- ./...
package tools

import (
	_ "github.com/golangci/golangci-lint/cmd/golangci-lint"
	_ "github.com/google/addlicense"
	_ "github.com/vektra/mockery/v2"
	_ "gotest.tools/gotestsum"
)
