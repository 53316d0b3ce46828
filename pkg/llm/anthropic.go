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

package llm

import (
	"context"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// 🔧 AnthropicOptions configures the Messages API client
type AnthropicOptions struct {
	APIKey string
	// BaseURL overrides the API endpoint when set
	BaseURL string
	// Timeout bounds a single request, retries included
	Timeout time.Duration
	// MaxRetries is passed through to the SDK
	MaxRetries int
}

// 🤖 AnthropicCompleter implements Completer with the Anthropic Messages API
type AnthropicCompleter struct {
	client  anthropic.Client
	timeout time.Duration
}

var _ Completer = (*AnthropicCompleter)(nil)

// 🏭 NewAnthropicCompleter creates a completer
func NewAnthropicCompleter(opts AnthropicOptions) (*AnthropicCompleter, error) {
	if opts.APIKey == "" {
		return nil, errors.Errorf("api key is required")
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithMaxRetries(opts.MaxRetries),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	if opts.Timeout > 0 {
		reqOpts = append(reqOpts, option.WithRequestTimeout(opts.Timeout))
	}

	return &AnthropicCompleter{
		client:  anthropic.NewClient(reqOpts...),
		timeout: opts.Timeout,
	}, nil
}

// 📨 Complete sends the prompt as a single user message and returns the text reply.
func (c *AnthropicCompleter) Complete(ctx context.Context, req Request) (string, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline && c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	logger := zerolog.Ctx(ctx)
	start := time.Now()
	logger.Debug().
		Str("model", req.Model).
		Int("prompt_len", len(req.Prompt)).
		Int64("max_tokens", req.MaxTokens).
		Msg("sending completion request")

	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: req.MaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	})
	if err != nil {
		return "", errors.Errorf("calling messages api: %w", err)
	}

	if len(msg.Content) != 1 || msg.Content[0].Type != "text" {
		types := make([]string, 0, len(msg.Content))
		for _, block := range msg.Content {
			types = append(types, block.Type)
		}
		logger.Debug().Strs("content_types", types).Msg("rejecting response shape")
		return "", errors.Errorf("%w: expected one text block, got %v", ErrUnexpectedResponse, types)
	}

	logger.Debug().
		Dur("elapsed", time.Since(start)).
		Str("stop_reason", string(msg.StopReason)).
		Int("response_len", len(msg.Content[0].Text)).
		Msg("completion received")

	return msg.Content[0].Text, nil
}
