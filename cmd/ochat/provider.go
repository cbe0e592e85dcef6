package main

import (
	"context"
	"fmt"

	"github.com/fwojciec/ochat"
	"github.com/fwojciec/ochat/anthropic"
	"github.com/fwojciec/ochat/gemini"
	"github.com/fwojciec/ochat/ollama"
)

// resolveProvider selects and constructs the provider. Ollama is the
// default and needs no key. Env var values arrive through env; env is only
// read in main().
func resolveProvider(ctx context.Context, name, apiKeyFlag, host string, env environment) (ochat.Provider, error) {
	key := apiKeyFlag
	switch name {
	case "", "ollama":
		if host == "" {
			host = env.OllamaHost
		}
		return ollama.New(ollama.WithBaseURL(host)), nil
	case "anthropic":
		if key == "" {
			key = env.AnthropicKey
		}
		if key == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY not set (use --api-key flag or environment variable)")
		}
		var opts []anthropic.Option
		if host != "" {
			opts = append(opts, anthropic.WithBaseURL(host))
		}
		return anthropic.New(key, opts...), nil
	case "gemini":
		if key == "" {
			key = env.GeminiKey
		}
		if key == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY not set (use --api-key flag or environment variable)")
		}
		var opts []gemini.Option
		if host != "" {
			opts = append(opts, gemini.WithBaseURL(host))
		}
		client, err := gemini.New(ctx, key, opts...)
		if err != nil {
			return nil, fmt.Errorf("gemini: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown provider %q: must be \"ollama\", \"anthropic\" or \"gemini\"", name)
	}
}
