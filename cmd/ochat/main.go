// Command ochat is a terminal chat client for models served by Ollama, with
// conversations stored in SQLite.
//
// Usage:
//
//	ochat [flags]                       interactive TUI
//	ochat ask [--chat ID] MESSAGE       one-shot question, reply on stdout
//	ochat list                          conversations, newest first
//	ochat show ID                       print a conversation
//	ochat delete ID...                  delete conversations
//	ochat export ID [-o FILE]           write a JSON transcript
//	ochat import FILE                   load a JSON transcript as a new chat
//	ochat models                        models the backend can serve
//	ochat migrate-legacy                import chat_<n> tables from older databases
//
// Environment:
//
//	OLLAMA_HOST        Ollama server (default http://localhost:11434)
//	OCHAT_DB           database path (default ~/.ochat/ochat.db)
//	ANTHROPIC_API_KEY  key for -provider anthropic
//	GEMINI_API_KEY     key for -provider gemini
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// Env vars are read here and passed as values.
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	env := environment{
		Home:         home,
		DB:           os.Getenv("OCHAT_DB"),
		OllamaHost:   os.Getenv("OLLAMA_HOST"),
		AnthropicKey: os.Getenv("ANTHROPIC_API_KEY"),
		GeminiKey:    os.Getenv("GEMINI_API_KEY"),
	}
	if err := run(ctx, os.Args[1:], env, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "ochat: %v\n", err)
		os.Exit(1)
	}
}

// run executes the command line in args and releases everything it opened.
func run(ctx context.Context, args []string, env environment, stdout, stderr io.Writer) error {
	a := &app{env: env}
	defer a.close()

	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.ExecuteContext(ctx)
}
