package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fwojciec/ochat"
	bt "github.com/fwojciec/ochat/bubbletea"
	"github.com/fwojciec/ochat/goldmark"
	ochatjson "github.com/fwojciec/ochat/json"
	"github.com/spf13/cobra"
)

const renderWidth = 80

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "ochat",
		Short: "Chat with local models from the terminal",
		Long: `ochat keeps conversations with an LLM backend in a local SQLite database.

Without a subcommand it opens the interactive TUI:
  Enter   send message (or open the selected chat)
  Tab     switch between input and chat list
  Ctrl+N  new chat
  Ctrl+D  delete chat
  Ctrl+T  next model
  Ctrl+C  stop generating, or quit`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			prompt, err := readPrompt(a.cfg.systemPrompt)
			if err != nil {
				return err
			}
			a.cfg.systemPrompt = prompt
			a.cfg.temperatureSet = cmd.Flags().Changed("temperature")
			return a.open()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			if err := bt.Run(cmd.Context(), bt.New(session, ochat.DefaultTheme())); err != nil {
				return fmt.Errorf("TUI: %w", err)
			}
			return nil
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&a.cfg.dbPath, "db", "", "Database path (default $OCHAT_DB or ~/.ochat/ochat.db)")
	f.StringVar(&a.cfg.provider, "provider", "ollama", "Provider: ollama, anthropic, gemini")
	f.StringVar(&a.cfg.model, "model", "", "Model name (default: provider default)")
	f.StringVar(&a.cfg.host, "host", "", "Backend base URL (default $OLLAMA_HOST for ollama)")
	f.StringVar(&a.cfg.apiKey, "api-key", "", "API key (overrides the provider's env var)")
	f.StringVar(&a.cfg.systemPrompt, "system-prompt", "", "System prompt, or @FILE to read it from a file")
	f.Float64Var(&a.cfg.temperature, "temperature", 0, "Sampling temperature (default: provider default)")
	f.StringVar(&a.cfg.logFile, "log-file", "", "Log file (default ~/.ochat/ochat.log)")
	f.StringVar(&a.cfg.logLevel, "log-level", "info", "Log level: debug, info, warn, error")

	root.AddCommand(
		a.askCmd(),
		a.listCmd(),
		a.showCmd(),
		a.deleteCmd(),
		a.exportCmd(),
		a.importCmd(),
		a.modelsCmd(),
		a.migrateLegacyCmd(),
	)
	return root
}

func (a *app) askCmd() *cobra.Command {
	var chat string
	cmd := &cobra.Command{
		Use:   "ask [--chat ID] MESSAGE...",
		Short: "Send one message and stream the reply to stdout",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			session, err := a.session(ctx)
			if err != nil {
				return err
			}

			var id ochat.ConversationID
			if chat != "" {
				if id, err = ochat.ParseConversationID(chat); err != nil {
					return err
				}
				if err := a.store.EnsureConversation(ctx, id); err != nil {
					return err
				}
				if err := session.Switch(ctx, id); err != nil {
					return err
				}
			} else if id, err = session.StartNew(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Chat %d\n", id)

			out := cmd.OutOrStdout()
			printed := 0
			_, err = session.Submit(ctx, strings.Join(args, " "), ochat.WithDisplay(func(buffer string) {
				io.WriteString(out, buffer[printed:])
				printed = len(buffer)
			}))
			fmt.Fprintln(out)
			return err
		},
	}
	cmd.Flags().StringVar(&chat, "chat", "", "Continue conversation ID (created if missing)")
	return cmd
}

func (a *app) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List conversations, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			chats, err := a.offlineSession().Conversations(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(chats) == 0 {
				fmt.Fprintln(out, "No conversations.")
				return nil
			}
			for _, c := range chats {
				fmt.Fprintln(out, c.Label())
			}
			return nil
		},
	}
}

func (a *app) showCmd() *cobra.Command {
	var render bool
	cmd := &cobra.Command{
		Use:   "show ID",
		Short: "Print a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := ochat.ParseConversationID(args[0])
			if err != nil {
				return err
			}
			session := a.offlineSession()
			if err := session.Switch(cmd.Context(), id); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for i, turn := range session.Turns() {
				if i > 0 {
					fmt.Fprintln(out)
				}
				switch {
				case turn.Role == ochat.RoleUser:
					fmt.Fprintf(out, "> %s\n", turn.Content)
				case render:
					fmt.Fprintln(out, strings.TrimRight(goldmark.Render(turn.Content, renderWidth, ochat.DefaultTheme()), "\n"))
				default:
					fmt.Fprintln(out, turn.Content)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&render, "render", false, "Render assistant markdown for the terminal")
	return cmd
}

func (a *app) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete ID...",
		Aliases: []string{"rm"},
		Short:   "Delete conversations",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			if err := a.offlineSession().Delete(cmd.Context(), ids...); err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted Chat %d\n", id)
			}
			return nil
		},
	}
}

func (a *app) exportCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export ID",
		Short: "Write a conversation as a JSON transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := ochat.ParseConversationID(args[0])
			if err != nil {
				return err
			}
			session := a.offlineSession()
			if err := session.Switch(cmd.Context(), id); err != nil {
				return err
			}
			tr := ochat.Transcript{
				ID:           id,
				SystemPrompt: a.cfg.systemPrompt,
				ExportedAt:   time.Now().UTC(),
				Turns:        session.Turns(),
			}
			if output != "" {
				if err := ochatjson.Save(output, tr); err != nil {
					return fmt.Errorf("export: %w", err)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Exported Chat %d to %s\n", id, output)
				return nil
			}
			data, err := ochatjson.Marshal(tr)
			if err != nil {
				return fmt.Errorf("export: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return err
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to FILE instead of stdout")
	return cmd
}

func (a *app) importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Load a JSON transcript as a new conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			tr, err := ochatjson.Load(args[0])
			if err != nil {
				return fmt.Errorf("import: %w", err)
			}
			id, err := a.store.CreateConversation(ctx)
			if err != nil {
				return err
			}
			for _, turn := range tr.Turns {
				if _, err := a.store.AppendTurn(ctx, id, turn.Role, turn.Content); err != nil {
					return err
				}
			}
			a.logger.Info("transcript imported", "file", args[0], "conversation", id, "turns", len(tr.Turns))
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d turns as Chat %d\n", len(tr.Turns), id)
			return nil
		},
	}
}

func (a *app) modelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the models the backend can serve",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			models, err := session.Models(cmd.Context())
			if err != nil {
				return err
			}
			for _, m := range models {
				fmt.Fprintln(cmd.OutOrStdout(), m)
			}
			return nil
		},
	}
}

func (a *app) migrateLegacyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate-legacy",
		Short: "Import chat_<n> tables written by older versions",
		Long: `Older versions stored each conversation in its own chat_<n> table.
This command copies every such table into the current schema, in stored
order, and drops it. A conversation whose id is already taken gets a new id.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			imports, err := a.store.MigrateLegacy(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(imports) == 0 {
				fmt.Fprintln(out, "No legacy tables found.")
				return nil
			}
			for _, imp := range imports {
				line := fmt.Sprintf("%s -> Chat %d (%d turns", imp.Table, imp.ID, imp.Turns)
				if imp.Skipped > 0 {
					line += fmt.Sprintf(", %d skipped", imp.Skipped)
				}
				fmt.Fprintln(out, line+")")
			}
			return nil
		},
	}
}
