package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	parley "github.com/parleyflow/parley"
	"github.com/parleyflow/parley/internal/presentation/tui"
	"github.com/parleyflow/parley/pkg/adapters/httpcall"
	"github.com/parleyflow/parley/pkg/adapters/llm/anthropic"
	"github.com/parleyflow/parley/pkg/adapters/llm/openai"
	"github.com/parleyflow/parley/pkg/config"
	"github.com/parleyflow/parley/pkg/domain"
)

var chatCmd = &cobra.Command{
	Use:   "chat <flow-file>",
	Short: "Run a flow interactively in the terminal",
	Long: `Starts a single in-memory session against the given flow and drives it
from stdin. Model providers are picked up from PARLEY_OPENAI_API_KEY and
PARLEY_ANTHROPIC_API_KEY when ai_chat nodes need them.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		plain, _ := cmd.Flags().GetBool("plain")
		if err := runChat(args[0], plain); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().Bool("plain", false, "Disable markdown rendering and the banner")
}

func runChat(path string, plain bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	opts := []parley.Option{
		parley.WithActionCaller(httpcall.New()),
		parley.WithActionTimeout(cfg.ActionTimeout),
	}
	if cfg.OpenAIKey != "" {
		opts = append(opts, parley.WithCompleter("openai", openai.New(cfg.OpenAIKey)))
	}
	if cfg.AnthropicKey != "" {
		opts = append(opts, parley.WithCompleter("anthropic", anthropic.New(cfg.AnthropicKey)))
	}
	if cfg.DefaultProvider != "" {
		opts = append(opts, parley.WithDefaultProvider(cfg.DefaultProvider))
	}

	fl, err := parley.Load(path, opts...)
	if err != nil {
		return err
	}

	interactive := !plain && term.IsTerminal(int(os.Stdout.Fd()))
	render := func(s string) string { return s }
	if interactive {
		tui.PrintBanner(parley.Version)
		md := tui.NewRenderer()
		render = func(s string) string {
			out, err := md(s)
			if err != nil {
				return s
			}
			return strings.TrimRight(out, "\n")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := fl.StartSession(ctx, "")
	if err != nil {
		return err
	}
	sessionID := res.SessionID
	printMessages(res, render)

	reader := bufio.NewReader(os.Stdin)
	for !res.Completed {
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Println("\nBye!")
				return nil
			}
			return err
		}
		input := strings.TrimSpace(line)
		if input == "/quit" {
			fmt.Println("Bye!")
			return nil
		}

		next, err := fl.ProcessTurn(ctx, sessionID, uuid.NewString(), input)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				fmt.Println("\nBye!")
				return nil
			}
			var aerr *domain.ActionError
			if errors.As(err, &aerr) {
				fmt.Printf("Action failed: %v\n", aerr)
				continue
			}
			return err
		}
		res = next
		printMessages(res, render)
	}

	fmt.Println("Conversation complete.")
	return nil
}

func printMessages(res *domain.TurnResult, render func(string) string) {
	for _, msg := range res.Messages {
		fmt.Println(render(msg))
	}
}
