package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/caffeineduck/reabind/reascript"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Interactive shell for host calls",
	Long: `Start an interactive shell that calls host functions.

Each line is a function name followed by its arguments, as for the call
command. Quote arguments containing spaces.

Features:
  - Command history (up/down arrows)
  - Function name completion (Tab)
  - History search (Ctrl+R)

Type 'help' to list functions, 'exit' or 'quit' to end the session, or
press Ctrl+D.`,
	Args: cobra.NoArgs,
	RunE: runRepl,
}

func init() {
	replCmd.Flags().String("history", "", "History file path (default: ~/.reabind_history)")
	rootCmd.AddCommand(replCmd)
}

func completer() *readline.PrefixCompleter {
	names := reascript.Catalog().Names()
	items := make([]readline.PrefixCompleterInterface, 0, len(names)+3)
	for _, name := range names {
		items = append(items, readline.PcItem(name))
	}
	items = append(items, readline.PcItem("help"), readline.PcItem("exit"), readline.PcItem("quit"))
	return readline.NewPrefixCompleter(items...)
}

func runRepl(cmd *cobra.Command, args []string) error {
	historyFile, _ := cmd.Flags().GetString("history")
	if historyFile == "" {
		home, _ := os.UserHomeDir()
		historyFile = filepath.Join(home, ".reabind_history")
	}

	ctx := cmd.Context()
	e := envFrom(cmd)
	s, err := e.connect(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            "reaper> ",
		HistoryFile:       historyFile,
		HistoryLimit:      1000,
		AutoComplete:      completer(),
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		return fmt.Errorf("initializing readline: %w", err)
	}
	defer rl.Close()

	version, err := s.client.HostVersion(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "reabind connected to host %s over %s (type 'exit' to quit, Ctrl+D to exit)\n", version, e.cfg.Transport)

	out := cmd.OutOrStdout()
	for {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(out)
				return nil
			}
			return fmt.Errorf("reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		switch line {
		case "":
			continue
		case "exit", "quit":
			return nil
		case "help":
			printSignatures(out)
			continue
		}

		fields, err := splitArgs(line)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			continue
		}
		res, err := invoke(ctx, s.gw, fields[0], fields[1:])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			continue
		}
		printOutputs(out, res)
	}
}

// splitArgs splits line on spaces. Double-quoted fields may contain spaces
// and Go escapes.
func splitArgs(line string) ([]string, error) {
	var fields []string
	for {
		line = strings.TrimLeft(line, " \t")
		if line == "" {
			return fields, nil
		}
		if line[0] == '"' {
			q, err := strconv.QuotedPrefix(line)
			if err != nil {
				return nil, fmt.Errorf("unterminated quote in %q", line)
			}
			v, _ := strconv.Unquote(q)
			fields = append(fields, v)
			line = line[len(q):]
			continue
		}
		end := strings.IndexAny(line, " \t")
		if end < 0 {
			end = len(line)
		}
		fields = append(fields, line[:end])
		line = line[end:]
	}
}
