package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/tetratelabs/wazero/api"

	"github.com/caffeineduck/reabind/script"
)

var runCmd = &cobra.Command{
	Use:   "run FILE.wasm",
	Short: "Run a WebAssembly script against the host",
	Long: `Run a WebAssembly script whose "reaper" imports call the host.

Scripts import functions by their declared names, for example
(import "reaper" "CountTracks" (func (param i64) (result i64))).
Only functions taking and returning numbers and handles are importable;
see --imports. The script's start function runs first, then --entry if
given, and its results are printed one per line.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().String("entry", "", "Exported function to call after instantiation")
	runCmd.Flags().StringSlice("param", nil, "Argument for the entry function (repeatable)")
	runCmd.Flags().Duration("run-timeout", 30*time.Second, "Timeout for the whole script")
	runCmd.Flags().String("memory", "", "Memory limit: 1mb, 16mb, 64mb, 256mb, 1gb")
	runCmd.Flags().Bool("no-cache", false, "Disable compilation cache")
	runCmd.Flags().Bool("imports", false, "List importable functions and exit")
	rootCmd.AddCommand(runCmd)
}

func parseMemoryLimit(s string) (uint32, error) {
	switch strings.ToLower(s) {
	case "":
		return 0, nil
	case "1mb":
		return 16, nil
	case "16mb":
		return 256, nil
	case "64mb":
		return 1024, nil
	case "256mb":
		return 4096, nil
	case "1gb":
		return 16384, nil
	}
	return 0, fmt.Errorf("invalid memory limit %q (expected 1mb, 16mb, 64mb, 256mb or 1gb)", s)
}

// parseParams reads entry arguments as integers, or as floats when they
// contain a '.', encoded the way wasm passes them.
func parseParams(raw []string) ([]uint64, error) {
	params := make([]uint64, len(raw))
	for i, s := range raw {
		if strings.Contains(s, ".") {
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("param %d: %w", i, err)
			}
			params[i] = api.EncodeF64(f)
			continue
		}
		n, err := strconv.ParseInt(s, 0, 64)
		if err != nil {
			return nil, fmt.Errorf("param %d: %w", i, err)
		}
		params[i] = uint64(n)
	}
	return params, nil
}

func runRun(cmd *cobra.Command, args []string) error {
	entry, _ := cmd.Flags().GetString("entry")
	rawParams, _ := cmd.Flags().GetStringSlice("param")
	timeout, _ := cmd.Flags().GetDuration("run-timeout")
	memory, _ := cmd.Flags().GetString("memory")
	noCache, _ := cmd.Flags().GetBool("no-cache")
	listImports, _ := cmd.Flags().GetBool("imports")

	if !listImports && len(args) == 0 {
		return fmt.Errorf("script file required")
	}
	pages, err := parseMemoryLimit(memory)
	if err != nil {
		return err
	}
	params, err := parseParams(rawParams)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	e := envFrom(cmd)
	s, err := e.connect(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	opts := []script.Option{script.WithLogger(e.log)}
	if !noCache {
		opts = append(opts, script.WithDiskCache())
	}
	if pages > 0 {
		opts = append(opts, script.WithMemoryLimit(pages))
	}
	runner, err := script.New(ctx, s.gw, opts...)
	if err != nil {
		return err
	}
	defer runner.Close()

	out := cmd.OutOrStdout()
	if listImports {
		for _, name := range runner.Imports() {
			fmt.Fprintln(out, name)
		}
		return nil
	}

	wasm, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	runOpts := []script.RunOption{script.WithTimeout(timeout)}
	if entry != "" {
		runOpts = append(runOpts, script.WithEntry(entry, params...))
	}
	result := runner.Run(ctx, wasm, runOpts...)
	fmt.Fprint(out, result.Output)
	for _, v := range result.Values {
		fmt.Fprintln(out, int64(v))
	}
	return result.Error
}
