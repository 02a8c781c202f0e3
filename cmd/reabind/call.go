package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/caffeineduck/reabind/gateway"
	"github.com/caffeineduck/reabind/handle"
	"github.com/caffeineduck/reabind/hostfunc"
	"github.com/caffeineduck/reabind/reascript"
)

var callCmd = &cobra.Command{
	Use:   "call FUNCTION [ARG...]",
	Short: "Call one host function",
	Long: `Call one host function by name and print its outputs, one per line.

Arguments are parsed by the declared kind of each parameter. Handles are
written as (MediaTrack*)0x0000000000010040; 0 stands for the "none" handle,
which functions taking a project read as the current project.

  reabind call CountTracks 0
  reabind call InsertTrackAtIndex 0 true
  reabind call GetTrackName "(MediaTrack*)0x0000000000010040" "" 256

Use --list to print every declared function.`,
	RunE: runCall,
}

func init() {
	callCmd.Flags().Bool("list", false, "List declared functions and exit")
	rootCmd.AddCommand(callCmd)
}

func runCall(cmd *cobra.Command, args []string) error {
	if list, _ := cmd.Flags().GetBool("list"); list {
		printSignatures(cmd.OutOrStdout())
		return nil
	}
	if len(args) == 0 {
		return fmt.Errorf("function name required (see --list)")
	}

	s, err := envFrom(cmd).connect(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	out, err := invoke(cmd.Context(), s.gw, args[0], args[1:])
	if err != nil {
		return err
	}
	printOutputs(cmd.OutOrStdout(), out)
	return nil
}

// invoke parses raw by name's declared signature and calls it.
func invoke(ctx context.Context, gw *gateway.Gateway, name string, raw []string) ([]any, error) {
	sig, ok := reascript.Catalog().Lookup(name)
	if !ok {
		return nil, fmt.Errorf("unknown function %q", name)
	}
	args, err := parseArgs(sig, raw)
	if err != nil {
		return nil, err
	}
	return gw.Call(ctx, sig, args...)
}

func parseArgs(sig hostfunc.Signature, raw []string) ([]any, error) {
	if len(raw) != len(sig.Params) {
		return nil, fmt.Errorf("%s takes %d arguments, got %d: %s", sig.Name, len(sig.Params), len(raw), formatSignature(sig))
	}
	args := make([]any, len(raw))
	for i, p := range sig.Params {
		v, err := parseArg(p, raw[i])
		if err != nil {
			return nil, fmt.Errorf("%s: argument %s: %w", sig.Name, p.Name, err)
		}
		args[i] = v
	}
	return args, nil
}

func parseArg(p hostfunc.Param, s string) (any, error) {
	switch p.Kind {
	case hostfunc.KindInt:
		return strconv.ParseInt(s, 0, 64)
	case hostfunc.KindFloat:
		return strconv.ParseFloat(s, 64)
	case hostfunc.KindBool:
		return strconv.ParseBool(s)
	case hostfunc.KindString:
		return s, nil
	case hostfunc.KindHandle:
		if s == "0" || s == "" {
			return handle.Sentinel(p.Tag), nil
		}
		return handle.Decode(s)
	}
	return nil, fmt.Errorf("unsupported kind %s", p.Kind)
}

func formatValue(v any) string {
	switch x := v.(type) {
	case handle.Identifier:
		return x.Handle().String()
	case string:
		return strconv.Quote(x)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	}
	return fmt.Sprint(v)
}

func printOutputs(w io.Writer, out []any) {
	for _, v := range out {
		fmt.Fprintln(w, formatValue(v))
	}
}

func formatSignature(sig hostfunc.Signature) string {
	params := make([]string, len(sig.Params))
	for i, p := range sig.Params {
		kind := p.Kind.String()
		if p.Kind == hostfunc.KindHandle && p.Tag != "" {
			kind = p.Tag + "*"
		}
		if p.InOut {
			kind = "out " + kind
		}
		params[i] = p.Name + " " + kind
	}
	return fmt.Sprintf("%s(%s) %s", sig.Name, strings.Join(params, ", "), sig.Returns)
}

func printSignatures(w io.Writer) {
	cat := reascript.Catalog()
	for _, name := range cat.Names() {
		sig, _ := cat.Lookup(name)
		fmt.Fprintln(w, formatSignature(sig))
	}
}
