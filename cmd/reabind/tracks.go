package main

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/caffeineduck/reabind/reaper"
)

var tracksCmd = &cobra.Command{
	Use:   "tracks",
	Short: "List the tracks of the current project",
	Long: `List the tracks of the current project with their index, name and
handle. --add appends a named track first; --delete removes the tracks a
Python-style slice selects, e.g. --delete 1:4:2.`,
	Args: cobra.NoArgs,
	RunE: runTracks,
}

func init() {
	tracksCmd.Flags().StringSlice("add", nil, "Append a track with this name (repeatable)")
	tracksCmd.Flags().String("delete", "", "Delete the tracks selected by start:stop:step")
	rootCmd.AddCommand(tracksCmd)
}

func runTracks(cmd *cobra.Command, args []string) error {
	add, _ := cmd.Flags().GetStringSlice("add")
	del, _ := cmd.Flags().GetString("delete")

	ctx := cmd.Context()
	s, err := envFrom(cmd).connect(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	p, err := s.client.CurrentProject(ctx)
	if err != nil {
		return err
	}
	for _, name := range add {
		n, err := p.NumTracks(ctx)
		if err != nil {
			return err
		}
		if _, err := p.AddTrack(ctx, n, name); err != nil {
			return err
		}
	}
	if del != "" {
		sl, err := parseSlice(del)
		if err != nil {
			return err
		}
		if err := p.Tracks().DeleteSlice(ctx, sl); err != nil {
			return err
		}
	}

	tracks, err := p.Tracks().All(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "INDEX\tNAME\tHANDLE")
	for i, t := range tracks {
		name, err := t.Name(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%d\t%s\t%s\n", i, name, t.Handle())
	}
	return w.Flush()
}

// parseSlice reads "start:stop:step" with any part optional, or a single
// index.
func parseSlice(s string) (reaper.Slice, error) {
	var sl reaper.Slice
	parts := strings.SplitN(s, ":", 3)
	fields := []**int{&sl.Start, &sl.Stop, &sl.Step}
	for i, part := range parts {
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return reaper.Slice{}, fmt.Errorf("invalid slice %q: %w", s, err)
		}
		*fields[i] = reaper.Int(n)
	}
	if len(parts) == 1 {
		if sl.Start == nil {
			return reaper.Slice{}, fmt.Errorf("invalid slice %q", s)
		}
		sl.Stop = reaper.Int(*sl.Start + 1)
		if *sl.Start == -1 {
			sl.Stop = nil
		}
	}
	return sl, nil
}
