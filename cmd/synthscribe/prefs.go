package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/synthscribe/synthscribe/ai/suggest"
	"github.com/synthscribe/synthscribe/store"
)

func newHistoryCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent suggestion sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := loadProfile()
			if err != nil {
				return err
			}
			prefs := store.NewUserProfile(p.PreferencesPath())

			entries := prefs.History()
			if limit > 0 && len(entries) > limit {
				entries = entries[:limit]
			}
			printHistory(cmd.OutOrStdout(), entries)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of sessions to show")
	return cmd
}

func newFavoritesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "favorites",
		Short: "List saved favorites",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := loadProfile()
			if err != nil {
				return err
			}
			prefs := store.NewUserProfile(p.PreferencesPath())
			printFavorites(cmd.OutOrStdout(), prefs.Favorites())
			return nil
		},
	}
}

func printHistory(w io.Writer, entries []store.HistoryEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No suggestion history yet.")
		return
	}
	for _, entry := range entries {
		fmt.Fprintf(w, "%s  %q\n", entry.Timestamp.Local().Format("2006-01-02 15:04"), entry.Mood)
		for i, s := range entry.Suggestions {
			fmt.Fprintf(w, "  %d. %s", i+1, s)
		}
		fmt.Fprintln(w)
	}
}

func printFavorites(w io.Writer, favorites []suggest.MusicSuggestion) {
	if len(favorites) == 0 {
		fmt.Fprintln(w, "No favorites yet.")
		return
	}
	for i, s := range favorites {
		fmt.Fprintf(w, "%d. %s", i+1, s)
	}
}
