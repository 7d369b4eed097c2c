package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ideaforge/internal/bookmarks"
)

var bookmarkTopic string

var bookmarkCmd = &cobra.Command{
	Use:   "bookmark",
	Short: "Manage saved ideas",
}

func bookmarkStore() *bookmarks.Store {
	path := fileConfig.BookmarkPath
	if path == "" {
		path = bookmarks.DefaultPath()
	}
	return bookmarks.NewStore(path)
}

var bookmarkListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved ideas, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := bookmarkStore().List()
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println(dimStyle.Render("no bookmarks yet"))
			return nil
		}
		for _, e := range entries {
			fmt.Printf("%s %s\n", titleStyle.Render(e.Idea), dimStyle.Render("("+e.ID+")"))
			if e.Topic != "" {
				fmt.Printf("  topic: %s", e.Topic)
				if e.Score > 0 {
					fmt.Printf("  score: %.1f", e.Score)
				}
				fmt.Println()
			}
			fmt.Printf("  %s\n", dimStyle.Render(e.CreatedAt.Format("2006-01-02 15:04")))
		}
		return nil
	},
}

var bookmarkSaveCmd = &cobra.Command{
	Use:   "save <idea>",
	Short: "Save an idea",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store := bookmarkStore()

		check, err := store.CheckDuplicate(args[0], bookmarkTopic)
		if err != nil {
			return err
		}
		switch check.Recommendation {
		case bookmarks.RecommendationBlock:
			fmt.Fprintln(os.Stderr, warnStyle.Render("not saved: a nearly identical bookmark exists"))
			for _, s := range check.SimilarBookmarks {
				fmt.Fprintf(os.Stderr, "  %.0f%% similar: %s\n", s.Similarity*100, s.Entry.Idea)
			}
			return fmt.Errorf("duplicate bookmark")
		case bookmarks.RecommendationWarn, bookmarks.RecommendationNotice:
			fmt.Fprintln(os.Stderr, warnStyle.Render("similar bookmarks exist:"))
			for _, s := range check.SimilarBookmarks {
				fmt.Fprintf(os.Stderr, "  %.0f%% similar: %s\n", s.Similarity*100, s.Entry.Idea)
			}
		}

		id, err := store.Save(bookmarks.Entry{Idea: args[0], Topic: bookmarkTopic})
		if err != nil {
			return err
		}
		fmt.Println("saved", id)
		return nil
	},
}

var bookmarkRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a saved idea",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return bookmarkStore().Remove(args[0])
	},
}

var bookmarkCheckCmd = &cobra.Command{
	Use:   "check <idea>",
	Short: "Check an idea against saved bookmarks",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		check, err := bookmarkStore().CheckDuplicate(args[0], bookmarkTopic)
		if err != nil {
			return err
		}
		fmt.Printf("recommendation: %s\n", check.Recommendation)
		for _, s := range check.SimilarBookmarks {
			fmt.Printf("  %.0f%% similar: %s\n", s.Similarity*100, s.Entry.Idea)
		}
		return nil
	},
}

func init() {
	bookmarkCmd.PersistentFlags().StringVarP(&bookmarkTopic, "topic", "t", "", "scope to a topic (empty checks all)")
	bookmarkCmd.AddCommand(bookmarkListCmd, bookmarkSaveCmd, bookmarkRemoveCmd, bookmarkCheckCmd)
	rootCmd.AddCommand(bookmarkCmd)
}
