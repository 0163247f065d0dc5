// chronoctl is the maintenance CLI: migrations, demo seeding, tag listing,
// and search reindexing against a running ChronoMind database.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"chronomind/api/internal/app"
	"chronomind/api/internal/config"
	"chronomind/api/internal/search"
	"chronomind/api/internal/store"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "chronoctl",
		Short: "ChronoMind maintenance commands",
	}

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(tagsCmd())
	rootCmd.AddCommand(reindexCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func openDB(ctx context.Context) (*sql.DB, error) {
	cfg := config.Load()
	return store.Open(ctx, cfg.DatabaseURL)
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			db, err := openDB(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := store.ApplyMigrations(ctx, db); err != nil {
				return err
			}
			fmt.Println("migrations applied")
			return nil
		},
	}
}

func seedCmd() *cobra.Command {
	var userName string
	var year int

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create a demo user with one item in every journal section",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			db, err := openDB(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			s := store.NewPostgresStore(db)

			user, err := s.EnsureUserByName(ctx, userName)
			if err != nil {
				return err
			}
			y, err := s.EnsureYear(ctx, user.ID, year)
			if err != nil {
				return err
			}

			dailyLog, err := s.InsertDailyLog(ctx, y.ID, time.Now())
			if err != nil {
				return err
			}
			if _, err := s.InsertQuarterlyReflection(ctx, y.ID, 1); err != nil {
				return err
			}
			goal, err := s.InsertGoal(ctx, y.ID, "Read twelve books")
			if err != nil {
				return err
			}
			task, err := s.InsertTask(ctx, goal.ID, "Pick the first book")
			if err != nil {
				return err
			}
			if _, err := s.InsertSubtask(ctx, task.ID, "Skim the library list"); err != nil {
				return err
			}
			genre, err := s.InsertGenre(ctx, y.ID, "Non-fiction")
			if err != nil {
				return err
			}
			book, err := s.InsertBook(ctx, genre.ID, "Deep Work")
			if err != nil {
				return err
			}
			if _, err := s.InsertChapter(ctx, book.ID, "Chapter 1"); err != nil {
				return err
			}
			if _, err := s.InsertLesson(ctx, y.ID, "Mornings beat evenings"); err != nil {
				return err
			}
			if _, err := s.InsertCreativeNote(ctx, y.ID); err != nil {
				return err
			}

			fmt.Printf("seeded user %s (%s), year %d\n", user.DisplayName, user.ID, year)
			fmt.Printf("first daily log: %s\n", dailyLog.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&userName, "user", "demo", "display name of the user to seed")
	cmd.Flags().IntVar(&year, "year", time.Now().Year(), "journal year to seed")
	return cmd
}

func tagsCmd() *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "tags",
		Short: "List a user's tags with highlight counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			db, err := openDB(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			s := store.NewPostgresStore(db)
			service := app.NewService(s, nil, nil)

			groups, err := service.AllTaggedContent(ctx, userID, 0)
			if err != nil {
				return err
			}
			if len(groups) == 0 {
				fmt.Println("no tags yet")
				return nil
			}
			for _, g := range groups {
				fmt.Printf("%-30s %d\n", g.Tag.Name, g.HighlightCount)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user id (required)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func reindexCmd() *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the Meilisearch index from a user's highlights",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if cfg.MeiliURL == "" {
				return fmt.Errorf("MEILI_URL is not configured")
			}

			ctx := cmd.Context()
			db, err := store.Open(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer db.Close()

			meiliClient := search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
			defer meiliClient.Close()
			searchService := search.NewService(meiliClient, search.NewPgFTS(db))

			s := store.NewPostgresStore(db)
			service := app.NewService(s, searchService, nil)

			count, err := service.ReindexSearch(ctx, userID)
			if err != nil {
				return err
			}
			fmt.Printf("indexed %d highlights\n", count)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user id (required)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
