package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"jamesfarrell.me/youtube-chat/internal/app"
	"jamesfarrell.me/youtube-chat/internal/storage/catalog"
	"jamesfarrell.me/youtube-chat/internal/storage/models"
)

func askCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question from the video library",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.Join(args, " ")
			if strings.TrimSpace(question) == "" {
				return errors.New("question is required")
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				resp, err := a.Chat.Handle(ctx, question)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), resp)
			})
		},
	}
}

func historyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Show recent questions and answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				messages, err := a.Chat.History(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), messages)
			})
		},
	}
}

func addCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "add <youtube-url>",
		Short: "Register a video and segment it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			youTubeID := models.ExtractYouTubeID(args[0])
			if youTubeID == "" {
				return fmt.Errorf("invalid YouTube URL %q", args[0])
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				if _, err := a.Store.GetVideoByExternalID(ctx, youTubeID); err == nil {
					return fmt.Errorf("video %s already exists", youTubeID)
				} else if !errors.Is(err, catalog.ErrNotFound) {
					return err
				}

				meta := a.Videos.Fetch(ctx, youTubeID)
				video := &models.Video{
					YouTubeID:   youTubeID,
					Title:       meta.Title,
					Description: meta.Description,
					Thumbnail:   meta.Thumbnail,
					Duration:    meta.Duration,
				}
				if err := a.Store.CreateVideo(ctx, video); err != nil {
					return err
				}
				segs, err := a.Analysis.Analyze(ctx, video)
				if err != nil {
					return err
				}
				video.Segments = segs
				return printJSON(cmd.OutOrStdout(), video)
			})
		},
	}
}

func analyzeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <youtube-id>",
		Short: "Segment a video; registered videos have their segments replaced",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				out, err := a.Analysis.AnalyzeExternal(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), out)
			})
		},
	}
}

func infoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info <youtube-id>",
		Short: "Show video metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				return printJSON(cmd.OutOrStdout(), a.Videos.Fetch(ctx, args[0]))
			})
		},
	}
}

func discoverCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "discover <query>",
		Short: "Search YouTube for videos to add",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt64("max")
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				hits, err := a.Videos.Search(ctx, strings.Join(args, " "), limit)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), hits)
			})
		},
	}
	cmd.Flags().Int64("max", 5, "Maximum results")
	return cmd
}

func migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the database tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// app.New migrates.
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				fmt.Fprintf(cmd.OutOrStdout(), "migrated %s database\n", a.DB.Dialect)
				return nil
			})
		},
	}
}
