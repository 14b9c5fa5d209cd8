package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vidlib/transcript-engine/internal/model"
	"github.com/vidlib/transcript-engine/internal/store"
)

var (
	fetchJSON    bool
	fetchRefresh bool
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <video-id-or-url>",
	Short: "Fetch the transcript for a single video",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		videoID, err := model.ExtractVideoID(args[0])
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		if !fetchRefresh {
			if t, err := env.Store.GetTranscript(ctx, videoID); err == nil {
				return printTranscript(t)
			} else if !errors.Is(err, store.ErrNotFound) {
				zap.L().Warn("store lookup failed", zap.Error(err))
			}
		}

		t, err := env.Engine.Fetch(ctx, videoID)
		if err != nil {
			logFetchFailure(ctx, env.Store, err)
			return err
		}

		if err := env.Store.SaveTranscript(ctx, t); err != nil {
			zap.L().Warn("persist failed", zap.String("video_id", videoID), zap.Error(err))
		}
		logFetchSuccess(ctx, env.Store, t)

		return printTranscript(t)
	},
}

func printTranscript(t *model.Transcript) error {
	if fetchJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(t)
	}
	fmt.Printf("video:    %s\n", t.VideoID)
	fmt.Printf("language: %s\n", t.Language)
	fmt.Printf("source:   %s\n", t.SourceStrategy)
	fmt.Printf("segments: %d\n\n", len(t.Segments))
	fmt.Println(t.FullText())
	return nil
}

func logFetchSuccess(ctx context.Context, st store.Store, t *model.Transcript) {
	if err := st.LogAttempt(ctx, store.FetchLogEntry{
		VideoID:  t.VideoID,
		Strategy: t.SourceStrategy,
		Success:  true,
	}); err != nil {
		zap.L().Warn("log attempt failed", zap.Error(err))
	}
}

func logFetchFailure(ctx context.Context, st store.Store, err error) {
	var agg *model.AggregateError
	if !errors.As(err, &agg) {
		return
	}
	for _, a := range agg.Attempts {
		if lerr := st.LogAttempt(ctx, store.FetchLogEntry{
			VideoID:     agg.VideoID,
			Strategy:    a.Strategy,
			Success:     false,
			FailureKind: a.Kind,
			Detail:      a.Detail,
		}); lerr != nil {
			zap.L().Warn("log attempt failed", zap.Error(lerr))
		}
	}
}

func init() {
	fetchCmd.Flags().BoolVar(&fetchJSON, "json", false, "print the transcript as JSON")
	fetchCmd.Flags().BoolVar(&fetchRefresh, "refresh", false, "bypass the stored transcript and refetch")
	rootCmd.AddCommand(fetchCmd)
}
