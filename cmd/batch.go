package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vidlib/transcript-engine/internal/model"
)

var (
	batchFile        string
	batchConcurrency int
	batchJSON        bool
)

var batchCmd = &cobra.Command{
	Use:   "batch [video-ids-or-urls...]",
	Short: "Fetch transcripts for many videos with bounded concurrency",
	Long:  "Reads video ids or URLs from arguments or --file (one per line, # comments allowed) and fetches them concurrently. One video failing never aborts the rest.",
	RunE: func(cmd *cobra.Command, args []string) error {
		inputs := args
		if batchFile != "" {
			fromFile, err := readVideoList(batchFile)
			if err != nil {
				return err
			}
			inputs = append(inputs, fromFile...)
		}
		if len(inputs) == 0 {
			return eris.New("no video ids given: pass arguments or --file")
		}

		videoIDs := make([]string, 0, len(inputs))
		for _, raw := range inputs {
			id, err := model.ExtractVideoID(raw)
			if err != nil {
				return eris.Wrapf(err, "input %q", raw)
			}
			videoIDs = append(videoIDs, id)
		}

		ctx := cmd.Context()
		if batchConcurrency <= 0 {
			batchConcurrency = cfg.Batch.MaxConcurrentVideos
		}

		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		results := env.Engine.BatchFetch(ctx, videoIDs, batchConcurrency)

		ok := 0
		for _, r := range results {
			if r.Err != nil {
				logFetchFailure(ctx, env.Store, r.Err)
				continue
			}
			ok++
			if err := env.Store.SaveTranscript(ctx, r.Transcript); err != nil {
				zap.L().Warn("persist failed", zap.String("video_id", r.VideoID), zap.Error(err))
			}
			logFetchSuccess(ctx, env.Store, r.Transcript)
		}

		if batchJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(results); err != nil {
				return err
			}
		} else {
			for _, r := range results {
				if r.Err != nil {
					fmt.Printf("FAIL %s  %v\n", r.VideoID, r.Err)
					continue
				}
				fmt.Printf("OK   %s  %s (%d segments, %s)\n",
					r.VideoID, r.Transcript.Language, len(r.Transcript.Segments), r.Transcript.SourceStrategy)
			}
		}

		fmt.Printf("\n%d/%d succeeded\n", ok, len(results))
		if ok == 0 {
			return eris.New("all videos failed")
		}
		return nil
	},
}

// readVideoList parses a newline-separated list, skipping blanks and comments.
func readVideoList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrapf(err, "read %s", path)
	}
	return out, nil
}

func init() {
	batchCmd.Flags().StringVar(&batchFile, "file", "", "file with one video id or URL per line")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "max videos in flight (default from config)")
	batchCmd.Flags().BoolVar(&batchJSON, "json", false, "print results as JSON")
	rootCmd.AddCommand(batchCmd)
}
