package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vidlib/transcript-engine/internal/store"
)

var cacheJSON bool

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect failure-cache state",
}

var cacheLogCmd = &cobra.Command{
	Use:   "log <video-id>",
	Short: "Show the recorded fetch attempts for a video",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := store.NewSQLite(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		entries, err := st.ListFetchLog(ctx, args[0], 100)
		if err != nil {
			return err
		}

		if cacheJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(entries)
		}

		if len(entries) == 0 {
			fmt.Println("no recorded attempts")
			return nil
		}
		for _, e := range entries {
			status := "ok"
			if !e.Success {
				status = string(e.FailureKind)
			}
			fmt.Printf("%s  %-12s %-14s %s\n",
				e.AttemptedAt.Format(time.RFC3339), e.Strategy, status, e.Detail)
		}
		return nil
	},
}

func init() {
	cacheLogCmd.Flags().BoolVar(&cacheJSON, "json", false, "print as JSON")
	cacheCmd.AddCommand(cacheLogCmd)
	rootCmd.AddCommand(cacheCmd)
}
