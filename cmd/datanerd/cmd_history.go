package main

import (
	"fmt"
	"strings"

	"datanerd/internal/result"
	"datanerd/internal/store"

	"github.com/spf13/cobra"
)

// historyCmd replays archived turns
var historyCmd = &cobra.Command{
	Use:   "history <session-id>",
	Short: "Show the archived turns of a past session",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistory,
}

func runHistory(cmd *cobra.Command, args []string) error {
	if cfg.HistoryDB == "" {
		return fmt.Errorf("turn archiving is disabled (history_db is empty)")
	}

	archive, err := store.Open(cfg.HistoryDB)
	if err != nil {
		return err
	}
	defer archive.Close()

	turns, err := archive.ListTurns(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if len(turns) == 0 {
		fmt.Println("No turns recorded for that session.")
		return nil
	}

	for i, t := range turns {
		fmt.Printf("%d. [%s] %s\n", i+1, t.At.Format("2006-01-02 15:04:05"), t.Question)
		if t.Code != "" {
			fmt.Println(indent(t.Code))
		}
		switch t.Result.Kind {
		case result.KindScalar:
			fmt.Printf("   → %s\n", t.Result.Scalar)
		case result.KindTable:
			fmt.Printf("   → table (%d rows)\n", len(t.Result.Table.Rows))
		default:
			fmt.Printf("   → failed (%s): %s\n", t.Result.Code, t.Result.Message)
		}
		if i < len(turns)-1 {
			fmt.Println(strings.Repeat("─", 40))
		}
	}
	return nil
}

func init() {
	rootCmd.AddCommand(historyCmd)
}
