package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/recut/pkg/faults"
	"github.com/Sumatoshi-tech/recut/pkg/snapshot"
)

// NewSnapshotCommand groups the version-store subcommands.
func NewSnapshotCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Inspect and restore plan snapshots",
	}

	cmd.AddCommand(newSnapshotListCommand(app))
	cmd.AddCommand(newSnapshotRestoreCommand(app))
	cmd.AddCommand(newSnapshotDiffCommand(app))

	return cmd
}

func newSnapshotListCommand(app *App) *cobra.Command {
	var (
		kind  string
		limit int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List snapshots, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			err := app.setup()
			if err != nil {
				return err
			}

			store, err := app.openStore()
			if err != nil {
				return err
			}

			if kind != "" && !snapshot.Kind(kind).Valid() {
				return faults.E(faults.KindInput, fmt.Sprintf("unknown snapshot kind %q", kind), nil)
			}

			nodes := store.List(snapshot.Kind(kind), limit)
			renderSnapshotTable(cmd, nodes, store.Cursor())

			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "filter by kind: linear, experimental, restructured, optimized, custom")
	cmd.Flags().IntVar(&limit, "limit", 0, "cap the number of rows (0 = all)")

	return cmd
}

func renderSnapshotTable(cmd *cobra.Command, nodes []snapshot.Node, cursor string) {
	tw := table.NewWriter()
	tw.SetOutputMirror(cmd.OutOrStdout())
	tw.AppendHeader(table.Row{"", "ID", "KIND", "OPERATION", "TAGS", "CREATED"})

	for _, node := range nodes {
		marker := ""
		if node.ID == cursor {
			marker = "*"
		}

		tw.AppendRow(table.Row{
			marker,
			node.ID,
			node.Kind,
			node.Operation,
			strings.Join(node.Tags, ","),
			humanize.Time(node.CreatedAt),
		})
	}

	tw.Render()
}

func newSnapshotRestoreCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <id>",
		Short: "Verify and print a snapshot's content, moving the cursor to it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := app.setup()
			if err != nil {
				return err
			}

			store, err := app.openStore()
			if err != nil {
				return err
			}

			content, err := store.Restore(args[0])
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), content)

			return nil
		},
	}
}

func newSnapshotDiffCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "diff <id1> <id2>",
		Short: "Summarize how two snapshots differ",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := app.setup()
			if err != nil {
				return err
			}

			store, err := app.openStore()
			if err != nil {
				return err
			}

			cmp, err := store.Compare(args[0], args[1])
			if err != nil {
				return err
			}

			data, err := json.MarshalIndent(cmp, "", "  ")
			if err != nil {
				return faults.E(faults.KindInternal, "encode comparison", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), string(data))

			return nil
		},
	}
}
