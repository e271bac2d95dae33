package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/ontograph/pkg/graph"
	"github.com/matzehuels/ontograph/pkg/ontology"
)

// snapshotStats is the stats command's JSON output.
type snapshotStats struct {
	Name     string         `json:"name,omitempty"`
	Ontology ontology.Stats `json:"ontology"`
	Nodes    int            `json:"nodes"`
	Kinds    map[string]int `json:"node_kinds"`
	Edges    int            `json:"edges"`
}

// statsCommand creates the stats command.
func (c *CLI) statsCommand() *cobra.Command {
	var asJSON, mongo bool

	cmd := &cobra.Command{
		Use:               "stats [snapshot]",
		Short:             "Print class, property and individual counts",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeSnapshot,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := c.loadStats(cmd.Context(), args[0], mongo)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(st)
			}
			fmt.Println(StyleTitle.Render(st.Name))
			fmt.Println(statsTable(st))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	cmd.Flags().BoolVar(&mongo, "mongo", false, "load the snapshot by name from the configured MongoDB collection")

	return cmd
}

func (c *CLI) loadStats(ctx context.Context, input string, mongo bool) (snapshotStats, error) {
	var (
		snap *ontology.Snapshot
		err  error
	)
	if mongo {
		src, oerr := c.openMongo(ctx)
		if oerr != nil {
			return snapshotStats{}, oerr
		}
		defer src.Close(context.WithoutCancel(ctx))
		snap, err = src.Load(ctx, input)
	} else {
		snap, err = ontology.ReadFile(input)
	}
	if err != nil {
		return snapshotStats{}, err
	}

	m := graph.Build(snap)
	kinds := make(map[string]int, 3)
	for k, n := range m.Counts() {
		kinds[kindNoun(k)] = n
	}
	return snapshotStats{
		Name:     snapshotTitle(input, snap),
		Ontology: snap.Stats(),
		Nodes:    m.Len(),
		Kinds:    kinds,
		Edges:    len(m.Edges),
	}, nil
}

func statsTable(st snapshotStats) string {
	o := st.Ontology
	rows := [][]string{
		{"Classes", strconv.Itoa(o.Classes)},
		{"Properties", strconv.Itoa(o.Properties)},
		{"  object", strconv.Itoa(o.ObjectProperties)},
		{"  data", strconv.Itoa(o.DataProperties)},
		{"  annotation", strconv.Itoa(o.AnnotationProperties)},
		{"Individuals", strconv.Itoa(o.Individuals)},
		{"Subclass axioms", strconv.Itoa(o.SubclassAxioms)},
		{"Graph nodes", strconv.Itoa(st.Nodes)},
		{"  class", strconv.Itoa(st.Kinds["class"])},
		{"  property", strconv.Itoa(st.Kinds["property"])},
		{"  individual", strconv.Itoa(st.Kinds["individual"])},
		{"Graph edges", strconv.Itoa(st.Edges)},
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	labelStyle := lipgloss.NewStyle().Foreground(colorGray).PaddingRight(2)
	countStyle := StyleNumber.Align(lipgloss.Right)

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Kind", "Count").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 0:
				return labelStyle
			default:
				return countStyle
			}
		}).
		Render()
}
