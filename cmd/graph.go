package main

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/mydailyprop/internal/pipeline"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Print the pipeline topology as a Mermaid flowchart",
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := pipeline.New(nil, nil)
		if err != nil {
			return eris.Wrap(err, "build pipeline")
		}

		out := cmd.OutOrStdout()
		fmt.Fprint(out, g.Mermaid())
		fmt.Fprintf(out, "%%%% execution order: %s\n", strings.Join(g.Order(), " -> "))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
