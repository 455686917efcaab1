package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kottz/cgex/internal/catalog"
)

func newTitlesCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "titles",
		Short:       "List the supported game titles",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), renderTitles(catalog.Default().Titles()))
			return nil
		},
	}
}

func renderTitles(titles []catalog.Title) string {
	rows := make([][]string, 0, len(titles))
	for _, t := range titles {
		k := t.KeyColor
		rows = append(rows, []string{
			t.Key,
			t.Name,
			strconv.Itoa(len(t.MovieStems)),
			fmt.Sprintf("#%02x%02x%02x", k.R, k.G, k.B),
			strings.Join(t.MovieDirs, ", "),
			strconv.Itoa(len(t.SkipFiles)),
			yesNo(t.DismissDialogs),
		})
	}
	return renderTable(tableSpec{
		headers: []string{"Key", "Title", "Movies", "Key colour", "Movie dirs", "Known broken", "Dismiss dialogs"},
		rows:    rows,
		aligns:  []columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft, alignRight, alignLeft},
	})
}
