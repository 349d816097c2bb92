// Package tableprinter provides behavior to write tabular data to a given
// destination.
package tableprinter

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	log "go.arcalot.io/log/v2"

	"go.flow.arcalot.io/stepflow/step"
)

const (
	tabwriterMinWidth = 6
	tabwriterWidth    = 4
	tabwriterPadding  = 3
	tabwriterPadChar  = ' '
	tabwriterFlags    = tabwriter.FilterHTML
)

// NewTabWriter returns a tabwriter that transforms tabbed columns into aligned
// text.
func NewTabWriter(output io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(output, tabwriterMinWidth, tabwriterWidth, tabwriterPadding, tabwriterPadChar, tabwriterFlags)
}

// PrintTwoColumnTable writes a two column table with headers to a given
// output destination.
func PrintTwoColumnTable(output io.Writer, headers []string, rows [][]string) {
	w := NewTabWriter(output)

	// column headers are at the top, so they are written first
	for _, col := range headers {
		_, _ = fmt.Fprint(w, strings.ToUpper(col), "\t")
	}
	_, _ = fmt.Fprintln(w)

	// rows form the body of the table
	for _, row := range rows {
		_, _ = fmt.Fprintln(w, row[0], "\t", row[1])
	}

	_ = w.Flush()
}

// PrintRegistryResponse constructs and writes a table of the registered step
// kinds and their roles to the given output destination.
func PrintRegistryResponse(output io.Writer, reg step.Registry, logger log.Logger) {
	grouped := map[string][]string{}
	for kind, provider := range reg.ListActions() {
		role := "action"
		if provider.Descriptor().Eager {
			role = "action (eager)"
		}
		grouped[role] = append(grouped[role], kind)
	}
	for kind := range reg.ListModifiers() {
		grouped["modifier"] = append(grouped["modifier"], kind)
	}
	if len(grouped) == 0 {
		logger.Warningf("No step kinds registered")
		return
	}
	df := unnestLongerSorted(grouped)
	df = swapColumns(df)
	PrintTwoColumnTable(output, []string{"kind", "role"}, df)
}

// unnestLongerSorted flattens a group-to-rows mapping into sorted two column
// rows, groups first.
func unnestLongerSorted(twoColDf map[string][]string) [][]string {
	df := [][]string{}
	groupNames := []string{}
	for name := range twoColDf {
		groupNames = append(groupNames, name)
	}
	sort.Strings(groupNames)
	for _, name := range groupNames {
		groupRows := twoColDf[name]
		sort.Strings(groupRows)
		for _, rowValue := range groupRows {
			df = append(df, []string{name, rowValue})
		}
	}
	return df
}

func swapColumns(df [][]string) [][]string {
	for k := range df {
		if len(df[k]) == 2 {
			df[k][0], df[k][1] = df[k][1], df[k][0]
		}
	}
	return df
}
