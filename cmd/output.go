package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/hokaccha/go-prettyjson"
	"github.com/jmespath/go-jmespath"
	"github.com/mattn/go-isatty"
)

// printJSON writes v to w as indented JSON, an optional JMESPath query
// is applied first. Output to a terminal is colorized.
func printJSON(w io.Writer, v interface{}, query string) error {
	if query != "" {
		// round trip through encoding/json so the query operates on
		// the serialized field names
		d, err := json.Marshal(v)
		if err != nil {
			return err
		}

		var doc interface{}
		if err := json.Unmarshal(d, &doc); err != nil {
			return err
		}

		v, err = jmespath.Search(query, doc)
		if err != nil {
			return fmt.Errorf("invalid query %s: %w", query, err)
		}
	}

	if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		formatter := prettyjson.Formatter{
			Indent:          2,
			KeyColor:        color.New(color.FgWhite, color.Bold),
			StringColor:     color.New(color.FgGreen, color.Bold),
			BoolColor:       color.New(color.FgGreen, color.Bold),
			NumberColor:     color.New(color.FgGreen, color.Bold),
			NullColor:       color.New(color.FgBlack, color.Bold),
			DisabledColor:   false,
			StringMaxLength: 0,
			Newline:         "\n",
		}

		d, err := formatter.Marshal(v)
		if err != nil {
			return err
		}

		fmt.Fprintf(w, "%s\n", string(d))
		return nil
	}

	d, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "%s\n", string(d))
	return nil
}

// printTable renders rows as an aligned table for human consumption
func printTable(w io.Writer, headers []interface{}, rows [][]interface{}) {
	table := uitable.New()
	table.MaxColWidth = 80

	table.AddRow(headers...)
	for _, r := range rows {
		table.AddRow(r...)
	}

	fmt.Fprintln(w, table.String())
}
