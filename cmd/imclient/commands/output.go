package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fivetwenty-io/im-client/internal/constants"
	"github.com/fivetwenty-io/im-client/pkg/im"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/viper"
	"golang.org/x/term"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

const defaultIndent = 2

// renderer describes one result in every output format. data is encoded for
// json and yaml; header and rows feed the table; plain writes free text.
type renderer struct {
	data   any
	header []string
	rows   [][]string
	plain  func(w io.Writer) error
}

// outputFormat returns the requested format. Without one it is table on a
// terminal and plain otherwise, so output piped to other tools stays simple.
func outputFormat(w io.Writer) string {
	return resolveFormat(viper.GetString(KeyOutput), isTerminal(w))
}

func resolveFormat(requested string, tty bool) string {
	requested = strings.ToLower(strings.TrimSpace(requested))
	if requested != "" {
		return requested
	}

	if tty {
		return constants.FormatTable
	}

	return constants.FormatPlain
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)

	return ok && term.IsTerminal(int(f.Fd())) // #nosec G115 -- file descriptors fit in int
}

func render(w io.Writer, r renderer) error {
	switch format := outputFormat(w); format {
	case constants.FormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", strings.Repeat(" ", defaultIndent))

		if err := encoder.Encode(r.data); err != nil {
			return fmt.Errorf("encoding data to JSON: %w", err)
		}
	case constants.FormatYAML:
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(defaultIndent)

		if err := encoder.Encode(r.data); err != nil {
			return fmt.Errorf("encoding data to YAML: %w", err)
		}
	case constants.FormatTable:
		return renderTable(w, r)
	case constants.FormatPlain:
		if r.plain != nil {
			return r.plain(w)
		}

		return renderRows(w, r.rows)
	default:
		return fmt.Errorf("%w: %s", constants.ErrUnknownOutputFormat, format)
	}

	return nil
}

func renderTable(w io.Writer, r renderer) error {
	if r.header == nil {
		if r.plain != nil {
			return r.plain(w)
		}

		return renderRows(w, r.rows)
	}

	table := tablewriter.NewWriter(w)
	header := make([]any, 0, len(r.header))
	for _, h := range r.header {
		header = append(header, h)
	}

	table.Header(header...)

	for _, row := range r.rows {
		if err := table.Append(row); err != nil {
			return fmt.Errorf("failed to append row to table: %w", err)
		}
	}

	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	return nil
}

// renderRows writes rows tab separated, one per line.
func renderRows(w io.Writer, rows [][]string) error {
	for _, row := range rows {
		if _, err := fmt.Fprintln(w, strings.Join(row, "\t")); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}
	}

	return nil
}

// renderText renders a text result: raw for table and plain output, wrapped
// in {key: text} for json and yaml.
func renderText(w io.Writer, key, text string) error {
	return render(w, renderer{
		data: map[string]string{key: text},
		plain: func(w io.Writer) error {
			_, err := fmt.Fprintln(w, text)

			return err
		},
	})
}

// renderURIs renders a list of infrastructure or VM URIs.
func renderURIs(w io.Writer, uris []im.ResourceURI) error {
	rows := make([][]string, 0, len(uris))
	for _, u := range uris {
		rows = append(rows, []string{u.ID, u.URI})
	}

	return render(w, renderer{
		data:   uris,
		header: []string{"ID", "URI"},
		rows:   rows,
		plain: func(w io.Writer) error {
			for _, u := range uris {
				if _, err := fmt.Fprintln(w, u.ID); err != nil {
					return err
				}
			}

			return nil
		},
	})
}

// stateLabel renders a VM state for tables, e.g. "Unconfigured".
func stateLabel(state im.VMState) string {
	if state == "" {
		return constants.NotAvailable
	}

	return cases.Title(language.English).String(state.String())
}
