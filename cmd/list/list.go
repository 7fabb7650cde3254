// Package list prints the list files and the call log.
package list

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/xenogenesi/jcblock/internal/pkg/callerid"
	"github.com/xenogenesi/jcblock/internal/pkg/calllog"
	"github.com/xenogenesi/jcblock/internal/pkg/config"
	"github.com/xenogenesi/jcblock/internal/pkg/liststore"
	"github.com/xenogenesi/jcblock/internal/pkg/output"
)

// ListCmd is the base list command.
var ListCmd = &cobra.Command{
	Use:   "list",
	Short: "List whitelist, blacklist or call log records",
	Long: `List the records of the whitelist, the blacklist or the call log.

Subcommands:
  whitelist  - Entries that are always accepted
  blacklist  - Entries whose calls are terminated
  calls      - Caller-ID lines received

Examples:
  jcblock list blacklist          # Table of blacklist entries
  jcblock list blacklist --all    # Include comments and malformed records
  jcblock list calls --json       # Call log as JSON`,
	// No Run function - requires a subcommand
}

var (
	jsonOutput bool
	showAll    bool
)

var whitelistCmd = &cobra.Command{
	Use:   "whitelist",
	Short: "List whitelist entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		return listFile(os.Stdout, liststore.Whitelist)
	},
}

var blacklistCmd = &cobra.Command{
	Use:   "blacklist",
	Short: "List blacklist entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		return listFile(os.Stdout, liststore.Blacklist)
	},
}

var callsCmd = &cobra.Command{
	Use:   "calls",
	Short: "List the call log",
	RunE: func(cmd *cobra.Command, args []string) error {
		return listCalls(os.Stdout)
	},
}

func init() {
	ListCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	whitelistCmd.Flags().BoolVar(&showAll, "all", false, "Include comments, blank and malformed lines")
	blacklistCmd.Flags().BoolVar(&showAll, "all", false, "Include comments, blank and malformed lines")

	ListCmd.AddCommand(whitelistCmd)
	ListCmd.AddCommand(blacklistCmd)
	ListCmd.AddCommand(callsCmd)
}

// Row is one line of a list file.
type Row struct {
	Offset  int64  `json:"offset" yaml:"offset"`
	Kind    string `json:"kind" yaml:"kind"`
	Token   string `json:"token,omitempty" yaml:"token,omitempty"`
	Date    string `json:"date,omitempty" yaml:"date,omitempty"`
	Trailer string `json:"trailer,omitempty" yaml:"trailer,omitempty"`
	Error   string `json:"error,omitempty" yaml:"error,omitempty"`
	Text    string `json:"text,omitempty" yaml:"text,omitempty"`
}

// Rows converts scanned lines. Only entries are kept unless all is set.
func Rows(lines []liststore.Line, all bool) []Row {
	rows := make([]Row, 0, len(lines))
	for _, l := range lines {
		if l.Kind != liststore.LineEntry && !all {
			continue
		}
		r := Row{Offset: l.Offset, Kind: l.Kind.String()}
		switch {
		case l.Err != nil:
			r.Error = l.Err.Error()
			r.Text = l.Text
		case l.Kind == liststore.LineEntry:
			r.Token = l.Entry.Token
			r.Date = l.Entry.Date
			r.Trailer = l.Entry.Trailer
		default:
			r.Text = l.Text
		}
		rows = append(rows, r)
	}
	return rows
}

func listFile(w io.Writer, kind liststore.Kind) error {
	cfg := config.GetConfig()
	layout, err := cfg.Layout()
	if err != nil {
		return err
	}
	l := &liststore.List{Kind: kind, Layout: layout, Path: cfg.Files.Blacklist}
	if kind == liststore.Whitelist {
		l.Path = cfg.Files.Whitelist
		l.Optional = true
	}
	lines, err := l.Read()
	if err != nil {
		return err
	}
	rows := Rows(lines, showAll)
	if jsonOutput {
		return output.Write(w, rows, output.FormatJSON)
	}
	RenderRows(w, kind.String(), l.Path, rows)
	return nil
}

// RenderRows prints rows as a table.
func RenderRows(w io.Writer, title, path string, rows []Row) {
	fmt.Fprintf(w, "%s %s\n", output.NeutralStyle.Render(title), output.DimStyle.Render(path))
	if len(rows) == 0 {
		fmt.Fprintln(w, output.DimStyle.Render("(no entries)"))
		return
	}
	cells := make([][]string, 0, len(rows))
	for _, r := range rows {
		token, detail := r.Token, r.Trailer
		if r.Kind != liststore.LineEntry.String() {
			token, detail = r.Text, r.Error
		}
		cells = append(cells, []string{strconv.FormatInt(r.Offset, 10), r.Kind, token, r.Date, detail})
	}
	fmt.Fprintln(w, output.Table([]string{"OFFSET", "KIND", "TOKEN", "DATE", "DETAIL"}, cells))
}

// Call is one call log line split into its fields.
type Call struct {
	Date   string `json:"date" yaml:"date"`
	Time   string `json:"time" yaml:"time"`
	Number string `json:"number" yaml:"number"`
	Name   string `json:"name" yaml:"name"`
	Line   string `json:"line" yaml:"line"`
}

// Calls splits call log records into fields.
func Calls(recs []callerid.Record) []Call {
	calls := make([]Call, 0, len(recs))
	for _, rec := range recs {
		c := Call{Line: rec.String()}
		c.Date, _ = rec.Field(callerid.FieldDate)
		c.Time, _ = rec.Field(callerid.FieldTime)
		c.Number, _ = rec.Field(callerid.FieldNmbr)
		c.Name, _ = rec.Field(callerid.FieldName)
		calls = append(calls, c)
	}
	return calls
}

func listCalls(w io.Writer) error {
	cfg := config.GetConfig()
	recs, err := calllog.New(cfg.Files.CallLog).Records()
	if err != nil {
		return err
	}
	calls := Calls(recs)
	if jsonOutput {
		return output.Write(w, calls, output.FormatJSON)
	}
	fmt.Fprintf(w, "%s %s\n", output.NeutralStyle.Render("calls"), output.DimStyle.Render(cfg.Files.CallLog))
	cells := make([][]string, 0, len(calls))
	for _, c := range calls {
		cells = append(cells, []string{c.Date, c.Time, c.Number, c.Name})
	}
	fmt.Fprintln(w, output.Table([]string{"DATE", "TIME", "NUMBER", "NAME"}, cells))
	return nil
}
