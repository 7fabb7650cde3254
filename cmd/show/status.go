package show

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/xenogenesi/jcblock/internal/pkg/calllog"
	"github.com/xenogenesi/jcblock/internal/pkg/config"
	"github.com/xenogenesi/jcblock/internal/pkg/liststore"
	"github.com/xenogenesi/jcblock/internal/pkg/output"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the state of the record files",
	Long: `Count the entries and malformed records of both lists and the lines of
the call log, and show when truncation last ran and is next due.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonOutput, _ := cmd.Flags().GetBool("json")
		st, err := Collect(config.GetConfig(), time.Now())
		if err != nil {
			return err
		}
		if jsonOutput {
			return output.Write(os.Stdout, st, output.FormatJSON)
		}
		Render(os.Stdout, st)
		return nil
	},
}

func init() {
	statusCmd.Flags().Bool("json", false, "Output in JSON format")
}

// FileStatus summarizes one record file.
type FileStatus struct {
	Name      string `json:"name" yaml:"name"`
	Path      string `json:"path" yaml:"path"`
	Exists    bool   `json:"exists" yaml:"exists"`
	Entries   int    `json:"entries" yaml:"entries"`
	Malformed int    `json:"malformed" yaml:"malformed"`
	Error     string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Status is the state of the line's files.
type Status struct {
	Port         string       `json:"port" yaml:"port"`
	Files        []FileStatus `json:"files" yaml:"files"`
	LastTruncate *time.Time   `json:"last_truncate,omitempty" yaml:"last_truncate,omitempty"`
	NextTruncate *time.Time   `json:"next_truncate,omitempty" yaml:"next_truncate,omitempty"`
}

// Collect reads every file named by cfg. Problems with a single file are
// reported in its status rather than failing the whole report.
func Collect(cfg *config.Config, now time.Time) (Status, error) {
	layout, err := cfg.Layout()
	if err != nil {
		return Status{}, err
	}
	st := Status{Port: cfg.Modem.Port}
	st.Files = append(st.Files,
		listStatus(&liststore.List{Kind: liststore.Whitelist, Path: cfg.Files.Whitelist, Layout: layout}),
		listStatus(&liststore.List{Kind: liststore.Blacklist, Path: cfg.Files.Blacklist, Layout: layout}),
		callLogStatus(cfg.Files.CallLog),
	)

	if cfg.Truncate.Enabled {
		svc, err := cfg.Truncation()
		if err != nil {
			return st, err
		}
		last, ok, err := svc.LastRun()
		if err != nil {
			return st, err
		}
		next := now
		if ok {
			st.LastTruncate = &last
			if n := last.Add(svc.Interval); n.After(now) {
				next = n
			}
		}
		st.NextTruncate = &next
	}
	return st, nil
}

func listStatus(l *liststore.List) FileStatus {
	st := FileStatus{Name: l.Kind.String(), Path: l.Path}
	lines, err := l.Read()
	if err != nil {
		st.Error = describe(err)
		return st
	}
	st.Exists = true
	for _, line := range lines {
		switch {
		case line.Err != nil:
			st.Malformed++
		case line.Kind == liststore.LineEntry:
			st.Entries++
		}
	}
	return st
}

func callLogStatus(path string) FileStatus {
	st := FileStatus{Name: "calllog", Path: path}
	recs, err := calllog.New(path).Records()
	if err != nil {
		st.Error = describe(err)
		return st
	}
	st.Exists = true
	st.Entries = len(recs)
	return st
}

func describe(err error) string {
	if errors.Is(err, fs.ErrNotExist) {
		return "missing"
	}
	return err.Error()
}

// Render prints the status as a table.
func Render(w io.Writer, st Status) {
	fmt.Fprintf(w, "%s %s\n", output.NeutralStyle.Render("modem"), st.Port)
	rows := make([][]string, 0, len(st.Files))
	for _, f := range st.Files {
		state := output.AcceptStyle.Render("ok")
		if f.Error != "" {
			state = output.RejectStyle.Render(f.Error)
		} else if f.Malformed > 0 {
			state = output.NeutralStyle.Render("malformed records")
		}
		rows = append(rows, []string{f.Name, f.Path, strconv.Itoa(f.Entries), strconv.Itoa(f.Malformed), state})
	}
	fmt.Fprintln(w, output.Table([]string{"FILE", "PATH", "ENTRIES", "MALFORMED", "STATE"}, rows))

	switch {
	case st.NextTruncate == nil:
		fmt.Fprintln(w, output.DimStyle.Render("truncation disabled"))
	case st.LastTruncate == nil:
		fmt.Fprintln(w, "truncation has never run, due now")
	default:
		fmt.Fprintf(w, "truncation last ran %s, next due %s\n",
			st.LastTruncate.Format(time.DateTime), st.NextTruncate.Format(time.DateTime))
	}
}
