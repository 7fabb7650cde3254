// Package check dry-runs a caller-ID line against the lists.
package check

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/xenogenesi/jcblock/internal/pkg/callerid"
	"github.com/xenogenesi/jcblock/internal/pkg/config"
	"github.com/xenogenesi/jcblock/internal/pkg/liststore"
	"github.com/xenogenesi/jcblock/internal/pkg/output"
)

// Actions the appliance would take
const (
	ActionAccept    = "accept"
	ActionTerminate = "terminate"
	ActionUnlisted  = "unlisted"
)

var CheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check a caller against the whitelist and blacklist",
	Long: `Build a caller-ID line from the flags, or take one copied from the call
log, and report which list entry it matches. The list files are not modified.`,
	Example: `  jcblock check --number 5551212 --name "JOHN DOE"
  jcblock check --line "--DATE = 101426--TIME = 1343--NMBR = 5551212--NAME = JOHN DOE----"`,
	RunE: runCheck,
}

var (
	name       string
	number     string
	date       string
	clock      string
	line       string
	jsonOutput bool
)

func init() {
	CheckCmd.Flags().StringVar(&name, "name", "", "caller name (NAME field)")
	CheckCmd.Flags().StringVar(&number, "number", "", "caller number (NMBR field)")
	CheckCmd.Flags().StringVar(&date, "date", "", "call date as MMDD (default today)")
	CheckCmd.Flags().StringVar(&clock, "time", "", "call time as HHMM (default now)")
	CheckCmd.Flags().StringVar(&line, "line", "", "normalized caller-ID line, overrides the other fields")
	CheckCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
}

// Match is a list entry that matched.
type Match struct {
	Token  string `json:"token" yaml:"token"`
	Date   string `json:"date" yaml:"date"`
	Offset int64  `json:"offset" yaml:"offset"`
}

// Result is what the appliance would do with a call.
type Result struct {
	Line      string `json:"line" yaml:"line"`
	Whitelist *Match `json:"whitelist,omitempty" yaml:"whitelist,omitempty"`
	Blacklist *Match `json:"blacklist,omitempty" yaml:"blacklist,omitempty"`
	Action    string `json:"action" yaml:"action"`
}

func runCheck(cmd *cobra.Command, args []string) error {
	rec, err := BuildRecord(line, number, name, date, clock, time.Now())
	if err != nil {
		return err
	}
	cfg := config.GetConfig()
	layout, err := cfg.Layout()
	if err != nil {
		return err
	}
	store, err := liststore.NewStore(cfg.Files.Whitelist, cfg.Files.Blacklist, layout, cfg.AppendOptions())
	if err != nil {
		return err
	}
	res, err := Evaluate(store, rec)
	if err != nil {
		return err
	}
	if jsonOutput {
		return output.Write(os.Stdout, res, output.FormatJSON)
	}
	Render(os.Stdout, res)
	return nil
}

// BuildRecord returns the record for a normalized line, or for one built
// from the individual fields.
func BuildRecord(line, number, name, date, clock string, now time.Time) (callerid.Record, error) {
	if line != "" {
		return callerid.FromLine(line), nil
	}
	if number == "" && name == "" {
		return callerid.Record{}, errors.New("a --number, a --name or a --line is required")
	}
	if date == "" {
		date = now.Format("0102")
	}
	if clock == "" {
		clock = now.Format("1504")
	}
	raw := fmt.Sprintf("\r\n%s = %s\r\n%s = %s\r\n%s = %s\r\n%s = %s\r\n",
		callerid.FieldDate, date,
		callerid.FieldTime, clock,
		callerid.FieldNmbr, number,
		callerid.FieldName, name)
	rec, ok := callerid.Normalize(raw, now)
	if !ok {
		return callerid.Record{}, fmt.Errorf("not a caller-ID line: %q", raw)
	}
	return rec, nil
}

// Evaluate checks rec the way a call is screened: whitelist first, then
// blacklist. Nothing is written.
func Evaluate(store *liststore.Store, rec callerid.Record) (Result, error) {
	res := Result{Line: rec.String(), Action: ActionUnlisted}

	white, err := store.Whitelist.Find(rec)
	if err != nil {
		return res, err
	}
	if white != nil {
		res.Whitelist = toMatch(white)
		res.Action = ActionAccept
		return res, nil
	}

	black, err := store.Blacklist.Find(rec)
	if err != nil {
		return res, err
	}
	if black != nil {
		res.Blacklist = toMatch(black)
		res.Action = ActionTerminate
	}
	return res, nil
}

func toMatch(e *liststore.Entry) *Match {
	return &Match{Token: e.Token, Date: e.Date, Offset: e.Offset}
}

// Render prints res for the console.
func Render(w io.Writer, res Result) {
	fmt.Fprintln(w, output.DimStyle.Render(res.Line))
	switch res.Action {
	case ActionAccept:
		fmt.Fprintf(w, "%s  whitelist entry %q (offset %d)\n",
			output.AcceptStyle.Render("ACCEPT"), res.Whitelist.Token, res.Whitelist.Offset)
	case ActionTerminate:
		fmt.Fprintf(w, "%s  blacklist entry %q (offset %d, last matched %s)\n",
			output.RejectStyle.Render("TERMINATE"), res.Blacklist.Token, res.Blacklist.Offset, res.Blacklist.Date)
	default:
		fmt.Fprintf(w, "%s  no list entry matches\n", output.NeutralStyle.Render("UNLISTED"))
	}
}
