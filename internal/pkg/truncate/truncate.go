// Package truncate prunes old records from the call log and the blacklist.
//
// It runs at most once per Interval, tracked by the mtime of a stamp file.
// Call log lines whose DATE is older than MaxAge are dropped, as are
// blacklist entries that have not matched a call within MaxAge. Comments,
// blank lines, malformed records and anything without a readable date are
// kept. Files are rewritten through a temporary file and a rename.
package truncate

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xenogenesi/jcblock/internal/pkg/callerid"
	"github.com/xenogenesi/jcblock/internal/pkg/constants"
	"github.com/xenogenesi/jcblock/internal/pkg/liststore"
	"github.com/xenogenesi/jcblock/internal/pkg/logger"
)

// Service is the truncation job for one line's files.
type Service struct {
	Interval  time.Duration
	MaxAge    time.Duration
	StampPath string
	CallLog   string
	Blacklist string
	Layout    liststore.Layout
	Now       func() time.Time
}

// Result reports what one pass did.
type Result struct {
	Skipped          bool
	CallLogRemoved   int
	BlacklistRemoved int
}

// New returns a service with the stock interval and age.
func New(stamp, callLog, blacklist string, layout liststore.Layout) *Service {
	return &Service{
		Interval:  constants.TruncateInterval,
		MaxAge:    constants.TruncateMaxAge,
		StampPath: stamp,
		CallLog:   callLog,
		Blacklist: blacklist,
		Layout:    layout,
		Now:       time.Now,
	}
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// Run truncates if the interval has elapsed. Failures are logged.
func (s *Service) Run() {
	res, err := s.RunOnce(false)
	if err != nil {
		logger.Error("Record truncation failed", "error", err)
		return
	}
	if !res.Skipped {
		logger.Info("Old records removed",
			"calllog_removed", res.CallLogRemoved,
			"blacklist_removed", res.BlacklistRemoved)
	}
}

// LastRun returns when the job last ran. ok is false if it never has.
func (s *Service) LastRun() (last time.Time, ok bool, err error) {
	info, err := os.Stat(s.StampPath)
	if errors.Is(err, fs.ErrNotExist) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("stat truncation stamp: %w", err)
	}
	return info.ModTime(), true, nil
}

// Due reports whether Interval has passed since the last run. A missing
// stamp file means the job has never run.
func (s *Service) Due() (bool, error) {
	last, ok, err := s.LastRun()
	if err != nil || !ok {
		return err == nil, err
	}
	return s.now().Sub(last) >= s.Interval, nil
}

// RunOnce truncates both files. Unless force is set it does nothing when
// the job is not due.
func (s *Service) RunOnce(force bool) (Result, error) {
	if !force {
		due, err := s.Due()
		if err != nil {
			return Result{}, err
		}
		if !due {
			return Result{Skipped: true}, nil
		}
	}

	now := s.now()
	cutoff := now.Add(-s.MaxAge)
	var res Result
	var errs []error

	n, err := rewrite(s.CallLog, func(line string) bool {
		return keepCall(line, now, cutoff)
	})
	res.CallLogRemoved = n
	if err != nil {
		errs = append(errs, fmt.Errorf("call log: %w", err))
	}

	n, err = rewrite(s.Blacklist, func(line string) bool {
		return keepEntry(line, s.Layout, now, cutoff)
	})
	res.BlacklistRemoved = n
	if err != nil {
		errs = append(errs, fmt.Errorf("blacklist: %w", err))
	}

	if err := s.touch(now); err != nil {
		errs = append(errs, err)
	}
	return res, errors.Join(errs...)
}

func (s *Service) touch(now time.Time) error {
	if err := os.WriteFile(s.StampPath, []byte(now.Format(time.RFC3339)+"\n"), 0o644); err != nil {
		return fmt.Errorf("write truncation stamp: %w", err)
	}
	if err := os.Chtimes(s.StampPath, now, now); err != nil {
		return fmt.Errorf("touch truncation stamp: %w", err)
	}
	return nil
}

func keepCall(line string, now, cutoff time.Time) bool {
	date, ok := callerid.FromLine(line).Field(callerid.FieldDate)
	if !ok {
		return true
	}
	t, ok := ParseDate(strings.TrimSpace(date), now)
	return !ok || !t.Before(cutoff)
}

func keepEntry(line string, layout liststore.Layout, now, cutoff time.Time) bool {
	kind, entry, err := liststore.ParseLine(line, layout)
	if err != nil || kind != liststore.LineEntry {
		return true
	}
	t, ok := ParseDate(entry.Date, now)
	return !ok || !t.Before(cutoff)
}

// ParseDate reads an MMDDYY or MMDD date. A date without a year is taken
// to be the most recent such day not after now.
func ParseDate(s string, now time.Time) (time.Time, bool) {
	if len(s) != 4 && len(s) != 6 {
		return time.Time{}, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return time.Time{}, false
		}
	}
	month, _ := strconv.Atoi(s[0:2])
	day, _ := strconv.Atoi(s[2:4])
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}

	year := now.Year()
	if len(s) == 6 {
		yy, _ := strconv.Atoi(s[4:6])
		year = 2000 + yy
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, now.Location())
	if len(s) == 4 && t.After(now) {
		t = t.AddDate(-1, 0, 0)
	}
	return t, true
}

// rewrite filters the lines of path through keep and replaces the file if
// anything was dropped. A missing file is not an error.
func rewrite(path string, keep func(line string) bool) (int, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, err
	}

	var kept []string
	removed := 0
	br := bufio.NewReader(f)
	for {
		raw, err := br.ReadString('\n')
		if len(raw) > 0 {
			line := strings.TrimSuffix(raw, "\n")
			if keep(line) {
				kept = append(kept, line)
			} else {
				removed++
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, err
		}
	}
	if removed == 0 {
		return 0, nil
	}

	if err := replace(path, info.Mode().Perm(), kept); err != nil {
		return 0, err
	}
	return removed, nil
}

func replace(path string, perm fs.FileMode, lines []string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	name := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(name)
	}

	w := bufio.NewWriter(tmp)
	for _, l := range lines {
		if _, err := w.WriteString(l + "\n"); err != nil {
			cleanup()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		cleanup()
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return err
	}
	return os.Rename(name, path)
}
