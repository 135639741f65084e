package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"

	"github.com/mesh-intelligence/taskstore/pkg/sqlite"
	"github.com/mesh-intelligence/taskstore/pkg/types"
)

// withStore opens the store for the duration of fn. The close error is
// reported only when fn succeeded.
func (a *app) withStore(fn func(s types.Store) error) (err error) {
	cfg, err := a.storeConfig()
	if err != nil {
		return err
	}
	a.logger.Debug("opening store", "path", cfg.DBPath())
	store, err := sqlite.Open(cfg, sqlite.WithLogger(a.logger))
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if cerr := store.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close store: %w", cerr)
		}
	}()
	return fn(store)
}

// printJSON writes v as indented JSON followed by a newline.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// emit prints v as JSON in --json mode, or calls text otherwise.
func (a *app) emit(w io.Writer, v any, text func() error) error {
	if a.jsonMode {
		return printJSON(w, v)
	}
	return text()
}

func newTable(headers ...any) *uitable.Table {
	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.MaxColWidth = 60
	header := make([]any, len(headers))
	bold := color.New(color.Bold).SprintFunc()
	for i, h := range headers {
		header[i] = bold(h)
	}
	tbl.AddRow(header...)
	return tbl
}

var (
	doneMark      = color.GreenString("x")
	openMark      = " "
	suspendedMark = color.YellowString("~")
	archivedMark  = color.New(color.Faint).Sprint("archived")
	runningMark   = color.CyanString("running")
)

func taskMark(t *types.Task) string {
	switch {
	case t.Suspended:
		return suspendedMark
	case t.Done:
		return doneMark
	default:
		return openMark
	}
}

// usageErrorf returns an error that maps to exitUserError.
func usageErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errUsage, fmt.Sprintf(format, args...))
}

// parseID parses a positive entity id argument.
func parseID(what, arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s %q", types.ErrInvalidID, what, arg)
	}
	return id, nil
}

func parseIndex(arg string) (int64, error) {
	n, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || n < 0 {
		return 0, usageErrorf("position must be a non-negative integer, got %q", arg)
	}
	return n, nil
}

// timeLayouts are accepted in addition to unix seconds.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// parseTime reads unix seconds or a local date/time. An empty value means now.
func parseTime(value string, now time.Time) (int64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return now.Unix(), nil
	}
	if secs, err := strconv.ParseInt(value, 10, 64); err == nil {
		return secs, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return t.Unix(), nil
		}
	}
	return 0, usageErrorf("unrecognized time %q (want unix seconds, RFC3339, or YYYY-MM-DD[ HH:MM])", value)
}

func formatTime(secs int64) string {
	if secs == 0 {
		return "-"
	}
	return time.Unix(secs, 0).Local().Format("2006-01-02 15:04")
}

func formatDuration(secs int64) string {
	return (time.Duration(secs) * time.Second).String()
}

// clampIndex limits a requested position to [0, last].
func clampIndex(index, last int64) int64 {
	if last < 0 {
		return 0
	}
	return min(index, last)
}
