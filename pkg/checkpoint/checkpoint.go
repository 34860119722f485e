// Package checkpoint maintains the per-row journal that makes sync runs
// resumable. The journal is a line-oriented, append-only text file:
//
//	SyncFile: 'downloads/export-2022-03-22.csv'
//	SyncTime: 2022-03-22 14:01:07
//	[0001] OK ana@example.com create
//	[0002] ERROR ben@example.com AttributeError: ...
//
// The first line binds the journal to one input dataset. On resume the
// journal is replayed into a typed entry sequence and every row whose
// terminal status is OK or SKIP joins the skip set; rows that failed are
// re-attempted.
package checkpoint

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/agentstation/utc"

	"github.com/surjbayarea/actionsync/pkg/errors"
	"github.com/surjbayarea/actionsync/pkg/logging"
)

// Status is the terminal outcome recorded for one row.
type Status string

// Row statuses. OK and SKIP are success-terminal: a resumed run skips
// them. Everything else is re-attempted on resume.
const (
	StatusOK         Status = "OK"
	StatusDryRun     Status = "DRYRUN"
	StatusError      Status = "ERROR"
	StatusNotFound   Status = "NOT_FOUND"
	StatusMismatchID Status = "MISMATCH_ID"
	StatusSkip       Status = "SKIP"
)

// skippable reports whether a prior terminal status makes the row safe
// to skip on a resumed run.
func skippable(s Status) bool {
	return s == StatusOK || s == StatusSkip
}

// Entry is one parsed journal line.
type Entry struct {
	RowID   int
	Status  Status
	Key     string
	Message string
}

// headerPrefix binds a journal to its input dataset.
const headerPrefix = "SyncFile:"

// Options control how a journal is opened.
type Options struct {
	// Resume replays an existing journal into a skip set.
	Resume bool
	// Overwrite recreates an existing journal.
	Overwrite bool
	// DryRun rewrites OK entries to DRYRUN so a dry run's journal can
	// never feed a later skip set.
	DryRun bool
}

// Log is an open checkpoint journal.
type Log struct {
	w       io.Writer
	closer  io.Closer
	path    string
	dryRun  bool
	skipSet map[int]Status
}

// Console identifies the journal target that writes to stdout instead
// of a file. Console journals are not replayable, so resume is ignored.
const Console = "-"

// Open opens or creates the journal at path, bound to the given dataset
// identity. See Options for resume and overwrite behavior. An existing
// journal with neither flag set is a fatal configuration error.
func Open(path, dataset string, opts Options) (*Log, error) {
	log := &Log{
		path:    path,
		dryRun:  opts.DryRun,
		skipSet: make(map[int]Status),
	}

	if path == "" || path == Console {
		if opts.Resume {
			logging.Warn().Msg("option --resume ignored for console log")
		}
		log.w = os.Stdout
		return log, nil
	}

	// Guard against a mistyped --log flag swallowing the filename.
	if path == "og" {
		return nil, errors.NewConfigError("checkpoint", "file 'og': did you mean --log?", nil)
	}

	header := fmt.Sprintf("%s '%s'", headerPrefix, dataset)

	_, statErr := os.Stat(path)
	exists := statErr == nil

	if !exists || opts.Overwrite {
		if opts.Resume {
			logging.Warn().Str("log", path).Msg("option --resume ignored, nothing to resume")
		}
		f, err := os.Create(path)
		if err != nil {
			return nil, errors.WrapIO("create", path, err)
		}
		if _, err := fmt.Fprintln(f, header); err != nil {
			_ = f.Close()
			return nil, errors.WrapIO("write", path, err)
		}
		log.w, log.closer = f, f
		log.stampSession()
		return log, nil
	}

	if !opts.Resume {
		return nil, errors.NewConfigError("checkpoint",
			path+": file exists, use --resume, --overwrite or remove it", nil)
	}

	entries, err := replay(path, header)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if skippable(e.Status) {
			log.skipSet[e.RowID] = e.Status
		}
	}

	logging.Info().Str("log", path).Int("skip", len(log.skipSet)).Msg("resuming from checkpoint log")

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, errors.WrapIO("open", path, err)
	}
	log.w, log.closer = f, f
	log.stampSession()
	return log, nil
}

// replay parses an existing journal, verifying its dataset identity.
func replay(path, wantHeader string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WrapIO("open", path, err)
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		return nil, errors.NewConfigError("checkpoint", path+": empty log file", scanner.Err())
	}
	if got := scanner.Text(); got != wantHeader {
		return nil, errors.NewConfigError("checkpoint",
			fmt.Sprintf("%s: log belongs to a different dataset: found %q, want %q", path, got, wantHeader), nil)
	}

	var entries []Entry
	for scanner.Scan() {
		entry, ok := parseEntry(scanner.Text())
		if !ok {
			continue // session stamps and other non-entry lines
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.WrapIO("read", path, err)
	}
	return entries, nil
}

// parseEntry parses one "[NNNN] STATUS key message" line.
func parseEntry(line string) (Entry, bool) {
	if !strings.HasPrefix(line, "[") {
		return Entry{}, false
	}
	tokens := strings.SplitN(line, " ", 4)
	if len(tokens) < 2 {
		return Entry{}, false
	}

	rowid, err := strconv.Atoi(strings.Trim(tokens[0], "[]"))
	if err != nil {
		return Entry{}, false
	}

	entry := Entry{RowID: rowid, Status: Status(tokens[1])}
	if len(tokens) > 2 {
		entry.Key = tokens[2]
	}
	if len(tokens) > 3 {
		entry.Message = tokens[3]
	}
	return entry, true
}

// stampSession records when this run session started appending.
func (l *Log) stampSession() {
	fmt.Fprintf(l.w, "SyncTime: %s\n", utc.Now().Format("2006-01-02 15:04:05"))
	l.flush()
}

// Skip reports whether a row already reached a success terminal state in
// a prior run.
func (l *Log) Skip(rowid int) bool {
	_, ok := l.skipSet[rowid]
	return ok
}

// SkipCount returns the size of the skip set.
func (l *Log) SkipCount() int {
	return len(l.skipSet)
}

// Append writes one row's terminal entry and flushes it to disk before
// returning, so an interrupted run never loses processed rows. In dryrun
// mode a would-be OK is rewritten to DRYRUN.
func (l *Log) Append(rowid int, status Status, key, message string) error {
	if l.dryRun && status == StatusOK {
		status = StatusDryRun
	}

	if message != "" {
		_, err := fmt.Fprintf(l.w, "[%04d] %s %s %s\n", rowid, status, key, message)
		if err != nil {
			return errors.WrapIO("write", l.path, err)
		}
	} else {
		if _, err := fmt.Fprintf(l.w, "[%04d] %s %s\n", rowid, status, key); err != nil {
			return errors.WrapIO("write", l.path, err)
		}
	}
	l.flush()
	return nil
}

// flush forces the entry to stable storage where the target supports it.
func (l *Log) flush() {
	if f, ok := l.w.(*os.File); ok {
		_ = f.Sync()
	}
}

// Close releases the journal file. Safe on console journals.
func (l *Log) Close() error {
	if l.closer == nil {
		return nil
	}
	if err := l.closer.Close(); err != nil {
		return errors.WrapIO("close", l.path, err)
	}
	return nil
}
