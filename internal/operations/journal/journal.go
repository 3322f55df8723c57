package journal

import (
	"fmt"
	"time"

	"github.com/coreos/go-systemd/v22/sdjournal"
)

const maxEntries = 1000

// Entry is one journal record of a unit.
type Entry struct {
	Time    time.Time
	Level   string
	PID     string
	Message string
}

// Journal is the part of *sdjournal.Journal the reader uses.
type Journal interface {
	AddMatch(match string) error
	SeekTail() error
	Previous() (uint64, error)
	GetEntry() (*sdjournal.JournalEntry, error)
	Close() error
}

// Reader returns recent journal entries for a systemd unit.
type Reader struct {
	open    func() (Journal, error)
	timeout time.Duration
}

func NewReader() *Reader {
	return &Reader{open: openSystemJournal, timeout: 10 * time.Second}
}

// NewReaderWith reads from journals produced by open.
func NewReaderWith(open func() (Journal, error)) *Reader {
	return &Reader{open: open, timeout: 10 * time.Second}
}

func openSystemJournal() (Journal, error) {
	j, err := sdjournal.NewJournal()
	if err != nil {
		return nil, err
	}
	return j, nil
}

// LastN returns up to count entries for unit, oldest first.
func (r *Reader) LastN(unit string, count int) ([]Entry, error) {
	if count <= 0 {
		return nil, nil
	}
	if count > maxEntries {
		count = maxEntries
	}

	j, err := r.open()
	if err != nil {
		return nil, fmt.Errorf("failed to open systemd journal: %w", err)
	}
	defer j.Close()

	if err := j.AddMatch(sdjournal.SD_JOURNAL_FIELD_SYSTEMD_UNIT + "=" + unit); err != nil {
		return nil, fmt.Errorf("failed to add systemd unit match: %w", err)
	}
	if err := j.SeekTail(); err != nil {
		return nil, fmt.Errorf("failed to seek to end of journal: %w", err)
	}

	var entries []Entry
	start := time.Now()
	for len(entries) < count && time.Since(start) < r.timeout {
		n, err := j.Previous()
		if err != nil {
			return nil, fmt.Errorf("failed to read previous journal entry: %w", err)
		}
		if n == 0 {
			break
		}

		e, err := j.GetEntry()
		if err != nil {
			return nil, fmt.Errorf("failed to get journal entry: %w", err)
		}
		msg := e.Fields[sdjournal.SD_JOURNAL_FIELD_MESSAGE]
		if msg == "" {
			continue
		}
		entries = append(entries, Entry{
			Time:    time.UnixMicro(int64(e.RealtimeTimestamp)),
			Level:   priorityToLevel(e.Fields[sdjournal.SD_JOURNAL_FIELD_PRIORITY]),
			PID:     e.Fields[sdjournal.SD_JOURNAL_FIELD_PID],
			Message: msg,
		})
	}

	for i, k := 0, len(entries)-1; i < k; i, k = i+1, k-1 {
		entries[i], entries[k] = entries[k], entries[i]
	}
	return entries, nil
}

// priorityToLevel converts systemd journal priority to log level string
func priorityToLevel(priority string) string {
	switch priority {
	case "0":
		return "EMERG"
	case "1":
		return "ALERT"
	case "2":
		return "CRIT"
	case "3":
		return "ERROR"
	case "4":
		return "WARN"
	case "5":
		return "NOTICE"
	case "7":
		return "DEBUG"
	default:
		return "INFO"
	}
}
