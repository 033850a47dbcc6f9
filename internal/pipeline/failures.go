package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"
)

var failureLogHeader = []string{
	"log_timestamp", "input_row_identifier", "CompanyName", "GivenURL",
	"stage_of_failure", "error_reason", "error_details",
}

// FailureLog appends row-level failures to the per-run CSV. Safe for
// concurrent use by the row workers.
type FailureLog struct {
	mu sync.Mutex
	f  *os.File
	w  *csv.Writer
}

func NewFailureLog(path string) (*FailureLog, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create failure log: %w", err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(failureLogHeader); err != nil {
		f.Close()
		return nil, fmt.Errorf("write failure log header: %w", err)
	}
	w.Flush()
	return &FailureLog{f: f, w: w}, nil
}

// Record appends one failure. details is serialized as JSON into the last
// column; nil details yields an empty object.
func (l *FailureLog) Record(rowID int, company, givenURL, stage, reason string, details map[string]any) {
	if details == nil {
		details = map[string]any{}
	}
	payload, err := json.Marshal(details)
	if err != nil {
		payload = []byte("{}")
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.w.Write([]string{
		time.Now().UTC().Format(time.RFC3339),
		strconv.Itoa(rowID),
		company,
		givenURL,
		stage,
		reason,
		string(payload),
	})
	l.w.Flush()
}

func (l *FailureLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.w.Flush()
	if err := l.w.Error(); err != nil {
		l.f.Close()
		return err
	}
	return l.f.Close()
}
