package services

import (
	"crowned-trader/models"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// SelectionJournal keeps a per-day JSON file of every selection outcome
type SelectionJournal struct {
	logger     *logrus.Logger
	logDir     string
	mu         sync.Mutex
	currentLog *DailySelectionLog
	now        func() time.Time
}

// DailySelectionLog is a day's worth of selection outcomes
type DailySelectionLog struct {
	Date    string         `json:"date"`
	Summary JournalSummary `json:"summary"`
	Entries []JournalEntry `json:"entries"`
}

// JournalSummary provides counts for the day
type JournalSummary struct {
	Total      int            `json:"total"`
	Selected   int            `json:"selected"`
	Failed     int            `json:"failed"`
	Errors     int            `json:"errors"`
	ByStrategy map[string]int `json:"by_strategy"`
	ByCategory map[string]int `json:"by_failure_category"`
}

// JournalEntry is a single selection outcome
type JournalEntry struct {
	Timestamp   time.Time `json:"timestamp"`
	SelectionID string    `json:"selection_id"`
	Underlying  string    `json:"underlying"`
	Direction   string    `json:"direction"`
	Strategy    string    `json:"strategy"`
	Status      string    `json:"status"`
	Contract    string    `json:"contract,omitempty"`
	DTE         int       `json:"dte,omitempty"`
	Category    string    `json:"category,omitempty"`
	Reason      string    `json:"reason,omitempty"`
}

// NewSelectionJournal creates a journal writing into logDir
func NewSelectionJournal(logDir string) *SelectionJournal {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	if err := os.MkdirAll(logDir, 0755); err != nil {
		logger.WithError(err).Error("Failed to create journal directory")
	}

	return &SelectionJournal{
		logger: logger,
		logDir: logDir,
		now:    time.Now,
	}
}

// Record appends an entry to today's log, rolling over at midnight
func (j *SelectionJournal) Record(entry JournalEntry) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	date := j.now().Format("2006-01-02")
	if j.currentLog == nil || j.currentLog.Date != date {
		log, err := j.readLog(date)
		if errors.Is(err, fs.ErrNotExist) {
			log = newDailySelectionLog(date)
		} else if err != nil {
			return err
		}
		j.currentLog = log
	}

	if entry.Timestamp.IsZero() {
		entry.Timestamp = j.now()
	}
	j.currentLog.Entries = append(j.currentLog.Entries, entry)

	s := &j.currentLog.Summary
	s.Total++
	s.ByStrategy[entry.Strategy]++
	switch entry.Status {
	case models.SelectionStatusSelected:
		s.Selected++
	case models.SelectionStatusFailed:
		s.Failed++
		if entry.Category != "" {
			s.ByCategory[entry.Category]++
		}
	default:
		s.Errors++
	}

	j.logger.WithFields(logrus.Fields{
		"selection_id": entry.SelectionID,
		"underlying":   entry.Underlying,
		"strategy":     entry.Strategy,
		"status":       entry.Status,
	}).Debug("Journal entry recorded")

	return j.saveLog()
}

// GetCurrentLog returns today's log
func (j *SelectionJournal) GetCurrentLog() (*DailySelectionLog, error) {
	return j.GetLogForDate(j.now().Format("2006-01-02"))
}

// GetLogForDate retrieves the log for a specific date
func (j *SelectionJournal) GetLogForDate(date string) (*DailySelectionLog, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.readLog(date)
}

func (j *SelectionJournal) readLog(date string) (*DailySelectionLog, error) {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return nil, fmt.Errorf("invalid date %q", date)
	}
	filename := filepath.Join(j.logDir, fmt.Sprintf("selections_%s.json", date))

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("log not found for date %s: %w", date, err)
	}

	var log DailySelectionLog
	if err := json.Unmarshal(data, &log); err != nil {
		return nil, fmt.Errorf("failed to parse log: %w", err)
	}
	if log.Summary.ByStrategy == nil {
		log.Summary.ByStrategy = make(map[string]int)
	}
	if log.Summary.ByCategory == nil {
		log.Summary.ByCategory = make(map[string]int)
	}

	return &log, nil
}

// ListAvailableLogs returns all dates that have a log, oldest first
func (j *SelectionJournal) ListAvailableLogs() ([]string, error) {
	files, err := os.ReadDir(j.logDir)
	if errors.Is(err, os.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}

	dates := make([]string, 0)
	for _, file := range files {
		name := file.Name()
		if file.IsDir() || !strings.HasPrefix(name, "selections_") || filepath.Ext(name) != ".json" {
			continue
		}
		dates = append(dates, strings.TrimSuffix(strings.TrimPrefix(name, "selections_"), ".json"))
	}
	sort.Strings(dates)

	return dates, nil
}

func newDailySelectionLog(date string) *DailySelectionLog {
	return &DailySelectionLog{
		Date: date,
		Summary: JournalSummary{
			ByStrategy: make(map[string]int),
			ByCategory: make(map[string]int),
		},
		Entries: make([]JournalEntry, 0),
	}
}

// saveLog writes the current log to disk; callers hold j.mu
func (j *SelectionJournal) saveLog() error {
	filename := filepath.Join(j.logDir, fmt.Sprintf("selections_%s.json", j.currentLog.Date))

	data, err := json.MarshalIndent(j.currentLog, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal log: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write log file: %w", err)
	}

	return nil
}
