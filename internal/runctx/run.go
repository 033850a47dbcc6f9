package runctx

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ncecere/phonescout/internal/config"
	"github.com/ncecere/phonescout/internal/metrics"
	"github.com/ncecere/phonescout/internal/scraper"
)

// Run owns everything scoped to one pipeline invocation: the run ID, the
// output directory tree, the leveled logger, the metrics registry and the
// cross-row visited-URL set. Components receive it explicitly; there is no
// package-level run state.
type Run struct {
	ID         string
	Dir        string
	ContextDir string
	ContentDir string
	Started    time.Time

	Log     zerolog.Logger
	Cfg     *config.Config
	Metrics *metrics.Registry
	Visited *scraper.VisitRegistry

	logFile *os.File
}

// New creates the run directory tree and the run logger.
func New(cfg *config.Config) (*Run, error) {
	started := time.Now()
	id := started.UTC().Format("20060102_150405") + "_" + uuid.NewString()[:8]

	dir := filepath.Join(cfg.App.OutputBaseDir, id)
	contextDir := filepath.Join(dir, cfg.LLM.ContextSubdir)
	contentDir := filepath.Join(dir, "scraped_content", "cleaned_pages_text")
	for _, d := range []string{dir, contextDir, contentDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("create run directory %s: %w", d, err)
		}
	}

	logPath := filepath.Join(dir, fmt.Sprintf("pipeline_run_%s.log", id))
	logFile, err := os.Create(logPath)
	if err != nil {
		return nil, fmt.Errorf("create run log: %w", err)
	}

	fileLevel := parseLevel(cfg.App.LogLevel, zerolog.InfoLevel)
	consoleLevel := parseLevel(cfg.App.ConsoleLogLevel, zerolog.WarnLevel)

	console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}
	writer := zerolog.MultiLevelWriter(
		&zerolog.FilteredLevelWriter{Writer: zerolog.LevelWriterAdapter{Writer: console}, Level: consoleLevel},
		&zerolog.FilteredLevelWriter{Writer: zerolog.LevelWriterAdapter{Writer: logFile}, Level: fileLevel},
	)

	minLevel := fileLevel
	if consoleLevel < minLevel {
		minLevel = consoleLevel
	}
	log := zerolog.New(writer).Level(minLevel).With().
		Timestamp().
		Str("run_id", id).
		Logger()

	return &Run{
		ID:         id,
		Dir:        dir,
		ContextDir: contextDir,
		ContentDir: contentDir,
		Started:    started,
		Log:        log,
		Cfg:        cfg,
		Metrics:    metrics.NewRegistry(),
		Visited:    scraper.NewVisitRegistry(),
		logFile:    logFile,
	}, nil
}

// Close flushes and closes the run log file.
func (r *Run) Close() error {
	if r.logFile != nil {
		return r.logFile.Close()
	}
	return nil
}

func parseLevel(s string, fallback zerolog.Level) zerolog.Level {
	lvl, err := zerolog.ParseLevel(s)
	if err != nil || lvl == zerolog.NoLevel {
		return fallback
	}
	return lvl
}
