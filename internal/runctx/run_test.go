package runctx

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/ncecere/phonescout/internal/config"
)

func TestNewCreatesRunTree(t *testing.T) {
	cfg := config.Default()
	cfg.App.OutputBaseDir = t.TempDir()

	run, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	idPattern := regexp.MustCompile(`^\d{8}_\d{6}_[0-9a-f]{8}$`)
	if !idPattern.MatchString(run.ID) {
		t.Fatalf("run ID %q does not match <timestamp>_<uuid8>", run.ID)
	}

	for _, dir := range []string{
		run.Dir,
		run.ContextDir,
		filepath.Join(run.Dir, "scraped_content", "cleaned_pages_text"),
	} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s: %v", dir, err)
		}
	}

	logPath := filepath.Join(run.Dir, "pipeline_run_"+run.ID+".log")
	if _, err := os.Stat(logPath); err != nil {
		t.Fatalf("expected run log at %s: %v", logPath, err)
	}

	run.Log.Info().Msg("hello from the run")
	if err := run.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected log output in the run log file")
	}
}
