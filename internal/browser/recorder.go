package browser

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// recorder writes a navigation log per scenario. A failed scenario's log is
// renamed with a ".failed" suffix so it stands out in the directory.
type recorder struct {
	path string
	f    *os.File
}

func newRecorder(opts Options, featureTitle, scenarioTitle string) (*recorder, error) {
	if !opts.Record || opts.RecordingsDir == "" {
		return &recorder{}, nil
	}
	dir := filepath.Join(opts.RecordingsDir, SafeName(featureTitle))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating recordings directory: %w", err)
	}
	path := filepath.Join(dir, SafeName(scenarioTitle)+".log")
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating recording: %w", err)
	}
	return &recorder{path: path, f: f}, nil
}

func (r *recorder) log(event, detail string) {
	if r.f == nil {
		return
	}
	fmt.Fprintf(r.f, "%s %-8s %s\n", time.Now().Format(time.RFC3339Nano), event, detail)
}

// stop closes the log and returns its final path.
func (r *recorder) stop(failed bool) (string, error) {
	if r.f == nil {
		return "", nil
	}
	err := r.f.Close()
	r.f = nil
	if err != nil {
		return r.path, fmt.Errorf("closing recording: %w", err)
	}
	if !failed {
		return r.path, nil
	}
	failedPath := strings.TrimSuffix(r.path, ".log") + ".failed.log"
	if err := os.Rename(r.path, failedPath); err != nil {
		return r.path, fmt.Errorf("renaming recording: %w", err)
	}
	return failedPath, nil
}

// SafeName turns a title into a single path element.
func SafeName(title string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', 0:
			return '_'
		}
		return r
	}, strings.TrimSpace(title))
	if name == "" || name == "." || name == ".." {
		return "_"
	}
	return name
}
