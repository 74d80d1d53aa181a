package report

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/AdamLovattDevOps/slow-wifi/internal/experiment"
)

// summaryTest mirrors an experiment result but collapses the raw RTT
// series to a count, keeping the summary artifact readable.
type summaryTest struct {
	experiment.Result
	RawRTTs string `json:"raw_rtts"`
}

// summaryView is the Report shape persisted in the summary artifact.
type summaryView struct {
	Report
	Tests []summaryTest `json:"tests"`
}

// Archiver persists a finished report; implemented by the run archive.
type Archiver interface {
	ArchiveReport(ctx context.Context, rep Report) error
}

// Write persists the two report artifacts under dir — a summary JSON with
// raw series summarized by count, and a full-fidelity raw JSON — and, when
// an archiver is supplied, the archive row. The three writes are
// independent, so they fan out concurrently.
func Write(ctx context.Context, rep Report, dir string, archiver Archiver) (summaryPath, rawPath string, err error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", "", fmt.Errorf("failed to create report directory: %w", err)
	}

	stamp := rep.GeneratedAt.Format("20060102_150405")
	summaryPath = filepath.Join(dir, fmt.Sprintf("optimizer_report_%s.json", stamp))
	rawPath = filepath.Join(dir, fmt.Sprintf("optimizer_report_%s_raw.json", stamp))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return writeJSON(summaryPath, summarize(rep))
	})
	g.Go(func() error {
		return writeJSON(rawPath, rep)
	})
	if archiver != nil {
		g.Go(func() error {
			if err := archiver.ArchiveReport(gctx, rep); err != nil {
				return fmt.Errorf("failed to archive report: %w", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", "", err
	}

	logrus.WithFields(logrus.Fields{
		"summary": summaryPath,
		"raw":     rawPath,
	}).Info("report written")
	return summaryPath, rawPath, nil
}

func summarize(rep Report) summaryView {
	view := summaryView{Report: rep}
	view.Tests = make([]summaryTest, 0, len(rep.Tests))
	for _, t := range rep.Tests {
		st := summaryTest{Result: t, RawRTTs: fmt.Sprintf("[%d values]", len(t.RawRTTs))}
		st.Result.RawRTTs = nil
		view.Tests = append(view.Tests, st)
	}
	return view
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
