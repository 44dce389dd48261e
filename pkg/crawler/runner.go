package crawler

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"company-crawler/pkg/config"
	"company-crawler/pkg/fetch"
	"company-crawler/pkg/models"
	"company-crawler/pkg/utils"
)

const (
	runSummaryFilename = "run_summary.json"
	robotsLogFilename  = "robots_log.json"
)

// Runner iterates a company list sequentially, one crawl at a time, with a
// politeness delay between companies. One company's failure never aborts the
// run: the Runner only ever sees each company's manifest.
type Runner struct {
	orch *Orchestrator
	gate *fetch.RobotsGate
	cfg  *config.AppConfig
	log  *logrus.Logger
}

// NewRunner creates a Runner.
func NewRunner(orch *Orchestrator, gate *fetch.RobotsGate, cfg *config.AppConfig, log *logrus.Logger) *Runner {
	return &Runner{orch: orch, gate: gate, cfg: cfg, log: log}
}

// Run crawls every record and returns the run summary. A cancelled context
// stops between companies; completed companies stay persisted. The summary
// and the robots decision log are written under the output base directory.
func (r *Runner) Run(ctx context.Context, records []models.CompanyRecord) (*models.RunSummary, error) {
	summary := &models.RunSummary{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Total:     len(records),
	}
	runLog := r.log.WithField("run_id", summary.RunID)
	runLog.Infof("Starting crawl run: %d company(ies)", len(records))

	var runErr error
	for i, record := range records {
		if err := ctx.Err(); err != nil {
			runLog.Warnf("Run cancelled after %d company(ies): %v", i, err)
			runErr = err
			break
		}

		outDir := r.companyOutputDir(record.CompanyID)
		runLog.Infof("[%d/%d] %s -> %s", i+1, len(records), record.CompanyName, displayWebsite(record))

		manifest := r.orch.CrawlCompany(ctx, record, outDir)
		summary.Companies = append(summary.Companies, resultFromManifest(record, manifest, outDir))
		if manifest.Failed() {
			summary.Failed++
			runLog.Warnf("  !! %s skipped: %s (%s)", record.CompanyID, manifest.Reason, manifest.Message)
		} else {
			summary.Succeeded++
		}

		// Politeness pause between companies, not after the last one.
		if i < len(records)-1 {
			select {
			case <-time.After(r.cfg.CompanyDelay):
			case <-ctx.Done():
			}
		}
	}

	summary.FinishedAt = time.Now().UTC()
	runLog.Infof("Run complete: %d succeeded, %d failed", summary.Succeeded, summary.Failed)

	if err := r.writeRunSummary(summary); err != nil {
		runLog.Errorf("Writing run summary: %v", err)
	}
	if err := r.writeRobotsLog(summary.RunID); err != nil {
		runLog.Errorf("Writing robots log: %v", err)
	}
	return summary, runErr
}

// companyOutputDir maps a company to its artifact directory for the
// configured run mode.
func (r *Runner) companyOutputDir(companyID string) string {
	if r.cfg.RunMode == config.RunModeRun {
		ts := time.Now().UTC().Format("2006-01-02T15-04-05Z")
		return filepath.Join(r.cfg.OutputBaseDir, companyID, "runs", ts)
	}
	return filepath.Join(r.cfg.OutputBaseDir, companyID, "initial")
}

func displayWebsite(record models.CompanyRecord) string {
	if record.Website == "" {
		return "N/A"
	}
	return record.Website
}

func resultFromManifest(record models.CompanyRecord, manifest *models.CompanyManifest, outDir string) models.CompanyResult {
	result := models.CompanyResult{
		CompanyID:   record.CompanyID,
		CompanyName: record.CompanyName,
		Status:      "success",
		OutputDir:   outDir,
	}
	if manifest.Failed() {
		result.Status = "failed"
		result.Reason = manifest.Reason
		result.Message = manifest.Message
		return result
	}
	for _, section := range models.DiscoverySections {
		if url, ok := manifest.Sections[section]; ok && url != nil {
			result.SectionsResolved++
		}
	}
	return result
}

func (r *Runner) writeRunSummary(summary *models.RunSummary) error {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshaling run summary: %v", utils.ErrParsing, err)
	}
	path := filepath.Join(r.cfg.OutputBaseDir, runSummaryFilename)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("%w: saving run summary %s: %v", utils.ErrFilesystem, path, err)
	}
	return nil
}

// robotsLog is the run-level record of every robots.txt decision taken.
type robotsLog struct {
	RunID      string                  `json:"run_id"`
	Timestamp  string                  `json:"timestamp"`
	Domains    int                     `json:"domains"`
	Permissive int                     `json:"permissive"`
	Decisions  []models.RobotsDecision `json:"decisions"`
}

func (r *Runner) writeRobotsLog(runID string) error {
	decisions := r.gate.Decisions()
	entry := robotsLog{
		RunID:     runID,
		Timestamp: models.UTCTimestamp(time.Now()),
		Domains:   len(decisions),
		Decisions: decisions,
	}
	for _, d := range decisions {
		if d.Permissive {
			entry.Permissive++
		}
	}
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshaling robots log: %v", utils.ErrParsing, err)
	}
	path := filepath.Join(r.cfg.OutputBaseDir, robotsLogFilename)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("%w: saving robots log %s: %v", utils.ErrFilesystem, path, err)
	}
	return nil
}
