package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"company-crawler/pkg/config"
	"company-crawler/pkg/crawler"
	"company-crawler/pkg/discover"
	"company-crawler/pkg/fetch"
	"company-crawler/pkg/models"
	"company-crawler/pkg/process"
	"company-crawler/pkg/seed"
	"company-crawler/pkg/storage"
	"company-crawler/pkg/utils"
)

func main() {
	// --- Early Initialization & Flags ---
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "15:04:05.000"})
	log.SetLevel(logrus.InfoLevel)

	configFileFlag := flag.String("config", "", "Path to YAML config file (optional)")
	seedFlag := flag.String("seed", "data/seed/companies.json", "Path to company seed JSON")
	overridesFlag := flag.String("overrides", "", "JSON map: company_id -> official base URL")
	companyFlag := flag.String("company", "", "Crawl only this company_id")
	limitFlag := flag.Int("limit", 0, "Crawl at most N companies (0 = all)")
	outFlag := flag.String("out", "", "Output base directory (overrides config)")
	runModeFlag := flag.String("run-mode", "", "Output layout: 'initial' or 'run' (overrides config)")
	noHistoryFlag := flag.Bool("no-history", false, "Disable the crawl-history database")
	logLevelFlag := flag.String("loglevel", "info", "Log level (debug, info, warn, error, fatal)")
	flag.Parse()

	// --- Logger Configuration ---
	level, err := logrus.ParseLevel(*logLevelFlag)
	if err != nil {
		log.Warnf("Invalid log level '%s', using default 'info'. Error: %v", *logLevelFlag, err)
	} else {
		log.SetLevel(level)
	}

	// --- Load Application Configuration ---
	var appCfg config.AppConfig
	if *configFileFlag != "" {
		log.Infof("Loading configuration from %s", *configFileFlag)
		yamlFile, err := os.ReadFile(*configFileFlag)
		if err != nil {
			log.Fatalf("Read config file '%s' error: %v", *configFileFlag, err)
		}
		if err := yaml.Unmarshal(yamlFile, &appCfg); err != nil {
			log.Fatalf("Parse config file '%s' error: %v", *configFileFlag, err)
		}
	}
	if *outFlag != "" {
		appCfg.OutputBaseDir = *outFlag
	}
	if *runModeFlag != "" {
		appCfg.RunMode = *runModeFlag
	}

	appWarnings, err := appCfg.Validate()
	for _, w := range appWarnings {
		log.Warn(w)
	}
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}
	log.Infof("Config: Out:%s, State:%s, RunMode:%s, CompanyDelay:%v, HTTPTimeout:%v",
		appCfg.OutputBaseDir, appCfg.StateDir, appCfg.RunMode, appCfg.CompanyDelay,
		appCfg.HTTPClientSettings.Timeout)

	// --- Load Seed & Overrides ---
	records, err := seed.Load(*seedFlag)
	if err != nil {
		log.Fatalf("Load seed '%s' error: %v", *seedFlag, err)
	}
	overrides, err := seed.LoadOverrides(*overridesFlag)
	if err != nil {
		log.Fatalf("Load overrides '%s' error: %v", *overridesFlag, err)
	}
	records = seed.ApplyOverrides(records, overrides)

	if *companyFlag != "" {
		records = filterCompany(records, *companyFlag)
		if len(records) == 0 {
			log.Fatalf("Company '%s' not found in seed", *companyFlag)
		}
	}
	if *limitFlag > 0 && *limitFlag < len(records) {
		records = records[:*limitFlag]
	}
	log.Infof("Seed loaded: %d company(ies) to crawl", len(records))

	// --- Global Context & Signal Handling ---
	crawlCtx, cancelCrawl := context.WithCancel(context.Background())
	defer cancelCrawl()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Warnf("Received signal: %v. Finishing current company, then stopping...", sig)
		cancelCrawl()
		select {
		case sig = <-sigChan:
			log.Warnf("Received second signal: %v. Forcing exit.", sig)
			os.Exit(1)
		case <-time.After(60 * time.Second):
			log.Warn("Graceful shutdown period exceeded after signal. Forcing exit.")
			os.Exit(1)
		}
	}()
	defer signal.Stop(sigChan)

	// --- Initialize Components ---
	spamPatterns, err := utils.CompileRegexPatterns(appCfg.SpamPathPatterns)
	if err != nil {
		log.Fatalf("Spam pattern error: %v", err)
	}
	filters := discover.NewFilters(appCfg.BlockedHosts, spamPatterns)

	httpClient := fetch.NewClient(appCfg.HTTPClientSettings, log)
	gate := fetch.NewRobotsGate(httpClient, appCfg.UserAgent, log.WithField("component", "robots"))
	rateLimiter := fetch.NewRateLimiter(appCfg.DefaultDelayPerHost, log)
	fetcher := fetch.NewFetcher(httpClient, gate, rateLimiter, &appCfg, log)
	discoverer := discover.NewDiscoverer(gate, filters, appCfg.MaxNavCandidates, log)
	normalizer := process.NewNormalizer(log)

	var history *storage.HistoryStore
	if *noHistoryFlag {
		log.Info("Crawl-history database disabled.")
	} else {
		history, err = storage.NewHistoryStore(crawlCtx, appCfg.StateDir, log.WithField("component", "history"))
		if err != nil {
			log.Fatalf("Failed to initialize crawl-history store: %v", err)
		}
		// The GC loop must be stopped and drained before the DB closes.
		gcCtx, stopGC := context.WithCancel(context.Background())
		gcDone := make(chan struct{})
		go func() {
			history.RunGC(gcCtx, 10*time.Minute)
			close(gcDone)
		}()
		defer func() {
			stopGC()
			<-gcDone
			history.Close()
		}()
	}

	orch := crawler.NewOrchestrator(fetcher, discoverer, normalizer, filters, history, &appCfg, log)
	runner := crawler.NewRunner(orch, gate, &appCfg, log)

	// --- Run ---
	summary, runErr := runner.Run(crawlCtx, records)
	for _, c := range summary.Companies {
		if c.Status == "failed" {
			log.Warnf("  %s: %s (%s)", c.CompanyID, c.Reason, c.Message)
		}
	}

	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			log.Warn("Run cancelled gracefully.")
			os.Exit(0)
		}
		log.Errorf("Run finished with error: %v", runErr)
		os.Exit(1)
	}
	log.Infof("Run completed: %d/%d companies succeeded.", summary.Succeeded, summary.Total)
}

// filterCompany keeps only the record matching the given company_id.
func filterCompany(records []models.CompanyRecord, companyID string) []models.CompanyRecord {
	var out []models.CompanyRecord
	for _, r := range records {
		if r.CompanyID == companyID {
			out = append(out, r)
		}
	}
	return out
}
