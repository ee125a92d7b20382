// Command send-campaigns runs a single dispatch batch from the command line.
// It selects every campaign inside its delivery window, or a single campaign
// when --campaign-id is given, and delivers pending mail through the
// configured backend.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/amirphl/Yatagarasu/app/services"
	businessflow "github.com/amirphl/Yatagarasu/business_flow"
	"github.com/amirphl/Yatagarasu/config"
	"github.com/amirphl/Yatagarasu/models"
	"github.com/amirphl/Yatagarasu/repository"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	var (
		campaignID = flag.Uint("campaign-id", 0, "dispatch only this campaign")
		ownerEmail = flag.String("owner-email", "", "dispatch only campaigns owned by this customer")
		force      = flag.Bool("force", false, "skip the delivery window check")
		dryRun     = flag.Bool("dry-run", false, "resolve eligibility without sending or recording attempts")
		timeout    = flag.Duration("timeout", 10*time.Minute, "overall run deadline")
	)
	flag.Parse()

	os.Exit(run(*campaignID, *ownerEmail, *force, *dryRun, *timeout))
}

func run(campaignID uint, ownerEmail string, force, dryRun bool, timeout time.Duration) int {
	logger := log.New(os.Stderr, "send-campaigns ", log.LstdFlags|log.LUTC)

	cfg, err := config.LoadProductionConfig()
	if err != nil {
		logger.Printf("failed to load configuration: %v", err)
		return 1
	}

	db, err := openDatabase(cfg.Database)
	if err != nil {
		logger.Printf("failed to connect to database: %v", err)
		return 1
	}

	var mailer services.Mailer
	if cfg.SMTP.Mock {
		mailer = services.NewMockMailer()
	} else {
		mailer = services.NewSMTPMailer(cfg.SMTP)
	}

	dispatchFlow := businessflow.NewDispatchFlow(
		repository.NewCampaignRepository(db),
		repository.NewDeliveryAttemptRepository(db),
		repository.NewDispatchRunRepository(db),
		repository.NewCustomerRepository(db),
		repository.NewAuditLogRepository(db),
		mailer,
		&cfg.Cache,
		nil, // batch runs resolve status from the database, never the cache
		db,
		logger,
	)

	opts := businessflow.BatchOptions{
		Force:  force,
		DryRun: dryRun,
		Source: models.DispatchSourceCLI,
	}
	if campaignID > 0 {
		opts.CampaignID = &campaignID
	}
	if email := strings.TrimSpace(ownerEmail); email != "" {
		opts.OwnerEmail = &email
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	summary, err := dispatchFlow.RunBatch(ctx, opts)
	if err != nil {
		logger.Printf("batch run failed: %v", err)
		return 1
	}

	// Per-campaign failures are reported in the summary, never through the
	// exit code; only startup and selection failures abort.
	printSummary(summary, dryRun)
	return 0
}

func openDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := sqlDB.Ping(); err != nil {
		return nil, err
	}
	return db, nil
}

func printSummary(summary *businessflow.BatchSummary, dryRun bool) {
	mode := "dispatched"
	if dryRun {
		mode = "dry run"
	}
	fmt.Printf("%s: %d campaigns (succeeded=%d failed=%d skipped=%d)\n",
		mode, summary.Total, summary.Succeeded, summary.Failed, summary.Skipped)
	for _, e := range summary.Errors {
		fmt.Printf("  error: %s\n", e)
	}
}
