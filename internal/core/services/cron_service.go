package services

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"stockvel-tracker/internal/config"
	"stockvel-tracker/internal/pkg/metrics"

	"github.com/robfig/cron/v3"
)

// Job names
const (
	JobOpenPeriod   = "open_period"
	JobRiskSnapshot = "risk_snapshot"
	JobTokenCleanup = "token_cleanup"
	cronJobTimeout  = 5 * time.Minute
)

// CronJob is one scheduled background task
type CronJob struct {
	Name string                          `json:"name"`
	Spec string                          `json:"spec"`
	Run  func(ctx context.Context) error `json:"-"`
}

// CronService runs background jobs on a seconds-resolution schedule in UTC
type CronService struct {
	cron *cron.Cron
	jobs map[string]CronJob
}

// NewCronService wires the stockvel jobs onto the configured schedules
func NewCronService(
	cfg config.CronConfig,
	contributions *ContributionService,
	risk *RiskService,
	auth *AuthService,
) *CronService {
	s := newCronService()
	s.Register(CronJob{Name: JobOpenPeriod, Spec: cfg.OpenPeriodSpec, Run: func(ctx context.Context) error {
		_, err := contributions.OpenCurrentPeriod(ctx)
		return err
	}})
	s.Register(CronJob{Name: JobRiskSnapshot, Spec: cfg.RiskSnapshotSpec, Run: func(ctx context.Context) error {
		snapshot, err := risk.Snapshot(ctx)
		if err == nil && snapshot.Drifted > 0 {
			log.Printf("⚠️ Risk snapshot: %d of %d members drifted from stored level", snapshot.Drifted, snapshot.Members)
		}
		return err
	}})
	s.Register(CronJob{Name: JobTokenCleanup, Spec: cfg.TokenCleanupSpec, Run: func(ctx context.Context) error {
		removed, err := auth.CleanupExpiredTokens(ctx)
		if err == nil && removed > 0 {
			log.Printf("🧹 Removed %d expired refresh tokens", removed)
		}
		return err
	}})
	return s
}

func newCronService() *CronService {
	return &CronService{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLocation(time.UTC),
			cron.WithChain(cron.Recover(cron.PrintfLogger(log.Default()))),
		),
		jobs: make(map[string]CronJob),
	}
}

// Register adds a job. Jobs are scheduled when Start is called.
func (s *CronService) Register(job CronJob) {
	s.jobs[job.Name] = job
}

// Start schedules every registered job and starts the scheduler
func (s *CronService) Start() error {
	for _, job := range s.jobs {
		job := job
		if _, err := s.cron.AddFunc(job.Spec, func() { s.execute(job) }); err != nil {
			return fmt.Errorf("schedule %s (%q): %w", job.Name, job.Spec, err)
		}
		log.Printf("⏰ Scheduled %s: %s", job.Name, job.Spec)
	}
	s.cron.Start()
	log.Println("🚀 CronService started")
	return nil
}

// Stop stops the scheduler and waits for running jobs
func (s *CronService) Stop() {
	<-s.cron.Stop().Done()
	log.Println("🛑 CronService stopped")
}

// Has reports whether a job is registered under name
func (s *CronService) Has(name string) bool {
	_, ok := s.jobs[name]
	return ok
}

// Jobs lists the registered jobs sorted by name
func (s *CronService) Jobs() []CronJob {
	jobs := make([]CronJob, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, job)
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Name < jobs[j].Name })
	return jobs
}

// RunNow executes a registered job immediately
func (s *CronService) RunNow(name string) error {
	job, ok := s.jobs[name]
	if !ok {
		return fmt.Errorf("unknown job %q", name)
	}
	return s.execute(job)
}

func (s *CronService) execute(job CronJob) error {
	ctx, cancel := context.WithTimeout(context.Background(), cronJobTimeout)
	defer cancel()

	start := time.Now()
	if err := job.Run(ctx); err != nil {
		metrics.CronRuns.WithLabelValues(job.Name, "error").Inc()
		log.Printf("❌ Cron job %s failed: %v", job.Name, err)
		return err
	}
	metrics.CronRuns.WithLabelValues(job.Name, "ok").Inc()
	log.Printf("✅ Cron job %s finished in %s", job.Name, time.Since(start).Round(time.Millisecond))
	return nil
}
