package janitor

import (
	"context"
	"sort"
	"time"

	"github.com/ds124wfegd/WB_L3/avatar/config"
	"github.com/ds124wfegd/WB_L3/avatar/internal/database"
	"github.com/ds124wfegd/WB_L3/avatar/internal/pkg/metrics"
	"github.com/ds124wfegd/WB_L3/avatar/internal/pkg/storage"
	"github.com/sirupsen/logrus"
)

// SweepReport counts what a single sweep did.
type SweepReport struct {
	Scanned           int `json:"scanned"`
	RemovedTemp       int `json:"removed_temp"`
	RemovedSuperseded int `json:"removed_superseded"`
	Failed            int `json:"failed"`
}

// Janitor removes abandoned temp files and images replaced by a newer upload.
// It works only through the store's List and Delete. Temp files younger than
// the retention belong to in-flight uploads and are left alone.
type Janitor struct {
	store               storage.FileStorage
	index               database.ImageRepository
	observer            metrics.Observer
	interval            time.Duration
	tempRetention       time.Duration
	supersededRetention time.Duration
	now                 func() time.Time
}

func NewJanitor(store storage.FileStorage, index database.ImageRepository, observer metrics.Observer, cfg config.JanitorConfig) *Janitor {
	if observer == nil {
		observer = metrics.Nop()
	}
	return &Janitor{
		store:               store,
		index:               index,
		observer:            observer,
		interval:            cfg.Interval,
		tempRetention:       cfg.TempRetention,
		supersededRetention: cfg.SupersededRetention,
		now:                 time.Now,
	}
}

// Start sweeps once per interval until ctx is cancelled.
func (j *Janitor) Start(ctx context.Context) {
	if j.interval <= 0 {
		logrus.Warn("Janitor interval is not positive, periodic sweeps disabled")
		return
	}
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	logrus.WithField("interval", j.interval.String()).Info("Janitor started")

	for {
		select {
		case <-ctx.Done():
			logrus.Info("Janitor stopped")
			return
		case <-ticker.C:
			j.Sweep(ctx)
		}
	}
}

// Sweep makes one pass. Failures on individual entries are counted and logged,
// never returned; a listing failure ends the pass early.
//
// Superseded images are found two ways: from the index ledger, and from the
// listing itself, where every image of an owner older than the newest one is
// an orphan unless the index still calls it current. The listing covers
// ledgers lost with a restart.
func (j *Janitor) Sweep(ctx context.Context) SweepReport {
	var report SweepReport
	now := j.now()

	entries, err := j.store.List()
	if err != nil {
		logrus.WithError(err).Error("Janitor could not list storage")
		report.Failed++
		j.observer.RecordSweep(0, 0, report.Failed)
		return report
	}

	tempCutoff := now.Add(-j.tempRetention)
	owned := make(map[string][]storage.Entry)
	for _, entry := range entries {
		if ctx.Err() != nil {
			logrus.Info("Sweep interrupted by context cancellation")
			break
		}
		report.Scanned++
		if !entry.Temp {
			if digest, ok := storage.DigestOf(entry.Name); ok {
				owned[digest] = append(owned[digest], entry)
			}
			continue
		}
		if entry.ModTime.After(tempCutoff) {
			continue
		}
		if err := j.store.Delete(entry.Name); err != nil {
			logrus.WithError(err).WithField("name", entry.Name).Warn("Failed to remove temp file")
			report.Failed++
			continue
		}
		logrus.WithField("name", entry.Name).Debug("Removed stale temp file")
		report.RemovedTemp++
	}

	supersededCutoff := now.Add(-j.supersededRetention)
	removed := make(map[string]bool)
	if ctx.Err() == nil {
		j.sweepOrphans(ctx, owned, supersededCutoff, removed, &report)
	}
	if j.index != nil && ctx.Err() == nil {
		j.sweepSuperseded(ctx, supersededCutoff, removed, &report)
	}

	j.observer.RecordSweep(report.RemovedTemp, report.RemovedSuperseded, report.Failed)
	logrus.WithFields(logrus.Fields{
		"scanned":            report.Scanned,
		"removed_temp":       report.RemovedTemp,
		"removed_superseded": report.RemovedSuperseded,
		"failed":             report.Failed,
	}).Info("Janitor sweep completed")

	if report.Failed > 0 {
		logrus.Warnf("%d entries could not be removed during sweep", report.Failed)
	}
	return report
}

// sweepOrphans removes every image that has a newer sibling from the same owner
// written before cutoff. The newest image of an owner is never touched.
func (j *Janitor) sweepOrphans(ctx context.Context, owned map[string][]storage.Entry, cutoff time.Time, removed map[string]bool, report *SweepReport) {
	for _, group := range owned {
		if len(group) < 2 {
			continue
		}
		sort.Slice(group, func(a, b int) bool {
			if group[a].ModTime.Equal(group[b].ModTime) {
				return group[a].Name < group[b].Name
			}
			return group[a].ModTime.Before(group[b].ModTime)
		})

		for i, entry := range group[:len(group)-1] {
			if ctx.Err() != nil {
				return
			}
			// replaced when the next image landed
			if group[i+1].ModTime.After(cutoff) {
				continue
			}
			if j.index != nil {
				current, err := j.index.IsCurrent(ctx, entry.Name)
				if err != nil {
					logrus.WithError(err).WithField("name", entry.Name).Warn("Failed to check current image")
					report.Failed++
					continue
				}
				if current {
					continue
				}
			}
			if err := j.store.Delete(entry.Name); err != nil {
				logrus.WithError(err).WithField("name", entry.Name).Warn("Failed to remove orphaned image")
				report.Failed++
				continue
			}
			logrus.WithField("name", entry.Name).Debug("Removed orphaned image")
			removed[entry.Name] = true
			report.RemovedSuperseded++
		}
	}
}

func (j *Janitor) sweepSuperseded(ctx context.Context, cutoff time.Time, removed map[string]bool, report *SweepReport) {
	names, err := j.index.Superseded(ctx, cutoff)
	if err != nil {
		logrus.WithError(err).Error("Janitor could not read superseded images")
		report.Failed++
		return
	}
	for _, name := range names {
		if ctx.Err() != nil {
			return
		}
		if !removed[name] {
			if err := j.store.Delete(name); err != nil {
				logrus.WithError(err).WithField("name", name).Warn("Failed to remove superseded image")
				report.Failed++
				continue
			}
		}
		if err := j.index.Forget(ctx, name); err != nil {
			logrus.WithError(err).WithField("name", name).Warn("Failed to forget superseded image")
			report.Failed++
			continue
		}
		if !removed[name] {
			report.RemovedSuperseded++
		}
	}
}
