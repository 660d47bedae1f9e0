package core

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"punchexport.com/punchexport/punch/model"
)

// Destination receives rendered documents for one warehouse.
type Destination interface {
	Put(ctx context.Context, name string, data []byte) error
}

type DestinationLookup interface {
	Lookup(warehouse string) (Destination, bool)
}

type Notifier interface {
	Info(message string) error
	Error(message string) error
}

type PipelineOptions struct {
	BatchSize         int
	CorrelationWindow time.Duration
	ShiftMaxGap       time.Duration
	OutputFileFormat  string
	Workers           int
	Build             BuildOptions
}

func DefaultPipelineOptions() PipelineOptions {
	return PipelineOptions{
		BatchSize:         DefaultBatchSize,
		CorrelationWindow: 14 * time.Hour,
		ShiftMaxGap:       DefaultShiftMaxGap,
		OutputFileFormat:  "TAS_{warehouse}_{timestamp}_{batch}.xml",
		Workers:           4,
		Build:             DefaultBuildOptions(),
	}
}

type DocumentResult struct {
	Warehouse    string `json:"warehouse"`
	FileName     string `json:"fileName,omitempty"`
	Transactions int    `json:"transactions"`
	Delivered    bool   `json:"delivered"`
	Skipped      string `json:"skipped,omitempty"`
	Error        string `json:"error,omitempty"`
	Data         []byte `json:"-"`
}

type RunReport struct {
	RunID        string           `json:"runId"`
	BatchID      int64            `json:"batchId"`
	Ingest       *IngestStats     `json:"ingest"`
	Correlated   int              `json:"correlated"`
	Unresolved   int              `json:"unresolved"`
	Groups       int              `json:"groups"`
	FailedGroups int              `json:"failedGroups"`
	Documents    []DocumentResult `json:"documents"`
}

// Pipeline runs ingest, correlation, grouping, reconciliation and export for
// one source file. It holds no state between runs.
type Pipeline struct {
	opts         PipelineOptions
	db           *gorm.DB
	staging      *StagingStore
	correlator   *Correlator
	locations    *LocationResolver
	builder      *DocumentBuilder
	destinations DestinationLookup
	notifier     Notifier
	log          logrus.FieldLogger
	now          func() time.Time
}

func NewPipeline(opts PipelineOptions, db *gorm.DB, destinations DestinationLookup, notifier Notifier, log logrus.FieldLogger) *Pipeline {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &Pipeline{
		opts:         opts,
		db:           db,
		staging:      NewStagingStore(db, log),
		correlator:   NewCorrelator(db, log),
		locations:    NewLocationResolver(db, log),
		builder:      NewDocumentBuilder(opts.Build, log),
		destinations: destinations,
		notifier:     notifier,
		log:          log,
		now:          time.Now,
	}
}

// Run stages src and exports the affected shifts. Only a staging failure is
// returned as an error.
func (p *Pipeline) Run(ctx context.Context, source string, src io.Reader) (*RunReport, error) {
	startedAt := p.now()
	report := &RunReport{RunID: uuid.NewString()}
	log := p.log.WithFields(logrus.Fields{"run_id": report.RunID, "source": source})
	log.Info("run started")

	stats, err := p.staging.Ingest(ctx, src, p.opts.BatchSize)
	if err != nil {
		if stats != nil {
			report.BatchID = stats.BatchID
		}
		p.recordRun(ctx, source, report, startedAt, err)
		p.notify(true, fmt.Sprintf("punch export %s failed for %s: %v", report.RunID, source, err))
		return report, fmt.Errorf("failed to stage %s: %w", source, err)
	}
	report.Ingest = stats
	report.BatchID = stats.BatchID

	if err := p.export(ctx, report, log.WithField("batch_id", report.BatchID)); err != nil {
		log.WithError(err).Error("export failed")
		p.recordRun(ctx, source, report, startedAt, err)
		p.notify(true, fmt.Sprintf("punch export %s failed for %s: %v", report.RunID, source, err))
		return report, err
	}

	p.recordRun(ctx, source, report, startedAt, nil)
	p.notify(false, summary(source, report))
	log.Info("run finished")
	return report, nil
}

func (p *Pipeline) export(ctx context.Context, report *RunReport, log logrus.FieldLogger) error {
	if err := p.locations.Load(ctx); err != nil {
		return err
	}
	records, err := p.correlator.Window(ctx, p.opts.CorrelationWindow)
	if err != nil {
		return err
	}
	report.Correlated = len(records)

	punches, punchStats := ToPunches(records, p.locations, log)
	report.Unresolved = punchStats.Unresolved

	groups := GroupShifts(punches, p.opts.ShiftMaxGap)
	report.Groups = len(groups)

	byWarehouse := map[string][]SubGroup{}
	for _, group := range groups {
		subgroups, err := Reconcile(group)
		if err != nil {
			report.FailedGroups++
			log.WithFields(logrus.Fields{
				"employee":    group.Key.EmployeeExternalID,
				"group_start": group.Key.Start,
			}).WithError(err).Error("reconciliation failed, group skipped")
			continue
		}
		for _, sg := range subgroups {
			byWarehouse[sg.WarehouseID()] = append(byWarehouse[sg.WarehouseID()], sg)
		}
	}

	warehouses := make([]string, 0, len(byWarehouse))
	for wh := range byWarehouse {
		warehouses = append(warehouses, wh)
	}
	sort.Strings(warehouses)

	ts := p.now()
	results := make([]DocumentResult, len(warehouses))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Workers)
	for i, wh := range warehouses {
		g.Go(func() error {
			results[i] = p.exportWarehouse(gctx, wh, report.BatchID, ts, byWarehouse[wh], log)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	report.Documents = results
	return nil
}

func (p *Pipeline) exportWarehouse(ctx context.Context, warehouse string, batchID int64, ts time.Time, groups []SubGroup, log logrus.FieldLogger) DocumentResult {
	result := DocumentResult{Warehouse: warehouse}
	log = log.WithField("warehouse", warehouse)

	dest, ok := p.destinations.Lookup(warehouse)
	if !ok {
		result.Skipped = ErrNoDestination.Error()
		log.WithField("reason", result.Skipped).Warn("document skipped")
		return result
	}

	doc := p.builder.Build(warehouse, batchID, groups)
	result.Transactions = doc.Transactions()
	if result.Transactions == 0 {
		result.Skipped = "no transactions"
		log.WithField("reason", result.Skipped).Info("document skipped")
		return result
	}

	data, err := doc.Encode()
	if err != nil {
		result.Error = err.Error()
		log.WithError(err).Error("document encoding failed")
		return result
	}
	result.Data = data
	result.FileName = FileName(p.opts.OutputFileFormat, warehouse, ts, batchID)

	if err := dest.Put(ctx, result.FileName, data); err != nil {
		result.Error = err.Error()
		log.WithField("file", result.FileName).WithError(err).Error("document delivery failed")
		return result
	}
	result.Delivered = true
	log.WithFields(logrus.Fields{"file": result.FileName, "transactions": result.Transactions}).Info("document delivered")
	return result
}

func (p *Pipeline) recordRun(ctx context.Context, source string, report *RunReport, startedAt time.Time, runErr error) {
	finishedAt := p.now()
	run := model.ExportRun{
		ID:           report.RunID,
		BatchID:      report.BatchID,
		Source:       source,
		Status:       model.RunStatusCompleted,
		Correlated:   report.Correlated,
		Unresolved:   report.Unresolved,
		FailedGroups: report.FailedGroups,
		StartedAt:    startedAt,
		FinishedAt:   &finishedAt,
	}
	if runErr != nil {
		run.Status = model.RunStatusFailed
		run.Error = runErr.Error()
	}
	if report.Ingest != nil {
		run.Inserted = report.Ingest.Inserted
		run.Duplicates = report.Ingest.Duplicates
		run.Skipped = report.Ingest.SkippedCount()
	}
	for _, doc := range report.Documents {
		if doc.Skipped != "" {
			continue
		}
		run.Documents = append(run.Documents, model.ExportDocument{
			ID:           uuid.NewString(),
			RunID:        report.RunID,
			WarehouseID:  doc.Warehouse,
			FileName:     doc.FileName,
			Transactions: doc.Transactions,
			Delivered:    doc.Delivered,
			Error:        doc.Error,
			CreatedAt:    finishedAt,
		})
	}

	if err := p.db.WithContext(ctx).Create(&run).Error; err != nil {
		p.log.WithField("run_id", report.RunID).WithError(err).Error("failed to record export run")
	}
}

func (p *Pipeline) notify(failed bool, message string) {
	if p.notifier == nil {
		return
	}
	send := p.notifier.Info
	if failed {
		send = p.notifier.Error
	}
	if err := send(message); err != nil {
		p.log.WithError(err).Warn("notification failed")
	}
}

func summary(source string, report *RunReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "punch export %s (batch %d) for %s\n", report.RunID, report.BatchID, source)
	if report.Ingest != nil {
		fmt.Fprintf(&b, "inserted %d, duplicates %d, skipped %d\n",
			report.Ingest.Inserted, report.Ingest.Duplicates, report.Ingest.SkippedCount())
	}
	fmt.Fprintf(&b, "correlated %d, unresolved %d, groups %d, failed groups %d\n",
		report.Correlated, report.Unresolved, report.Groups, report.FailedGroups)
	for _, doc := range report.Documents {
		switch {
		case doc.Skipped != "":
			fmt.Fprintf(&b, "%s: skipped (%s)\n", doc.Warehouse, doc.Skipped)
		case doc.Error != "":
			fmt.Fprintf(&b, "%s: failed (%s)\n", doc.Warehouse, doc.Error)
		default:
			fmt.Fprintf(&b, "%s: %s, %d transactions\n", doc.Warehouse, doc.FileName, doc.Transactions)
		}
	}
	return b.String()
}
