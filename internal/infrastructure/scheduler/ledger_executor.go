package scheduler

import (
	"context"
	"fmt"
	"time"

	appledger "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Repairer fixes receipts with missing lines or stale balances
type Repairer interface {
	RepairAll(ctx context.Context, filter ledger.ReceiptFilter) (*appledger.RepairSummary, error)
}

// OverdueRefresher persists the Overdue status of past due receipts
type OverdueRefresher interface {
	RefreshOverdue(ctx context.Context, asOf time.Time) (int, error)
}

// CashCutArchiver renders and stores a cash cut
type CashCutArchiver interface {
	ArchiveCashCut(ctx context.Context, start, end time.Time) (*appledger.CashCutArchive, error)
}

// LedgerExecutor dispatches maintenance jobs to the ledger services. A nil
// collaborator disables its job type.
type LedgerExecutor struct {
	repairer  Repairer
	refresher OverdueRefresher
	archiver  CashCutArchiver
	logger    *zap.Logger
}

// NewLedgerExecutor creates a new executor
func NewLedgerExecutor(repairer Repairer, refresher OverdueRefresher, archiver CashCutArchiver, logger *zap.Logger) *LedgerExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerExecutor{
		repairer:  repairer,
		refresher: refresher,
		archiver:  archiver,
		logger:    logger,
	}
}

var jobOperations = map[JobType]string{
	JobTypeRepair:         telemetry.OperationRepairReceipts,
	JobTypeOverdueRefresh: telemetry.OperationRefreshOverdue,
	JobTypeCashCutArchive: telemetry.OperationCashCut,
}

// Execute runs job under the profile labels of its operation
func (e *LedgerExecutor) Execute(ctx context.Context, job *Job) (result string, err error) {
	labels := telemetry.OperationLabels(jobOperations[job.Type], map[string]string{
		telemetry.ProfilingLabelJob: string(job.Type),
	})
	telemetry.WithProfilingLabels(ctx, labels, func(ctx context.Context) {
		result, err = e.execute(ctx, job)
	})
	return result, err
}

func (e *LedgerExecutor) execute(ctx context.Context, job *Job) (string, error) {
	switch job.Type {
	case JobTypeRepair:
		if e.repairer == nil {
			return "", ErrJobDisabled
		}
		summary, err := e.repairer.RepairAll(ctx, ledger.ReceiptFilter{})
		if err != nil {
			return "", err
		}
		// Per-receipt failures are already logged; the run itself succeeded.
		return fmt.Sprintf("repaired=%d failed=%d", summary.Repaired, summary.Failed), nil

	case JobTypeOverdueRefresh:
		if e.refresher == nil {
			return "", ErrJobDisabled
		}
		updated, err := e.refresher.RefreshOverdue(ctx, job.AsOf)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("updated=%d", updated), nil

	case JobTypeCashCutArchive:
		if e.archiver == nil {
			return "", ErrJobDisabled
		}
		archive, err := e.archiver.ArchiveCashCut(ctx, job.PeriodStart, job.PeriodEnd)
		if err != nil {
			return "", err
		}
		e.logger.Info("Daily cash cut archived",
			zap.String("location", archive.Location),
			zap.Time("start", archive.Start),
			zap.Time("end", archive.End),
		)
		return archive.Location, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownJobType, job.Type)
}

var _ JobExecutor = (*LedgerExecutor)(nil)
