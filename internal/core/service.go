package core

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/salesdash/internal/domain"
	"github.com/JonMunkholm/salesdash/internal/logging"
)

// DefaultImportTimeout bounds one import, transaction included.
const DefaultImportTimeout = 10 * time.Minute

// historyTimeout bounds the best-effort history write.
const historyTimeout = 5 * time.Second

// ServiceOptions tunes the import service. Zero values take defaults.
type ServiceOptions struct {
	Timeout           time.Duration
	MaxWait           time.Duration
	SkippedLineSample int
}

// Service runs imports against a store, one at a time.
type Service struct {
	store   domain.Store
	history domain.ImportHistory
	limiter *ImportLimiter

	timeout time.Duration
	sample  int
}

// NewService creates an import service. history may be nil, in which case
// import runs are only logged.
func NewService(store domain.Store, history domain.ImportHistory, opts ServiceOptions) *Service {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultImportTimeout
	}
	if opts.SkippedLineSample <= 0 {
		opts.SkippedLineSample = DefaultSkippedLineSample
	}
	return &Service{
		store:   store,
		history: history,
		limiter: NewImportLimiter(1, opts.MaxWait),
		timeout: opts.Timeout,
		sample:  opts.SkippedLineSample,
	}
}

// Limiter exposes the import slot for status reporting and shutdown.
func (s *Service) Limiter() *ImportLimiter {
	return s.limiter
}

// Import reads a CSV or XLSX sheet and loads it in one transaction. The
// returned Result is never nil; Result.Outcome gives the (success, message)
// pair. A failed import leaves storage exactly as it was.
func (s *Service) Import(ctx context.Context, fileName string, r io.Reader) (res *Result) {
	start := time.Now()
	res = &Result{RunID: uuid.NewString(), FileName: fileName}
	logger := logging.WithFields(ctx, "run_id", res.RunID, "file", fileName)

	if err := s.limiter.Acquire(ctx); err != nil {
		// Rejected before touching storage; nothing to record.
		s.finish(logger, res, start, err)
		return res
	}
	defer s.limiter.Release()

	defer func() {
		if p := recover(); p != nil {
			logger.Error("panic in import", "panic", p)
			s.finish(logger, res, start, fmt.Errorf("internal error: %v", p))
			s.record(ctx, logger, res)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	logger.Info("import started")

	err := s.run(ctx, fileName, r, res)
	s.finish(logger, res, start, err)
	s.record(ctx, logger, res)
	return res
}

func (s *Service) run(ctx context.Context, fileName string, r io.Reader, res *Result) error {
	sheet, err := ReadSheet(fileName, r)
	if err != nil {
		return err
	}
	res.RowsRead = len(sheet.Rows)

	records, err := DecodeSheet(sheet)
	if err != nil {
		return err
	}

	stats, err := s.Load(ctx, records)
	if err != nil {
		return err
	}
	res.LoadStats = stats
	return nil
}

// Load resolves dimensions and writes facts for already-decoded records
// inside one transaction. Any error rolls the whole batch back.
func (s *Service) Load(ctx context.Context, records []Record) (LoadStats, error) {
	var stats LoadStats
	err := s.store.InTx(ctx, func(tx domain.Tx) error {
		dims, err := ResolveDimensions(ctx, tx, records)
		if err != nil {
			return err
		}
		stats, err = LoadFacts(ctx, tx, dims, records, s.sample)
		return err
	})
	if err != nil {
		return LoadStats{}, err
	}
	return stats, nil
}

func (s *Service) finish(logger *slog.Logger, res *Result, start time.Time, err error) {
	res.Duration = time.Since(start)

	if err != nil {
		res.Success = false
		res.Err = err
		res.UserError = NewUserError(err)
		res.LoadStats = LoadStats{}
		res.Message = fmt.Sprintf("import failed: %v", err)
		logger.Error("import failed",
			"error", err,
			"code", res.UserError.User.Code,
			"rows_read", res.RowsRead,
			"duration_ms", res.Duration.Milliseconds(),
		)
		return
	}

	res.Success = true
	res.Message = successMessage(res.LoadStats)
	if res.RowsSkipped > 0 {
		logger.Warn("rows skipped for unresolved references",
			"rows_skipped", res.RowsSkipped,
			"by_reason", res.SkippedBy,
			"lines", res.SkippedLines,
		)
	}
	logger.Info("import completed",
		"rows_read", res.RowsRead,
		"details_inserted", res.DetailsInserted,
		"orders", res.Orders,
		"duration_ms", res.Duration.Milliseconds(),
	)
}

// record appends the run to the import history. Failures are logged only:
// history must never change an import's outcome.
func (s *Service) record(ctx context.Context, logger *slog.Logger, res *Result) {
	if s.history == nil {
		return
	}

	status := domain.ImportSucceeded
	if !res.Success {
		status = domain.ImportFailed
	}

	// The import context may already be cancelled or timed out.
	hctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), historyTimeout)
	defer cancel()

	err := s.history.RecordImport(hctx, domain.ImportRun{
		ID:              res.RunID,
		FileName:        res.FileName,
		Status:          status,
		RowsRead:        res.RowsRead,
		DetailsInserted: res.DetailsInserted,
		RowsSkipped:     res.RowsSkipped,
		Message:         res.Message,
		RemoteAddr:      IPAddressFromContext(ctx),
		Duration:        res.Duration,
		CreatedAt:       time.Now().UTC(),
	})
	if err != nil {
		logger.Error("failed to record import run", "error", err)
	}
}

// RecentImports lists the latest import runs, newest first.
func (s *Service) RecentImports(ctx context.Context, limit int) ([]domain.ImportRun, error) {
	if s.history == nil {
		return nil, nil
	}
	return s.history.ListImports(ctx, limit)
}

// Counts returns committed row counts per entity table.
func (s *Service) Counts(ctx context.Context) (domain.Counts, error) {
	return s.store.Counts(ctx)
}
