package services

import (
	"context"
	"crowned-trader/interfaces"
	"crowned-trader/models"
	"crowned-trader/selector"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// SelectionStore persists selection outcomes
type SelectionStore interface {
	SaveSelection(selection *models.DBSelection) error
}

// Notifier delivers selection outcomes to subscribers
type Notifier interface {
	NotifySelection(result *SelectionResult) error
}

// SelectionResult is the outcome of evaluating one signal
type SelectionResult struct {
	ID          string                     `json:"id"`
	Signal      interfaces.Signal          `json:"signal"`
	Status      string                     `json:"status"`
	Contract    *selector.SelectedContract `json:"contract,omitempty"`
	Failure     *selector.SelectionFailure `json:"failure,omitempty"`
	Error       string                     `json:"error,omitempty"`
	EvaluatedAt time.Time                  `json:"evaluated_at"`
	Err         error                      `json:"-"`
}

// ContractServiceConfig tunes a ContractService
type ContractServiceConfig struct {
	FetchTimeout     time.Duration
	BatchConcurrency int
}

// ContractService turns signals into option contracts: it fetches a fresh
// chain, runs the selection pipeline, then records the outcome.
type ContractService struct {
	provider interfaces.ChainProvider
	pipeline *selector.Pipeline
	store    SelectionStore
	journal  *SelectionJournal
	notifier Notifier
	config   ContractServiceConfig
	logger   *logrus.Logger
	now      func() time.Time
}

// NewContractService creates a contract service. store, journal and notifier may be nil.
func NewContractService(
	provider interfaces.ChainProvider,
	pipeline *selector.Pipeline,
	store SelectionStore,
	journal *SelectionJournal,
	notifier Notifier,
	config ContractServiceConfig,
) *ContractService {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	if config.FetchTimeout <= 0 {
		config.FetchTimeout = 15 * time.Second
	}
	if config.BatchConcurrency <= 0 {
		config.BatchConcurrency = 4
	}

	return &ContractService{
		provider: provider,
		pipeline: pipeline,
		store:    store,
		journal:  journal,
		notifier: notifier,
		config:   config,
		logger:   logger,
		now:      time.Now,
	}
}

// SetLogLevel adjusts the service's log level
func (cs *ContractService) SetLogLevel(level logrus.Level) {
	cs.logger.SetLevel(level)
}

// SelectForSignal evaluates one signal against a freshly fetched chain.
// The result is always returned; the error is non-nil when no contract was selected.
func (cs *ContractService) SelectForSignal(ctx context.Context, signal interfaces.Signal) (*SelectionResult, error) {
	result := &SelectionResult{
		ID:          uuid.New().String(),
		Signal:      signal,
		EvaluatedAt: cs.now().UTC(),
	}

	contract, err := cs.evaluate(ctx, signal, result.EvaluatedAt)
	var failure *selector.SelectionFailure
	switch {
	case err == nil:
		result.Status = models.SelectionStatusSelected
		result.Contract = contract
	case errors.As(err, &failure):
		result.Status = models.SelectionStatusFailed
		result.Failure = failure
	default:
		result.Status = models.SelectionStatusError
	}
	if err != nil {
		result.Err = err
		result.Error = err.Error()
	}

	cs.logResult(result)
	cs.record(result)
	return result, err
}

func (cs *ContractService) evaluate(ctx context.Context, signal interfaces.Signal, asOf time.Time) (*selector.SelectedContract, error) {
	if err := signal.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", selector.ErrInvalidSignal, err)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, cs.config.FetchTimeout)
	defer cancel()

	chain, err := cs.provider.FetchChain(fetchCtx, signal.Underlying, asOf)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch %s chain: %w", selector.ErrProvider, signal.Underlying, err)
	}

	return cs.pipeline.Select(signal, chain)
}

// SelectBatch evaluates signals concurrently. Each signal fetches its own
// chain and one failure does not affect the others; results keep input order.
func (cs *ContractService) SelectBatch(ctx context.Context, signals []interfaces.Signal) []*SelectionResult {
	results := make([]*SelectionResult, len(signals))

	var g errgroup.Group
	g.SetLimit(cs.config.BatchConcurrency)
	for i, sig := range signals {
		g.Go(func() error {
			results[i], _ = cs.SelectForSignal(ctx, sig)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (cs *ContractService) logResult(r *SelectionResult) {
	fields := logrus.Fields{
		"selection_id": r.ID,
		"underlying":   r.Signal.Underlying,
		"direction":    r.Signal.Direction,
		"strategy":     r.Signal.Strategy,
	}
	switch r.Status {
	case models.SelectionStatusSelected:
		fields["contract"] = r.Contract.Quote.Symbol
		fields["dte"] = r.Contract.DTE
		fields["delta"] = r.Contract.Quote.Delta
		fields["attempts"] = r.Contract.Attempts
		cs.logger.WithFields(fields).Info("Contract selected")
	case models.SelectionStatusFailed:
		fields["category"] = r.Failure.Category
		fields["attempts"] = r.Failure.Attempted
		cs.logger.WithFields(fields).WithError(r.Err).Warn("No contract selected")
	default:
		cs.logger.WithFields(fields).WithError(r.Err).Error("Selection failed")
	}
}

// record persists, journals and notifies; errors here never change the outcome
func (cs *ContractService) record(r *SelectionResult) {
	if cs.store != nil {
		if err := cs.store.SaveSelection(toDBSelection(r)); err != nil {
			cs.logger.WithError(err).WithField("selection_id", r.ID).Error("Failed to persist selection")
		}
	}
	if cs.journal != nil {
		if err := cs.journal.Record(toJournalEntry(r)); err != nil {
			cs.logger.WithError(err).WithField("selection_id", r.ID).Error("Failed to journal selection")
		}
	}
	if cs.notifier != nil && r.Status != models.SelectionStatusError {
		if err := cs.notifier.NotifySelection(r); err != nil {
			cs.logger.WithError(err).WithField("selection_id", r.ID).Warn("Failed to send notification")
		}
	}
}

func toDBSelection(r *SelectionResult) *models.DBSelection {
	rec := &models.DBSelection{
		SelectionID: r.ID,
		Underlying:  r.Signal.Underlying,
		Direction:   string(r.Signal.Direction),
		Strategy:    string(r.Signal.Strategy),
		Status:      r.Status,
		EvaluatedAt: r.EvaluatedAt,
	}
	if c := r.Contract; c != nil {
		exp := c.Expiration
		rec.ContractSymbol = c.Quote.Symbol
		rec.Side = string(c.Side)
		rec.Strike = c.Quote.Strike.String()
		rec.Expiration = &exp
		rec.DTE = c.DTE
		rec.Delta = c.Quote.Delta
		rec.Bid = c.Quote.Bid.String()
		rec.Ask = c.Quote.Ask.String()
		rec.OpenInterest = c.Quote.OpenInterest
		rec.SpotPrice = c.SpotPrice.String()
		rec.BiasRelaxed = c.BiasRelaxed
		rec.Attempts = c.Attempts
	}
	if f := r.Failure; f != nil {
		rec.FailureCategory = string(f.Category)
		rec.Attempts = f.Attempted
		if data, err := json.Marshal(f.Eliminated); err == nil {
			rec.Eliminated = string(data)
		}
	}
	if r.Err != nil {
		rec.FailureReason = r.Err.Error()
	}
	return rec
}

func toJournalEntry(r *SelectionResult) JournalEntry {
	e := JournalEntry{
		Timestamp:   r.EvaluatedAt,
		SelectionID: r.ID,
		Underlying:  r.Signal.Underlying,
		Direction:   string(r.Signal.Direction),
		Strategy:    string(r.Signal.Strategy),
		Status:      r.Status,
		Reason:      r.Error,
	}
	if r.Contract != nil {
		e.Contract = r.Contract.Quote.Symbol
		e.DTE = r.Contract.DTE
	}
	if r.Failure != nil {
		e.Category = string(r.Failure.Category)
	}
	return e
}
