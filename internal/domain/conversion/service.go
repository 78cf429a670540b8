package conversion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sqlconv/sqlconv/internal/platform/auth"
	"github.com/sqlconv/sqlconv/internal/platform/sqlexpr"
)

// Function describes one supported SQL function.
type Function struct {
	Name  string `json:"name"`
	Arity int    `json:"arity"`
}

// Observer is told about every conversion. code is empty on success.
type Observer interface {
	ObserveConversion(code string, leaves int)
}

type Service struct {
	conv     *sqlexpr.Converter
	repo     RecordRepository
	observer Observer
	logger   zerolog.Logger
}

// NewService wires the converter to an optional history store. A nil repo
// disables history.
func NewService(conv *sqlexpr.Converter, repo RecordRepository, logger zerolog.Logger) *Service {
	return &Service{conv: conv, repo: repo, logger: logger.With().Str("component", "conversion").Logger()}
}

// SetObserver registers o to receive conversion outcomes.
func (s *Service) SetObserver(o Observer) { s.observer = o }

func (s *Service) HistoryEnabled() bool { return s.repo != nil }

// Convert converts expr and records the outcome. Expression errors are
// returned unchanged so callers can match them with errors.Is and
// sqlexpr.ErrInvalidExpression. A failure to write history is logged and
// does not fail the conversion.
func (s *Service) Convert(ctx context.Context, expr string) (*sqlexpr.Group, error) {
	group, err := s.conv.Convert(expr)

	rec := &Record{Expression: expr, UserID: auth.UserIDFromContext(ctx)}
	if err != nil {
		var exprErr *sqlexpr.ExpressionError
		if !errors.As(err, &exprErr) {
			return nil, fmt.Errorf("convert expression: %w", err)
		}
		rec.ErrorCode = string(exprErr.Code)
		rec.ErrorMessage = exprErr.Message
		s.logger.Warn().
			Str("code", rec.ErrorCode).
			Str("expression", expr).
			Msg("expression rejected")
	} else if group != nil {
		rec.LeafCount = sqlexpr.LeafCount(group)
		if rec.Result, err = json.Marshal(group); err != nil {
			return nil, fmt.Errorf("encode result: %w", err)
		}
		s.logger.Debug().
			Int("leaves", rec.LeafCount).
			Str("root_operator", string(group.LogicalOperator)).
			Msg("expression converted")
	}

	if s.observer != nil {
		s.observer.ObserveConversion(rec.ErrorCode, rec.LeafCount)
	}
	s.record(ctx, rec)

	if rec.ErrorCode != "" {
		return nil, err
	}
	return group, nil
}

func (s *Service) record(ctx context.Context, rec *Record) {
	if s.repo == nil {
		return
	}
	// Recorded even when the client has already gone away.
	if err := s.repo.Create(context.WithoutCancel(ctx), rec); err != nil {
		s.logger.Error().Err(err).Msg("record conversion history")
	}
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Record, error) {
	if s.repo == nil {
		return nil, ErrNotFound
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Record, int, error) {
	if s.repo == nil {
		return []*Record{}, 0, nil
	}
	return s.repo.List(ctx, filter, limit, offset)
}

// Functions lists the converter's functions sorted by name.
func (s *Service) Functions() []Function {
	table := s.conv.Functions()
	names := table.Names()
	out := make([]Function, 0, len(names))
	for _, name := range names {
		arity, _ := table.Arity(name)
		out = append(out, Function{Name: name, Arity: arity})
	}
	return out
}
