package ops

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AO-5002/piecewall/internal/errors"
	"github.com/AO-5002/piecewall/internal/grid"
	"github.com/AO-5002/piecewall/internal/piece"
)

var tracer = otel.Tracer("piecewall.ops")

// ConsolidateInput contains parameters for the Consolidate operation.
type ConsolidateInput struct {
	Room string // required
}

// ConsolidateOutput contains the result of the Consolidate operation.
type ConsolidateOutput struct {
	Room               string      `json:"room"`
	Piece              piece.Piece `json:"piece"`
	OriginalPieceCount int         `json:"original_piece_count"`
	Version            int64       `json:"version"`
}

// Consolidate merges every regular piece of a room into one consolidated piece.
//
// The regular pieces are snapshotted together with the cells they occupy, the
// snapshot texts are summarized, and the result is merged into the list as it
// is at write time: snapshot pieces are removed, everything else (including
// pieces added while the summarizer ran) is kept, and the new piece is
// appended. On any failure the room is left untouched. Only one consolidation
// runs per room; a second call fails with CONSOLIDATION_IN_PROGRESS.
func (s *Service) Consolidate(ctx context.Context, input ConsolidateInput) (out *ConsolidateOutput, err error) {
	room, err := roomName(input.Room)
	if err != nil {
		return nil, err
	}
	if !s.claim(room) {
		consolidationsTotal.WithLabelValues("in_progress").Inc()
		return nil, errors.NewConsolidationInProgress(room)
	}

	start := time.Now()
	ctx, span := tracer.Start(ctx, "ops.Consolidate",
		trace.WithAttributes(attribute.String("room", room)),
	)
	defer span.End()

	defer func() {
		consolidationDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			pErr := errors.As(err)
			s.release(room, pErr.Message)
			consolidationsTotal.WithLabelValues(strings.ToLower(string(pErr.Code))).Inc()
			span.RecordError(err)
			span.SetStatus(codes.Error, pErr.Message)
			s.logger.Warn("consolidation failed", "room", room, "code", pErr.Code, "error", pErr.Message)
			return
		}
		s.release(room, "")
		consolidationsTotal.WithLabelValues("ok").Inc()
		span.SetStatus(codes.Ok, "")
	}()

	snap, err := s.storage.Load(ctx, room)
	if err != nil {
		return nil, err
	}
	all := piece.CloneList(snap.Pieces)
	sources := piece.Regular(all)
	if len(sources) == 0 {
		return nil, errors.NewNothingToConsolidate("nothing to consolidate: the wall has no regular pieces")
	}

	texts := make([]string, 0, len(sources))
	for _, p := range sources {
		if !piece.IsBlank(p.Text) {
			texts = append(texts, p.Text)
		}
	}
	if len(texts) == 0 {
		return nil, errors.NewNothingToConsolidate("no text content found in pieces")
	}

	// Cells are taken from the snapshot so they match what was on screen
	cellsByID := grid.CellsFor(all)
	cells := make([]piece.Cell, 0, len(sources))
	sourceIDs := make([]string, 0, len(sources))
	color := ""
	for _, p := range sources {
		cells = append(cells, cellsByID[p.ID])
		sourceIDs = append(sourceIDs, p.ID)
		if color == "" && p.Color != "" {
			color = p.Color
		}
	}
	if color == "" {
		color = piece.ConsolidatedFallbackColor
	}
	span.SetAttributes(
		attribute.Int("sources", len(sources)),
		attribute.Int("texts", len(texts)),
		attribute.Int64("snapshot_version", snap.Version),
	)

	summary, err := s.summarize(ctx, texts)
	if err != nil {
		return nil, err
	}

	id, err := s.newID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	merged := piece.Piece{
		ID:            id,
		Kind:          piece.KindConsolidated,
		Color:         color,
		Text:          summary,
		OccupiedCells: cells,
		SourceIDs:     sourceIDs,
	}

	absorbed := make(map[string]bool, len(sourceIDs))
	for _, sid := range sourceIDs {
		absorbed[sid] = true
	}

	res, err := s.mutate(ctx, "consolidate", room, func(current []piece.Piece) ([]piece.Piece, bool, error) {
		if hit := grid.Occupied(current).Overlaps(cells); len(hit) > 0 {
			return nil, false, errors.NewConflict(
				fmt.Sprintf("cells %v were claimed by another consolidation while summarizing", hit))
		}
		next := make([]piece.Piece, 0, len(current)+1)
		for _, p := range current {
			if !absorbed[p.ID] {
				next = append(next, p)
			}
		}
		return append(next, merged), true, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("consolidated room", "room", room, "sources", len(sources), "version", res.Version)
	return &ConsolidateOutput{
		Room:               room,
		Piece:              merged,
		OriginalPieceCount: len(sources),
		Version:            res.Version,
	}, nil
}

// summarize calls the configured backend under the configured timeout.
func (s *Service) summarize(ctx context.Context, texts []string) (string, error) {
	if s.summarizer == nil {
		return "", errors.NewSummarizerFailed(fmt.Errorf("no summarizer configured"))
	}

	callCtx := ctx
	if secs := s.cfg.SummarizeTimeoutSeconds; secs > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, time.Duration(secs)*time.Second)
		defer cancel()
	}

	summary, err := s.summarizer.Summarize(callCtx, texts)
	if err != nil {
		if ctx.Err() != nil {
			return "", errors.NewCancelled("consolidate")
		}
		return "", errors.NewSummarizerFailed(err)
	}
	if piece.IsBlank(summary) {
		return "", errors.NewSummarizerFailed(fmt.Errorf("summarizer returned an empty summary"))
	}
	return strings.TrimSpace(summary), nil
}
