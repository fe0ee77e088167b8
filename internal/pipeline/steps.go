package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/dvloznov/gastomail/internal/domain"
	"github.com/dvloznov/gastomail/internal/gmail"
	"github.com/dvloznov/gastomail/internal/logger"
)

// PipelineStep represents a single step in the mailbox sync pipeline.
type PipelineStep interface {
	Execute(ctx context.Context, state *PipelineState) error
}

// PipelineState holds the shared state across all pipeline steps.
type PipelineState struct {
	Query      string
	MaxResults int

	Messages  []gmail.Message
	Movements []domain.Movement

	// ArchiveURIs maps message IDs to the storage URI of their raw body.
	ArchiveURIs map[string]string
}

// Step 1: FetchMessagesStep retrieves matching messages from the mailbox.
type FetchMessagesStep struct {
	Source MessageSource
}

func (s *FetchMessagesStep) Execute(ctx context.Context, state *PipelineState) error {
	messages, err := s.Source.Search(ctx, state.Query, state.MaxResults)
	if err != nil {
		return fmt.Errorf("fetching messages: %w", err)
	}
	state.Messages = messages

	log := logger.FromContext(ctx)
	log.Info().
		Int("count", len(messages)).
		Str("query", state.Query).
		Msg("fetched mailbox messages")
	return nil
}

// Step 2: ParseMovementsStep extracts a movement from every fetched message.
// Extraction never fails for a single message; low-signal messages come out
// with sentinel values and a low confidence score.
type ParseMovementsStep struct {
	Extractor MovementExtractor
}

func (s *ParseMovementsStep) Execute(ctx context.Context, state *PipelineState) error {
	movements := make([]domain.Movement, 0, len(state.Messages))
	for _, msg := range state.Messages {
		body := msg.Body
		if body == "" {
			body = msg.Snippet
		}
		date := ""
		if !msg.Date.IsZero() {
			date = msg.Date.Format(time.RFC3339)
		}
		movements = append(movements, s.Extractor.Parse(msg.ID, msg.Subject, body, msg.From, date))
	}
	state.Movements = movements

	log := logger.FromContext(ctx)
	log.Info().
		Int("count", len(movements)).
		Msg("extracted movements")
	return nil
}

// Step 3: ArchiveRawStep stores the raw body of each message in GCS.
// Archive failures are logged and skipped; losing a raw copy should not
// abort the sync.
type ArchiveRawStep struct {
	Archiver Archiver
}

func (s *ArchiveRawStep) Execute(ctx context.Context, state *PipelineState) error {
	if state.ArchiveURIs == nil {
		state.ArchiveURIs = make(map[string]string, len(state.Messages))
	}
	log := logger.FromContext(ctx)

	for _, msg := range state.Messages {
		uri, err := s.Archiver.Store(ctx, msg)
		if err != nil {
			log.Warn().Err(err).Str("message_id", msg.ID).Msg("failed to archive raw message")
			continue
		}
		state.ArchiveURIs[msg.ID] = uri
	}
	return nil
}

// Step 4: StoreMovementsStep upserts the extracted movements into storage.
type StoreMovementsStep struct {
	Sink MovementSink
}

func (s *StoreMovementsStep) Execute(ctx context.Context, state *PipelineState) error {
	if len(state.Movements) == 0 {
		return nil
	}
	if err := s.Sink.UpsertMovements(ctx, state.Movements); err != nil {
		return fmt.Errorf("storing movements: %w", err)
	}

	log := logger.FromContext(ctx)
	log.Info().
		Int("count", len(state.Movements)).
		Msg("stored movements")
	return nil
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []PipelineStep
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps in the pipeline sequentially.
func (p *Pipeline) Execute(ctx context.Context, state *PipelineState) error {
	for i, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d failed: %w", i+1, err)
		}
	}
	return nil
}

// NewMailboxSyncPipeline creates the standard pipeline for syncing a mailbox:
// fetch messages, extract movements, archive raw bodies, store movements.
// archiver may be nil, in which case the archive step is skipped.
func NewMailboxSyncPipeline(source MessageSource, extractor MovementExtractor, archiver Archiver, sink MovementSink) *Pipeline {
	steps := []PipelineStep{
		&FetchMessagesStep{Source: source},
		&ParseMovementsStep{Extractor: extractor},
	}
	if archiver != nil {
		steps = append(steps, &ArchiveRawStep{Archiver: archiver})
	}
	steps = append(steps, &StoreMovementsStep{Sink: sink})
	return NewPipeline(steps...)
}
