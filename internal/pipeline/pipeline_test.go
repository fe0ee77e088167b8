package pipeline_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dvloznov/gastomail/internal/domain"
	"github.com/dvloznov/gastomail/internal/gmail"
	"github.com/dvloznov/gastomail/internal/parser"
	"github.com/dvloznov/gastomail/internal/pipeline"
)

// MockMessageSource implements pipeline.MessageSource for testing.
type MockMessageSource struct {
	SearchFunc func(ctx context.Context, query string, maxResults int) ([]gmail.Message, error)
}

func (m *MockMessageSource) Search(ctx context.Context, query string, maxResults int) ([]gmail.Message, error) {
	return m.SearchFunc(ctx, query, maxResults)
}

// MockArchiver implements pipeline.Archiver for testing.
type MockArchiver struct {
	StoreFunc func(ctx context.Context, msg gmail.Message) (string, error)
}

func (m *MockArchiver) Store(ctx context.Context, msg gmail.Message) (string, error) {
	return m.StoreFunc(ctx, msg)
}

// MockMovementSink implements pipeline.MovementSink for testing.
type MockMovementSink struct {
	UpsertMovementsFunc func(ctx context.Context, movements []domain.Movement) error
}

func (m *MockMovementSink) UpsertMovements(ctx context.Context, movements []domain.Movement) error {
	return m.UpsertMovementsFunc(ctx, movements)
}

func TestMailboxSyncPipeline(t *testing.T) {
	messages := []gmail.Message{
		{
			ID:      "msg-1",
			From:    "PedidosYa <no-reply@pedidosya.cl>",
			Subject: "Comprobante de Pago",
			Date:    time.Date(2026, 1, 20, 10, 30, 0, 0, time.UTC),
			Body:    "Tu pedido fue entregado. Total: $12.500 CLP",
		},
		{
			ID:      "msg-2",
			From:    "Uber Receipts <noreply@uber.com>",
			Subject: "Tu recibo de Uber",
			Date:    time.Date(2026, 1, 21, 8, 0, 0, 0, time.UTC),
			Body:    "Total cobrado: $3.500",
		},
	}

	source := &MockMessageSource{
		SearchFunc: func(ctx context.Context, query string, maxResults int) ([]gmail.Message, error) {
			if query != "from:pedidosya.cl" {
				t.Errorf("unexpected query: %q", query)
			}
			if maxResults != 50 {
				t.Errorf("unexpected maxResults: %d", maxResults)
			}
			return messages, nil
		},
	}

	archiver := &MockArchiver{
		StoreFunc: func(ctx context.Context, msg gmail.Message) (string, error) {
			return "gs://archive/raw/" + msg.ID + ".txt", nil
		},
	}

	var stored []domain.Movement
	sink := &MockMovementSink{
		UpsertMovementsFunc: func(ctx context.Context, movements []domain.Movement) error {
			stored = movements
			return nil
		},
	}

	p := pipeline.NewMailboxSyncPipeline(source, parser.New(parser.Options{}), archiver, sink)
	state := &pipeline.PipelineState{Query: "from:pedidosya.cl", MaxResults: 50}

	if err := p.Execute(context.Background(), state); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if len(stored) != 2 {
		t.Fatalf("stored %d movements, want 2", len(stored))
	}
	if stored[0].ID != "msg-1" || stored[0].Amount != 12500 || stored[0].Merchant != "PedidosYa" {
		t.Errorf("unexpected first movement: %+v", stored[0])
	}
	if stored[0].Date != "2026-01-20" {
		t.Errorf("first movement date = %q, want 2026-01-20", stored[0].Date)
	}
	if stored[1].Amount != 3500 || stored[1].Category != domain.CategoryTransporte {
		t.Errorf("unexpected second movement: %+v", stored[1])
	}

	if got := state.ArchiveURIs["msg-1"]; got != "gs://archive/raw/msg-1.txt" {
		t.Errorf("archive URI for msg-1 = %q", got)
	}
}

func TestMailboxSyncPipeline_SourceError(t *testing.T) {
	source := &MockMessageSource{
		SearchFunc: func(ctx context.Context, query string, maxResults int) ([]gmail.Message, error) {
			return nil, errors.New("mailbox unavailable")
		},
	}
	sink := &MockMovementSink{
		UpsertMovementsFunc: func(ctx context.Context, movements []domain.Movement) error {
			t.Error("sink should not be reached when fetch fails")
			return nil
		},
	}

	p := pipeline.NewMailboxSyncPipeline(source, parser.New(parser.Options{}), nil, sink)
	err := p.Execute(context.Background(), &pipeline.PipelineState{})
	if err == nil {
		t.Fatal("expected error when source fails")
	}
	if !strings.Contains(err.Error(), "step 1") {
		t.Errorf("error should name the failing step: %v", err)
	}
}

func TestMailboxSyncPipeline_ArchiveFailureDoesNotAbort(t *testing.T) {
	source := &MockMessageSource{
		SearchFunc: func(ctx context.Context, query string, maxResults int) ([]gmail.Message, error) {
			return []gmail.Message{{ID: "msg-1", From: "a@b.com", Subject: "Pago $1.000"}}, nil
		},
	}
	archiver := &MockArchiver{
		StoreFunc: func(ctx context.Context, msg gmail.Message) (string, error) {
			return "", errors.New("bucket unavailable")
		},
	}

	sinkCalled := false
	sink := &MockMovementSink{
		UpsertMovementsFunc: func(ctx context.Context, movements []domain.Movement) error {
			sinkCalled = true
			return nil
		},
	}

	p := pipeline.NewMailboxSyncPipeline(source, parser.New(parser.Options{}), archiver, sink)
	state := &pipeline.PipelineState{}
	if err := p.Execute(context.Background(), state); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !sinkCalled {
		t.Error("sink should still run after archive failures")
	}
	if len(state.ArchiveURIs) != 0 {
		t.Errorf("no archive URIs should be recorded, got %v", state.ArchiveURIs)
	}
}

func TestMailboxSyncPipeline_SinkError(t *testing.T) {
	source := &MockMessageSource{
		SearchFunc: func(ctx context.Context, query string, maxResults int) ([]gmail.Message, error) {
			return []gmail.Message{{ID: "msg-1", From: "a@b.com", Subject: "Pago $1.000"}}, nil
		},
	}
	sink := &MockMovementSink{
		UpsertMovementsFunc: func(ctx context.Context, movements []domain.Movement) error {
			return errors.New("insert failed")
		},
	}

	p := pipeline.NewMailboxSyncPipeline(source, parser.New(parser.Options{}), nil, sink)
	err := p.Execute(context.Background(), &pipeline.PipelineState{})
	if err == nil || !strings.Contains(err.Error(), "storing movements") {
		t.Fatalf("expected sink error, got: %v", err)
	}
}

func TestMailboxSyncPipeline_NoMessages(t *testing.T) {
	source := &MockMessageSource{
		SearchFunc: func(ctx context.Context, query string, maxResults int) ([]gmail.Message, error) {
			return nil, nil
		},
	}
	sink := &MockMovementSink{
		UpsertMovementsFunc: func(ctx context.Context, movements []domain.Movement) error {
			t.Error("sink should not be called with zero movements")
			return nil
		},
	}

	p := pipeline.NewMailboxSyncPipeline(source, parser.New(parser.Options{}), nil, sink)
	if err := p.Execute(context.Background(), &pipeline.PipelineState{}); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
}
