package pipeline

import (
	"context"

	"github.com/dvloznov/gastomail/internal/domain"
	"github.com/dvloznov/gastomail/internal/gmail"
)

// MessageSource is an interface for fetching messages from a mailbox.
// This abstraction enables mocking the Gmail client in tests.
type MessageSource interface {
	// Search returns up to maxResults messages matching the query.
	Search(ctx context.Context, query string, maxResults int) ([]gmail.Message, error)
}

// MovementExtractor turns a raw email message into a movement record.
type MovementExtractor interface {
	Parse(messageID, subject, body, sender, date string) domain.Movement
}

// Archiver stores the raw body of a message and returns its storage URI.
type Archiver interface {
	Store(ctx context.Context, msg gmail.Message) (string, error)
}

// MovementSink persists extracted movements.
// Satisfied by the BigQuery repository; mocked in tests.
type MovementSink interface {
	UpsertMovements(ctx context.Context, movements []domain.Movement) error
}
