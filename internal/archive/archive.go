// Package archive stores raw email bodies in Google Cloud Storage so the
// original text of every ingested message can be re-examined later.
package archive

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/storage"

	"github.com/dvloznov/gastomail/internal/gmail"
)

// Archive writes raw message bodies to a GCS bucket.
// It assumes Application Default Credentials are configured.
type Archive struct {
	client *storage.Client
	bucket string
	prefix string
}

// New creates an Archive backed by the given bucket. prefix is prepended to
// every object name, e.g. prefix "raw" stores messages under raw/<id>.txt.
func New(ctx context.Context, bucket, prefix string) (*Archive, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &Archive{client: client, bucket: bucket, prefix: prefix}, nil
}

// Store uploads the raw text of msg and returns its GCS URI.
func (a *Archive) Store(ctx context.Context, msg gmail.Message) (string, error) {
	objectName := a.objectName(msg.ID)

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := a.client.Bucket(a.bucket).Object(objectName).NewWriter(ctx)
	w.ContentType = "text/plain; charset=utf-8"

	if _, err := io.WriteString(w, rawText(msg)); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("write message %s to GCS: %w", msg.ID, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize upload for message %s: %w", msg.ID, err)
	}

	return fmt.Sprintf("gs://%s/%s", a.bucket, objectName), nil
}

// Fetch downloads the archived bytes at the given GCS URI.
func (a *Archive) Fetch(ctx context.Context, gcsURI string) ([]byte, error) {
	bucket, objectPath, err := parseGCSURI(gcsURI)
	if err != nil {
		return nil, err
	}

	rc, err := a.client.Bucket(bucket).Object(objectPath).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading object %s/%s: %w", bucket, objectPath, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("reading bytes: %w", err)
	}
	return data, nil
}

// Close releases the underlying storage client.
func (a *Archive) Close() error {
	return a.client.Close()
}

func (a *Archive) objectName(messageID string) string {
	if a.prefix == "" {
		return messageID + ".txt"
	}
	return strings.TrimSuffix(a.prefix, "/") + "/" + messageID + ".txt"
}

// rawText renders a message the way it is fed to extraction, headers first.
func rawText(msg gmail.Message) string {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\n", msg.From)
	fmt.Fprintf(&b, "Subject: %s\n", msg.Subject)
	if !msg.Date.IsZero() {
		fmt.Fprintf(&b, "Date: %s\n", msg.Date.Format(time.RFC3339))
	}
	b.WriteString("\n")
	if msg.Body != "" {
		b.WriteString(msg.Body)
	} else {
		b.WriteString(msg.Snippet)
	}
	return b.String()
}

func parseGCSURI(gcsURI string) (bucket, objectPath string, err error) {
	if !strings.HasPrefix(gcsURI, "gs://") {
		return "", "", fmt.Errorf("invalid GCS URI: %s", gcsURI)
	}
	trimmed := strings.TrimPrefix(gcsURI, "gs://")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", gcsURI)
	}
	return parts[0], parts[1], nil
}
