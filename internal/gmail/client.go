// Package gmail fetches financial email from a Gmail mailbox. It is a thin
// read-only collaborator: it lists messages matching a search query, decodes
// their plain-text bodies, and hands them to the caller. Token acquisition
// and refresh are out of scope; the client expects an existing OAuth token
// file (gcloud-style "run the consent flow once, keep the token").
package gmail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

const user = "me"

// Client wraps the Gmail API service.
type Client struct {
	srv *gmailapi.Service
	log zerolog.Logger
}

// NewClient builds a Gmail client from a credentials file and a previously
// saved token file.
func NewClient(ctx context.Context, credentialsFile, tokenFile string, log zerolog.Logger) (*Client, error) {
	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("gmail: read client secret file: %w", err)
	}
	oauthConfig, err := google.ConfigFromJSON(b, gmailapi.GmailReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("gmail: parse client secret file: %w", err)
	}

	tok, err := tokenFromFile(tokenFile)
	if err != nil {
		return nil, fmt.Errorf("gmail: read token file %q (run the consent flow first): %w", tokenFile, err)
	}

	srv, err := gmailapi.NewService(ctx, option.WithHTTPClient(oauthConfig.Client(ctx, tok)))
	if err != nil {
		return nil, fmt.Errorf("gmail: create service: %w", err)
	}
	return &Client{srv: srv, log: log}, nil
}

func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	return tok, err
}

// Search lists up to max messages matching the query and returns them fully
// decoded. Messages that fail to fetch are skipped with a warning; a listing
// failure aborts the whole call.
func (c *Client) Search(ctx context.Context, query string, max int) ([]Message, error) {
	list, err := c.srv.Users.Messages.List(user).Q(query).MaxResults(int64(max)).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("gmail: list messages: %w", err)
	}

	messages := make([]Message, 0, len(list.Messages))
	for _, ref := range list.Messages {
		full, err := c.srv.Users.Messages.Get(user, ref.Id).Format("full").Context(ctx).Do()
		if err != nil {
			c.log.Warn().Err(err).Str("message_id", ref.Id).Msg("Skipping unfetchable message")
			continue
		}
		messages = append(messages, decodeMessage(full))
	}
	return messages, nil
}

// decodeMessage extracts the headers and plain-text body of an API message.
func decodeMessage(msg *gmailapi.Message) Message {
	m := Message{ID: msg.Id, Snippet: msg.Snippet}
	if msg.Payload == nil {
		return m
	}
	for _, h := range msg.Payload.Headers {
		switch h.Name {
		case "Subject":
			m.Subject = h.Value
		case "From":
			m.From = h.Value
		case "Date":
			m.Date = parseHeaderDate(h.Value)
		}
	}
	m.Body = plainTextBody(msg.Payload)
	return m
}

// headerDateLayouts covers the RFC 5322 variants seen in the wild.
var headerDateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"2 Jan 2006 15:04:05 -0700",
	time.RFC822,
}

func parseHeaderDate(value string) time.Time {
	// Drop a trailing "(MST)" style comment, which time.Parse chokes on.
	if open := strings.LastIndex(value, " ("); open != -1 {
		if end := strings.LastIndex(value, ")"); end > open {
			value = strings.TrimSpace(value[:open] + value[end+1:])
		}
	}
	for _, layout := range headerDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}

// plainTextBody walks the MIME tree and returns the first decodable text
// part.
func plainTextBody(payload *gmailapi.MessagePart) string {
	if payload.MimeType == "text/plain" && payload.Body != nil && payload.Body.Data != "" {
		if data, err := decodeBase64URL(payload.Body.Data); err == nil {
			return string(data)
		}
	}
	for _, part := range payload.Parts {
		mime := strings.ToLower(part.MimeType)
		if strings.HasPrefix(mime, "text/") || strings.HasPrefix(mime, "multipart/") {
			if body := plainTextBody(part); body != "" {
				return body
			}
		}
	}
	return ""
}

func decodeBase64URL(data string) ([]byte, error) {
	if b, err := base64.URLEncoding.DecodeString(data); err == nil {
		return b, nil
	}
	return base64.RawURLEncoding.DecodeString(data)
}
