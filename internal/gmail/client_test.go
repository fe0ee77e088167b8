package gmail

import (
	"encoding/base64"
	"testing"
	"time"

	gmailapi "google.golang.org/api/gmail/v1"
)

func TestParseHeaderDate(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  string // RFC3339, empty means zero time expected
	}{
		{"rfc1123z", "Mon, 20 Jan 2026 15:04:05 -0300", "2026-01-20T15:04:05-03:00"},
		{"single digit day", "Mon, 2 Feb 2026 09:00:00 -0300", "2026-02-02T09:00:00-03:00"},
		{"trailing zone comment", "Mon, 20 Jan 2026 15:04:05 -0300 (CLST)", "2026-01-20T15:04:05-03:00"},
		{"no weekday", "20 Jan 2026 15:04:05 -0300", "2026-01-20T15:04:05-03:00"},
		{"garbage", "not a date", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseHeaderDate(tt.value)
			if tt.want == "" {
				if !got.IsZero() {
					t.Errorf("parseHeaderDate(%q) = %v, want zero time", tt.value, got)
				}
				return
			}
			want, err := time.Parse(time.RFC3339, tt.want)
			if err != nil {
				t.Fatal(err)
			}
			if !got.Equal(want) {
				t.Errorf("parseHeaderDate(%q) = %v, want %v", tt.value, got, want)
			}
		})
	}
}

func encodeBody(s string) string {
	return base64.URLEncoding.EncodeToString([]byte(s))
}

func TestPlainTextBody_TopLevel(t *testing.T) {
	payload := &gmailapi.MessagePart{
		MimeType: "text/plain",
		Body:     &gmailapi.MessagePartBody{Data: encodeBody("pagaste $ 12.500")},
	}

	if got := plainTextBody(payload); got != "pagaste $ 12.500" {
		t.Errorf("plainTextBody = %q, want decoded body", got)
	}
}

func TestPlainTextBody_Multipart(t *testing.T) {
	payload := &gmailapi.MessagePart{
		MimeType: "multipart/alternative",
		Parts: []*gmailapi.MessagePart{
			{MimeType: "application/pdf", Body: &gmailapi.MessagePartBody{Data: encodeBody("binary")}},
			{MimeType: "text/plain", Body: &gmailapi.MessagePartBody{Data: encodeBody("hola")}},
			{MimeType: "text/html", Body: &gmailapi.MessagePartBody{Data: encodeBody("<p>hola</p>")}},
		},
	}

	if got := plainTextBody(payload); got != "hola" {
		t.Errorf("plainTextBody = %q, want first text part", got)
	}
}

func TestPlainTextBody_NestedMultipart(t *testing.T) {
	payload := &gmailapi.MessagePart{
		MimeType: "multipart/mixed",
		Parts: []*gmailapi.MessagePart{
			{
				MimeType: "multipart/alternative",
				Parts: []*gmailapi.MessagePart{
					{MimeType: "text/plain", Body: &gmailapi.MessagePartBody{Data: encodeBody("nested")}},
				},
			},
		},
	}

	if got := plainTextBody(payload); got != "nested" {
		t.Errorf("plainTextBody = %q, want nested part body", got)
	}
}

func TestDecodeBase64URL_RawEncoding(t *testing.T) {
	// Gmail sometimes omits padding; the raw variant must still decode.
	raw := base64.RawURLEncoding.EncodeToString([]byte("sin padding!"))
	got, err := decodeBase64URL(raw)
	if err != nil {
		t.Fatalf("decodeBase64URL failed: %v", err)
	}
	if string(got) != "sin padding!" {
		t.Errorf("decoded = %q, want %q", got, "sin padding!")
	}
}

func TestDecodeMessage(t *testing.T) {
	msg := &gmailapi.Message{
		Id:      "msg-1",
		Snippet: "Hola David...",
		Payload: &gmailapi.MessagePart{
			MimeType: "text/plain",
			Headers: []*gmailapi.MessagePartHeader{
				{Name: "Subject", Value: "Comprobante de Pago PedidosYa"},
				{Name: "From", Value: "PedidosYa <noreply@pedidosya.com>"},
				{Name: "Date", Value: "Mon, 20 Jan 2026 15:04:05 -0300"},
			},
			Body: &gmailapi.MessagePartBody{Data: encodeBody("Hola David, pagaste $ 12.500")},
		},
	}

	got := decodeMessage(msg)

	if got.ID != "msg-1" {
		t.Errorf("ID = %q, want msg-1", got.ID)
	}
	if got.Subject != "Comprobante de Pago PedidosYa" {
		t.Errorf("Subject = %q", got.Subject)
	}
	if got.From != "PedidosYa <noreply@pedidosya.com>" {
		t.Errorf("From = %q", got.From)
	}
	if got.Date.IsZero() {
		t.Error("Date should be parsed")
	}
	if got.Body != "Hola David, pagaste $ 12.500" {
		t.Errorf("Body = %q", got.Body)
	}
}

func TestDecodeMessage_NoPayload(t *testing.T) {
	got := decodeMessage(&gmailapi.Message{Id: "msg-2"})
	if got.ID != "msg-2" || got.Body != "" || got.Subject != "" {
		t.Errorf("decodeMessage without payload = %+v, want bare ID", got)
	}
}
