package gmail

import "time"

// Message holds the fields of a Gmail message the extraction engine needs.
type Message struct {
	ID      string
	From    string // raw "From" header, e.g. `Name <email@domain>`
	Subject string
	Date    time.Time // zero when the Date header was missing or unparseable
	Snippet string
	Body    string // decoded plain-text body, may be empty
}
