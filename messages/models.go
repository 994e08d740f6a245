// Package messages stores tvits, the short messages users post.
package messages

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxContentLength is the longest tvit accepted, in characters.
const MaxContentLength = 140

// Author is the snapshot of the posting user embedded in each message.
// It is copied at creation time and not kept in sync with later profile edits.
type Author struct {
	UserName string
	Picture  string
}

// Message is a single tvit.
type Message struct {
	ID        string
	Content   string
	Location  string
	Author    Author
	CreatedAt time.Time
	Seq       int64 // insertion order, breaks ties between equal CreatedAt
}

// AuthorStats pairs an author with the number of tvits they have posted.
type AuthorStats struct {
	Author
	MessageCount int
}

// ValidateContent returns a user-facing error for unacceptable tvit text, or "".
func ValidateContent(content string) string {
	content = strings.TrimSpace(content)
	switch {
	case content == "":
		return "is required"
	case utf8.RuneCountInString(content) > MaxContentLength:
		return fmt.Sprintf("must be at most %d characters", MaxContentLength)
	}
	return ""
}
