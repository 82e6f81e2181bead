package models

import (
	"fmt"
	"strings"
)

// Role identifies who produced a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Source references one retrieved chunk that contributed to an answer.
type Source struct {
	ID        string         `json:"id"`
	FileName  string         `json:"file_name"`
	Metadata  map[string]any `json:"metadata"`
	Relevance float64        `json:"relevance"` // similarity score in [0,1]
}

// Message represents one turn of conversation.
// Sources is populated only on assistant messages produced through
// retrieval-augmented answering. TokensUsed is set only by the completion
// client; ProcessingTime is backfilled by whoever completes the round trip.
type Message struct {
	Role           Role     `json:"role"`
	Content        string   `json:"content"`
	Sources        []Source `json:"sources,omitempty"`
	TokensUsed     int      `json:"tokens_used,omitempty"`
	ProcessingTime float64  `json:"processing_time,omitempty"` // seconds
}

// MetadataString renders the message's accounting fields for display.
func (m Message) MetadataString() string {
	var parts []string
	if m.TokensUsed > 0 {
		parts = append(parts, fmt.Sprintf("Tokens used: %d", m.TokensUsed))
	}
	if m.ProcessingTime > 0 {
		parts = append(parts, fmt.Sprintf("Processing time: %.2fs", m.ProcessingTime))
	}
	return strings.Join(parts, " | ")
}

// Metadata keys shared by every chunk of one uploaded file.
const (
	MetaFileID   = "file_id"
	MetaFileName = "file_name"
	MetaFileType = "file_type"
	MetaFileSize = "file_size"
	MetaPosition = "position" // zero-based chunk index within the file
	MetaOverlap  = "overlap"  // chars at the chunk start duplicated from the previous chunk
)

// Document is one stored chunk: the unit written to and retrieved from the
// vector store.
type Document struct {
	ID        string         `json:"id"`
	Content   string         `json:"content"`
	Embedding []float32      `json:"embedding,omitempty"`
	Meta      map[string]any `json:"meta"`
}

// MetaString returns a metadata value as a string, or "" when absent.
func (d Document) MetaString(key string) string {
	if v, ok := d.Meta[key].(string); ok {
		return v
	}
	return ""
}

// MetaInt returns a metadata value as an int. JSON decoding turns numbers
// into float64, so both representations are accepted.
func (d Document) MetaInt(key string) int {
	switch v := d.Meta[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

// FileRecord is the listing view of one uploaded file, aggregated from the
// chunks sharing its file_id. Derived, never persisted on its own.
type FileRecord struct {
	FileID   string `json:"file_id"`
	FileName string `json:"file_name"`
	FileType string `json:"file_type"`
	FileSize int    `json:"file_size"`
	DocCount int    `json:"doc_count"`
}
