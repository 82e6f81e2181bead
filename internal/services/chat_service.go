package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"ragchat-backend/internal/core"
	"ragchat-backend/internal/models"
)

// SystemPrompt seeds every chat session.
const SystemPrompt = "You are an assistant with RAG capabilities. When provided with context from documents, use that information to enhance your responses."

// RetrievalTopK is the number of chunks injected into an augmented prompt.
const RetrievalTopK = 3

// MaxHistoryLen caps stored history per session; the oldest non-system turns
// are pruned beyond it.
const MaxHistoryLen = 100

// transcriptWindow is how many trailing history entries are sent per call.
const transcriptWindow = 5

// augmentedPromptFormat wraps a query in retrieved context.
const augmentedPromptFormat = `Context from relevant documents:
%s

Based on the above context, please answer the following question:
%s`

type session struct {
	mu      sync.Mutex
	history []models.Message
}

// ChatService orchestrates retrieval-augmented answering. Every session gets
// its own history; sessions never share mutable state beyond the injected
// document service and completion client.
type ChatService struct {
	docs      *DocumentService
	completer core.CompletionClient

	mu       sync.Mutex
	sessions map[string]*session
}

func NewChatService(docs *DocumentService, completer core.CompletionClient) *ChatService {
	return &ChatService{
		docs:      docs,
		completer: completer,
		sessions:  make(map[string]*session),
	}
}

// NewSession registers a fresh session and returns its ID.
func (s *ChatService) NewSession() string {
	id := uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = newSession()
	return id
}

// getSession returns the session, creating it on demand so tokens issued
// before a restart keep working.
func (s *ChatService) getSession(id string) *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		sess = newSession()
		s.sessions[id] = sess
	}
	return sess
}

func newSession() *session {
	return &session{history: []models.Message{{Role: models.RoleSystem, Content: SystemPrompt}}}
}

// History returns a copy of the session's chat history.
func (s *ChatService) History(sessionID string) []models.Message {
	sess := s.getSession(sessionID)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	out := make([]models.Message, len(sess.history))
	copy(out, sess.history)
	return out
}

// Answer records the user turn, optionally augments the query with retrieved
// context, calls the completion client and records the assistant turn. A
// completion failure still yields a displayable assistant message naming the
// error; only retrieval failures propagate as errors.
func (s *ChatService) Answer(ctx context.Context, sessionID, query string, useRAG bool) (models.Message, error) {
	start := time.Now()

	sess := s.getSession(sessionID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.history = append(sess.history, models.Message{Role: models.RoleUser, Content: query})

	var sources []models.Source
	enhancedQuery := query

	if useRAG {
		results, err := s.docs.Search(ctx, query, RetrievalTopK)
		if err != nil {
			return models.Message{}, fmt.Errorf("retrieve context: %w", err)
		}

		if len(results) > 0 {
			contextParts := make([]string, 0, len(results))
			for i, res := range results {
				contextParts = append(contextParts, fmt.Sprintf("Document %d: %s", i+1, res.Document.Content))
				sources = append(sources, models.Source{
					ID:        res.Document.ID,
					FileName:  res.Document.MetaString(models.MetaFileName),
					Metadata:  res.Document.Meta,
					Relevance: res.Score,
				})
			}
			enhancedQuery = fmt.Sprintf(augmentedPromptFormat, strings.Join(contextParts, "\n\n"), query)
		}
	}

	transcript := s.buildTranscript(sess.history, query, enhancedQuery)

	response, err := s.completer.ChatComplete(ctx, transcript)
	if err != nil {
		log.Printf("chat: completion failed: %v", err)
		response = errorMessage(err, start)
	}

	response.Sources = sources
	if response.ProcessingTime == 0 {
		response.ProcessingTime = time.Since(start).Seconds()
	}

	sess.history = append(sess.history, response)
	sess.prune()

	return response, nil
}

// buildTranscript takes the trailing window of history, drops any entry that
// is exactly the just-appended raw user query so the model never sees both
// the raw and the augmented form, and closes with the query to answer.
func (s *ChatService) buildTranscript(history []models.Message, rawQuery, enhancedQuery string) []models.Message {
	window := history
	if len(window) > transcriptWindow {
		window = window[len(window)-transcriptWindow:]
	}

	transcript := make([]models.Message, 0, len(window)+1)
	for _, msg := range window {
		if msg.Role == models.RoleUser && msg.Content == rawQuery {
			continue
		}
		transcript = append(transcript, models.Message{Role: msg.Role, Content: msg.Content})
	}
	return append(transcript, models.Message{Role: models.RoleUser, Content: enhancedQuery})
}

// errorMessage renders a failed completion call as an assistant turn, so the
// chat loop always produces something displayable.
func errorMessage(err error, start time.Time) models.Message {
	msg := models.Message{
		Role:           models.RoleAssistant,
		Content:        fmt.Sprintf("Error: %v", err),
		ProcessingTime: time.Since(start).Seconds(),
	}
	var ce *core.CompletionError
	if errors.As(err, &ce) && ce.Elapsed > 0 {
		msg.ProcessingTime = ce.Elapsed
	}
	return msg
}

func (sess *session) prune() {
	if len(sess.history) <= MaxHistoryLen {
		return
	}
	excess := len(sess.history) - MaxHistoryLen
	// Index 0 holds the system message; drop the oldest turns after it.
	pruned := make([]models.Message, 0, MaxHistoryLen)
	pruned = append(pruned, sess.history[0])
	pruned = append(pruned, sess.history[1+excess:]...)
	sess.history = pruned
}
