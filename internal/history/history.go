// Package history persists completed exchanges in a local sqlite database
// so past conversations survive the session.
package history

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"

	"rag-console/internal/models"
)

type Conversation struct {
	bun.BaseModel `bun:"table:conversations,alias:c"`
	ID            int64     `bun:"id,pk,autoincrement"`
	Title         string    `bun:"title,notnull"`
	Tone          string    `bun:"tone"`
	CreatedAt     time.Time `bun:"created_at,notnull"`
}

type Message struct {
	bun.BaseModel  `bun:"table:messages,alias:m"`
	ID             int64     `bun:"id,pk,autoincrement"`
	ConversationID int64     `bun:"conversation_id,notnull"`
	Role           string    `bun:"role,notnull"`
	Content        string    `bun:"content,notnull"`
	Sources        string    `bun:"sources"`
	CreatedAt      time.Time `bun:"created_at,notnull"`
}

type Store struct {
	db *bun.DB
}

// Open connects to (or creates) the sqlite database at path
func Open(path string, debug bool) (*Store, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, path)
	if err != nil {
		return nil, err
	}
	db := bun.NewDB(sqldb, sqlitedialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return &Store{db: db}, nil
}

// Init creates the tables if they do not exist
func (s *Store) Init(ctx context.Context) error {
	if _, err := s.db.NewCreateTable().Model((*Conversation)(nil)).IfNotExists().Exec(ctx); err != nil {
		return err
	}
	_, err := s.db.NewCreateTable().Model((*Message)(nil)).IfNotExists().Exec(ctx)
	return err
}

// CreateConversation opens a new conversation titled after its first
// question.
func (s *Store) CreateConversation(ctx context.Context, title, tone string) (int64, error) {
	conv := &Conversation{Title: title, Tone: tone, CreatedAt: time.Now()}
	if _, err := s.db.NewInsert().Model(conv).Exec(ctx); err != nil {
		return 0, err
	}
	return conv.ID, nil
}

// SaveExchange appends one completed user/assistant pair. Pending,
// streaming and failed turns are never persisted; a failed exchange only
// carries the apology placeholder, not an answer worth keeping.
func (s *Store) SaveExchange(ctx context.Context, conversationID int64, user, assistant models.Turn) error {
	if assistant.Status != models.TurnComplete {
		return nil
	}
	msgs := []Message{
		{
			ConversationID: conversationID,
			Role:           string(user.Role),
			Content:        user.Content,
			CreatedAt:      time.Now(),
		},
		{
			ConversationID: conversationID,
			Role:           string(assistant.Role),
			Content:        assistant.Content,
			Sources:        strings.Join(assistant.Sources, "\n"),
			CreatedAt:      time.Now(),
		},
	}
	_, err := s.db.NewInsert().Model(&msgs).Exec(ctx)
	return err
}

// Conversations lists stored conversations, newest first
func (s *Store) Conversations(ctx context.Context) ([]Conversation, error) {
	var convs []Conversation
	err := s.db.NewSelect().Model(&convs).Order("created_at DESC").Scan(ctx)
	return convs, err
}

// Messages returns one conversation's messages in insertion order
func (s *Store) Messages(ctx context.Context, conversationID int64) ([]Message, error) {
	var msgs []Message
	err := s.db.NewSelect().
		Model(&msgs).
		Where("conversation_id = ?", conversationID).
		Order("id ASC").
		Scan(ctx)
	return msgs, err
}

// Turns converts stored messages back into transcript turns for export
func Turns(msgs []Message) []models.Turn {
	turns := make([]models.Turn, len(msgs))
	for i, m := range msgs {
		var sources []string
		if m.Sources != "" {
			sources = strings.Split(m.Sources, "\n")
		}
		turns[i] = models.Turn{
			Role:    models.Role(m.Role),
			Content: m.Content,
			Sources: sources,
			Status:  models.TurnComplete,
		}
	}
	return turns
}

func (s *Store) Close() error {
	return s.db.Close()
}
