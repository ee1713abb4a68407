package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"mapchat.app/server/internal/model"
)

// postgresConversationStore persists transcripts across restarts. Enabled
// when DATABASE_URL is set.
type postgresConversationStore struct {
	pool *pgxpool.Pool
}

func NewPostgresConversationStore(ctx context.Context, dsn string) (ConversationStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	s := &postgresConversationStore{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *postgresConversationStore) migrate(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS conversations (
	id         BIGINT PRIMARY KEY,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS messages (
	id              BIGINT PRIMARY KEY,
	conversation_id BIGINT NOT NULL REFERENCES conversations(id),
	role            TEXT NOT NULL,
	text            TEXT NOT NULL,
	citations       JSONB,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS messages_conversation_idx ON messages (conversation_id, id);
`
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

func (s *postgresConversationStore) CreateConversation(ctx context.Context, conv *model.Conversation) error {
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO conversations (id, created_at) VALUES ($1, $2)`,
		conv.ID, conv.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating conversation: %w", err)
	}
	return nil
}

func (s *postgresConversationStore) GetConversation(ctx context.Context, id int64) (*model.Conversation, error) {
	var conv model.Conversation
	err := s.pool.QueryRow(ctx,
		`SELECT id, created_at FROM conversations WHERE id = $1`, id,
	).Scan(&conv.ID, &conv.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting conversation: %w", err)
	}
	return &conv, nil
}

func (s *postgresConversationStore) AppendMessage(ctx context.Context, msg *model.ChatMessage) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	var citations any
	if len(msg.Citations) > 0 {
		citations = msg.Citations
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO messages (id, conversation_id, role, text, citations, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		msg.ID, msg.ConversationID, msg.Role, msg.Text, citations, msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("appending message: %w", err)
	}
	return nil
}

func (s *postgresConversationStore) ListMessages(ctx context.Context, conversationID int64) ([]model.ChatMessage, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, conversation_id, role, text, citations, created_at
		 FROM messages WHERE conversation_id = $1 ORDER BY id`,
		conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	defer rows.Close()

	var msgs []model.ChatMessage
	for rows.Next() {
		var msg model.ChatMessage
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.Role, &msg.Text, &msg.Citations, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating messages: %w", err)
	}
	return msgs, nil
}
