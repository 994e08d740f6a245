package messages

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/user/tvitter-go/apperror"
	"github.com/user/tvitter-go/db"
	"github.com/user/tvitter-go/logging"
)

const messageColumns = `id, content, location, author_username, author_picture, created_at, seq`

// MessageRepository provides the data access operations for tvits.
// A message and its id in the author's users.messages list are always written
// together in one transaction.
type MessageRepository struct {
	db  db.DBTX
	log logging.Logger
	now func() time.Time
}

// NewMessageRepository creates a new MessageRepository.
func NewMessageRepository(conn db.DBTX, log logging.Logger) *MessageRepository {
	return &MessageRepository{db: conn, log: log.With("component", "messages"), now: time.Now}
}

func scanMessage(row pgx.Row) (*Message, error) {
	var m Message
	if err := row.Scan(
		&m.ID,
		&m.Content,
		&m.Location,
		&m.Author.UserName,
		&m.Author.Picture,
		&m.CreatedAt,
		&m.Seq,
	); err != nil {
		return nil, err
	}
	return &m, nil
}

// withTx runs fn inside a transaction, committing when fn returns nil.
func (r *MessageRepository) withTx(ctx context.Context, fn func(tx pgx.Tx) error) (err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		} else if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()
	return fn(tx)
}

// Create stamps message with a fresh id, the current time and the author snapshot,
// stores it and appends its id to the author's message list.
// If the author does not exist nothing is stored and a not-found error is returned.
func (r *MessageRepository) Create(ctx context.Context, message Message, author Author) (*Message, error) {
	if author.UserName == "" {
		return nil, apperror.NewValidationError("message author is required", nil)
	}
	message.ID = uuid.NewString()
	message.Author = author
	message.CreatedAt = r.now().UTC().Truncate(time.Microsecond)

	var authorMissing bool
	err := r.withTx(ctx, func(tx pgx.Tx) error {
		insert := `
			INSERT INTO messages (id, content, location, author_username, author_picture, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING seq
		`
		if err := tx.QueryRow(ctx, insert,
			message.ID,
			message.Content,
			message.Location,
			author.UserName,
			author.Picture,
			message.CreatedAt,
		).Scan(&message.Seq); err != nil {
			return err
		}

		tag, err := tx.Exec(ctx,
			`UPDATE users SET messages = array_append(messages, $1) WHERE username = $2`,
			message.ID, author.UserName)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			authorMissing = true
			return errors.New("author not found")
		}
		return nil
	})
	if err != nil {
		if authorMissing {
			return nil, apperror.NewNotFoundError(apperror.PageNotFound, nil)
		}
		r.log.Error(ctx, "cannot create message", "author", author.UserName, "error", err)
		return nil, apperror.NewDatabaseError("cannot create message", err)
	}

	r.log.Info(ctx, "message created", "message_id", message.ID, "author", author.UserName)
	return &message, nil
}

// GetLatestNByUsers returns up to n of the newest messages written by any of userNames.
// Messages with equal timestamps are ordered by insertion, newest first.
func (r *MessageRepository) GetLatestNByUsers(ctx context.Context, userNames []string, n int) ([]Message, error) {
	if n <= 0 || len(userNames) == 0 {
		return []Message{}, nil
	}

	query := `SELECT ` + messageColumns + `
		FROM messages
		WHERE author_username = ANY($1)
		ORDER BY created_at DESC, seq DESC
		LIMIT $2`
	result, err := r.list(ctx, query, userNames, n)
	if err != nil {
		r.log.Error(ctx, "cannot get latest messages", "authors", userNames, "error", err)
		return nil, apperror.NewDatabaseError("cannot get latest messages", err)
	}
	return result, nil
}

// Search returns up to n of the newest messages whose content contains q,
// case-insensitively.
func (r *MessageRepository) Search(ctx context.Context, q string, n int) ([]Message, error) {
	q = strings.TrimSpace(q)
	if q == "" || n <= 0 {
		return []Message{}, nil
	}

	query := `SELECT ` + messageColumns + `
		FROM messages
		WHERE content ILIKE $1
		ORDER BY created_at DESC, seq DESC
		LIMIT $2`
	result, err := r.list(ctx, query, db.ContainsPattern(q), n)
	if err != nil {
		r.log.Error(ctx, "cannot search messages", "query", q, "error", err)
		return nil, apperror.NewDatabaseError("cannot search messages", err)
	}
	return result, nil
}

// GetByID returns a single message. An unknown id is reported as not found.
func (r *MessageRepository) GetByID(ctx context.Context, id string) (*Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE id = $1`
	m, err := scanMessage(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewNotFoundError(apperror.PageNotFound, err)
		}
		r.log.Error(ctx, "cannot get message", "message_id", id, "error", err)
		return nil, apperror.NewDatabaseError("cannot get message", err)
	}
	return m, nil
}

func (r *MessageRepository) list(ctx context.Context, query string, args ...any) ([]Message, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []Message{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *m)
	}
	return result, rows.Err()
}

// Delete removes the message if authorUserName wrote it and drops its id from the
// author's message list. An unknown id or a different author is reported as not found.
func (r *MessageRepository) Delete(ctx context.Context, messageID, authorUserName string) error {
	var missing bool
	err := r.withTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`DELETE FROM messages WHERE id = $1 AND author_username = $2`,
			messageID, authorUserName)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			missing = true
			return errors.New("message not found")
		}

		_, err = tx.Exec(ctx,
			`UPDATE users SET messages = array_remove(messages, $1) WHERE username = $2`,
			messageID, authorUserName)
		return err
	})
	if err != nil {
		if missing {
			return apperror.NewNotFoundError(apperror.PageNotFound, nil)
		}
		r.log.Error(ctx, "cannot delete message", "message_id", messageID, "error", err)
		return apperror.NewDatabaseError("cannot delete message", err)
	}

	r.log.Info(ctx, "message deleted", "message_id", messageID, "author", authorUserName)
	return nil
}

// TopAuthors returns the n users with the most messages, most prolific first.
// Counts come from the users.messages back-reference list.
func (r *MessageRepository) TopAuthors(ctx context.Context, n int) ([]AuthorStats, error) {
	if n <= 0 {
		return []AuthorStats{}, nil
	}

	query := `
		SELECT username, picture, cardinality(messages) AS message_count
		FROM users
		WHERE cardinality(messages) > 0
		ORDER BY message_count DESC, username
		LIMIT $1
	`
	rows, err := r.db.Query(ctx, query, n)
	if err != nil {
		r.log.Error(ctx, "cannot get top authors", "error", err)
		return nil, apperror.NewDatabaseError("cannot get top authors", err)
	}
	defer rows.Close()

	result := []AuthorStats{}
	for rows.Next() {
		var s AuthorStats
		if err := rows.Scan(&s.UserName, &s.Picture, &s.MessageCount); err != nil {
			r.log.Error(ctx, "cannot scan top author", "error", err)
			return nil, apperror.NewDatabaseError("cannot get top authors", err)
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewDatabaseError("cannot get top authors", err)
	}
	return result, nil
}
