package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/user/tvitter-go/apperror"
	"github.com/user/tvitter-go/db"
	"github.com/user/tvitter-go/logging"
)

const userColumns = `id, username, names, password, email, gender, date_registered, picture, messages`

// UserRepository provides the data access operations for accounts.
// Every lookup yields exactly one of: a user, a not-found error or a database error.
type UserRepository struct {
	db  db.DBTX
	log logging.Logger
	now func() time.Time
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(conn db.DBTX, log logging.Logger) *UserRepository {
	return &UserRepository{db: conn, log: log.With("component", "users"), now: time.Now}
}

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(
		&u.ID,
		&u.UserName,
		&u.Names,
		&u.Password,
		&u.Email,
		&u.Gender,
		&u.DateRegistered,
		&u.Picture,
		&u.Messages,
	)
	if err != nil {
		return nil, err
	}
	if u.Messages == nil {
		u.Messages = []string{}
	}
	return &u, nil
}

// GetUserByID retrieves a user by id.
func (r *UserRepository) GetUserByID(ctx context.Context, id string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := scanUser(r.db.QueryRow(ctx, query, id))
	return r.lookupResult(ctx, user, err, "user_id", id)
}

// GetUserByUserName retrieves a user by username.
func (r *UserRepository) GetUserByUserName(ctx context.Context, userName string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	user, err := scanUser(r.db.QueryRow(ctx, query, userName))
	return r.lookupResult(ctx, user, err, "user_name", userName)
}

func (r *UserRepository) lookupResult(ctx context.Context, user *User, err error, key, value string) (*User, error) {
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewNotFoundError(apperror.PageNotFound, nil)
		}
		r.log.Error(ctx, "cannot get user", key, value, "error", err)
		return nil, apperror.NewDatabaseError("cannot get user", err)
	}
	return user, nil
}

// IsUserAlreadyCreated reports whether an account with the username exists.
// Any failure to find one counts as "not created".
func (r *UserRepository) IsUserAlreadyCreated(ctx context.Context, userName string) bool {
	user, err := r.GetUserByUserName(ctx, userName)
	return err == nil && user != nil
}

// CreateUser inserts a new account and returns the stored form.
// An empty id is replaced by a fresh UUID, a zero registration date by the current
// time, and the picture always starts as DefaultPicture.
// A taken username yields a conflict error and nothing is written.
func (r *UserRepository) CreateUser(ctx context.Context, user User) (*User, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	} else if _, err := uuid.Parse(user.ID); err != nil {
		return nil, apperror.NewValidationError(fmt.Sprintf("invalid user id %q", user.ID), err)
	}
	if user.DateRegistered.IsZero() {
		user.DateRegistered = r.now()
	}
	// Postgres keeps microseconds; truncating keeps the returned value equal to a re-read.
	user.DateRegistered = user.DateRegistered.UTC().Truncate(time.Microsecond)
	user.Picture = DefaultPicture
	if user.Messages == nil {
		user.Messages = []string{}
	}

	query := `
		INSERT INTO users (id, username, names, password, email, gender, date_registered, picture, messages)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (username) DO NOTHING
		RETURNING id
	`
	var id string
	err := r.db.QueryRow(ctx, query,
		user.ID,
		user.UserName,
		user.Names,
		user.Password,
		user.Email,
		user.Gender,
		user.DateRegistered,
		user.Picture,
		user.Messages,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewConflictError(fmt.Sprintf("username '%s' already exists", user.UserName), nil)
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation on id
			return nil, apperror.NewConflictError(fmt.Sprintf("user id '%s' already exists", user.ID), nil)
		}
		r.log.Error(ctx, "cannot insert user", "user_name", user.UserName, "error", err)
		return nil, apperror.NewDatabaseError("cannot insert user", err)
	}

	r.log.Info(ctx, "user created", "user_id", id, "user_name", user.UserName)
	return &user, nil
}

// UpdateUser writes the present fields of update to the account with the given
// username and returns the updated account. Absent fields keep their value.
func (r *UserRepository) UpdateUser(ctx context.Context, userName string, update UserUpdate) (*User, error) {
	var setClauses []string
	var args []interface{}
	argID := 1

	set := func(column string, value *string) {
		if value == nil {
			return
		}
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, argID))
		args = append(args, *value)
		argID++
	}
	set("names", update.Names)
	set("password", update.Password)
	set("email", update.Email)
	set("gender", update.Gender)
	set("picture", update.Picture)

	if len(setClauses) == 0 {
		return r.GetUserByUserName(ctx, userName)
	}

	args = append(args, userName)
	query := fmt.Sprintf(`
		UPDATE users
		SET %s
		WHERE username = $%d
		RETURNING %s
	`, strings.Join(setClauses, ", "), argID, userColumns)

	user, err := scanUser(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewNotFoundError(apperror.PageNotFound, nil)
		}
		r.log.Error(ctx, "cannot update user", "user_name", userName, "error", err)
		return nil, apperror.NewDatabaseError("cannot update user", err)
	}
	return user, nil
}

// DeleteUser removes the account and every message it authored.
func (r *UserRepository) DeleteUser(ctx context.Context, userName string) (err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		r.log.Error(ctx, "cannot begin transaction", "error", err)
		return apperror.NewDatabaseError("cannot delete user", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				r.log.Error(ctx, "rollback failed", "error", rbErr)
			}
			return
		}
		if cmErr := tx.Commit(ctx); cmErr != nil {
			r.log.Error(ctx, "cannot commit user deletion", "user_name", userName, "error", cmErr)
			err = apperror.NewDatabaseError("cannot delete user", cmErr)
		}
	}()

	if _, err = tx.Exec(ctx, `DELETE FROM messages WHERE author_username = $1`, userName); err != nil {
		r.log.Error(ctx, "cannot delete user messages", "user_name", userName, "error", err)
		return apperror.NewDatabaseError("cannot delete user", err)
	}

	tag, err := tx.Exec(ctx, `DELETE FROM users WHERE username = $1`, userName)
	if err != nil {
		r.log.Error(ctx, "cannot delete user", "user_name", userName, "error", err)
		return apperror.NewDatabaseError("cannot delete user", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFoundError(apperror.PageNotFound, nil)
	}

	r.log.Info(ctx, "user deleted", "user_name", userName)
	return nil
}

// SearchUsers returns at most limit accounts whose username or display name
// contains q, case-insensitively, ordered by username.
func (r *UserRepository) SearchUsers(ctx context.Context, q string, limit int) ([]User, error) {
	q = strings.TrimSpace(q)
	if q == "" || limit <= 0 {
		return []User{}, nil
	}

	query := `SELECT ` + userColumns + `
		FROM users
		WHERE username ILIKE $1 OR names ILIKE $1
		ORDER BY username
		LIMIT $2`
	rows, err := r.db.Query(ctx, query, db.ContainsPattern(q), limit)
	if err != nil {
		r.log.Error(ctx, "cannot search users", "query", q, "error", err)
		return nil, apperror.NewDatabaseError("cannot search users", err)
	}
	defer rows.Close()

	result := []User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			r.log.Error(ctx, "cannot scan user", "error", err)
			return nil, apperror.NewDatabaseError("cannot search users", err)
		}
		result = append(result, *user)
	}
	if err := rows.Err(); err != nil {
		r.log.Error(ctx, "cannot iterate users", "error", err)
		return nil, apperror.NewDatabaseError("cannot search users", err)
	}
	return result, nil
}
