package messages

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/tvitter-go/apperror"
	"github.com/user/tvitter-go/logging"
)

var messageRowColumns = []string{"id", "content", "location", "author_username", "author_picture", "created_at", "seq"}

var author = Author{UserName: "diditests", Picture: "some/path"}

func newTestRepo(t *testing.T) (*MessageRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewMessageRepository(mock, logging.Discard()), mock
}

func TestCreate(t *testing.T) {
	repo, mock := newTestRepo(t)
	now := time.Date(2024, 6, 1, 12, 0, 0, 987654321, time.UTC)
	repo.now = func() time.Time { return now }

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO messages (.+) RETURNING seq`).
		WithArgs(pgxmock.AnyArg(), "testing is great!", "in the office", author.UserName, author.Picture,
			now.Truncate(time.Microsecond)).
		WillReturnRows(pgxmock.NewRows([]string{"seq"}).AddRow(int64(7)))
	mock.ExpectExec(`UPDATE users SET messages = array_append\(messages, \$1\) WHERE username = \$2`).
		WithArgs(pgxmock.AnyArg(), author.UserName).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	message, err := repo.Create(context.Background(), Message{
		Content:  "testing is great!",
		Location: "in the office",
	}, author)
	require.NoError(t, err)

	_, parseErr := uuid.Parse(message.ID)
	assert.NoError(t, parseErr)
	assert.Equal(t, "testing is great!", message.Content)
	assert.Equal(t, "in the office", message.Location)
	assert.Equal(t, author, message.Author)
	assert.Equal(t, int64(7), message.Seq)
	assert.Equal(t, 987654000, message.CreatedAt.Nanosecond())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_MissingAuthorRollsBack(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO messages`).
		WithArgs(pgxmock.AnyArg(), "hi", "", "ghost", "", pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"seq"}).AddRow(int64(1)))
	mock.ExpectExec(`UPDATE users SET messages = array_append`).
		WithArgs(pgxmock.AnyArg(), "ghost").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	message, err := repo.Create(context.Background(), Message{Content: "hi"}, Author{UserName: "ghost"})
	assert.Nil(t, message)
	assert.True(t, apperror.IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_InsertFailureRollsBack(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO messages`).
		WithArgs(pgxmock.AnyArg(), "hi", "", author.UserName, author.Picture, pgxmock.AnyArg()).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := repo.Create(context.Background(), Message{Content: "hi"}, author)
	assert.True(t, apperror.IsDatabaseError(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_RequiresAuthor(t *testing.T) {
	repo, mock := newTestRepo(t)

	_, err := repo.Create(context.Background(), Message{Content: "hi"}, Author{})
	assert.True(t, apperror.IsValidationError(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetLatestNByUsers(t *testing.T) {
	repo, mock := newTestRepo(t)
	created := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`WHERE author_username = ANY\(\$1\)\s+ORDER BY created_at DESC, seq DESC\s+LIMIT \$2`).
		WithArgs([]string{author.UserName}, 10).
		WillReturnRows(pgxmock.NewRows(messageRowColumns).
			AddRow("m2", "second", "", author.UserName, author.Picture, created, int64(2)).
			AddRow("m1", "first", "home", author.UserName, author.Picture, created, int64(1)))

	result, err := repo.GetLatestNByUsers(context.Background(), []string{author.UserName}, 10)
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, "m2", result[0].ID)
	assert.Equal(t, author, result[0].Author)
	assert.Equal(t, "home", result[1].Location)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetLatestNByUsers_NoQueryForEmptyInput(t *testing.T) {
	repo, mock := newTestRepo(t)
	ctx := context.Background()

	for _, tc := range []struct {
		name  string
		users []string
		n     int
	}{
		{"zero limit", []string{"a"}, 0},
		{"negative limit", []string{"a"}, -3},
		{"no users", nil, 10},
	} {
		t.Run(tc.name, func(t *testing.T) {
			result, err := repo.GetLatestNByUsers(ctx, tc.users, tc.n)
			require.NoError(t, err)
			assert.NotNil(t, result)
			assert.Empty(t, result)
		})
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetLatestNByUsers_DatabaseError(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectQuery(`FROM messages`).
		WithArgs([]string{"a"}, 5).
		WillReturnError(errors.New("timeout"))

	result, err := repo.GetLatestNByUsers(context.Background(), []string{"a"}, 5)
	assert.Nil(t, result)
	assert.True(t, apperror.IsDatabaseError(err))
}

func TestDelete(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM messages WHERE id = \$1 AND author_username = \$2`).
		WithArgs("m1", author.UserName).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(`UPDATE users SET messages = array_remove\(messages, \$1\) WHERE username = \$2`).
		WithArgs("m1", author.UserName).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), "m1", author.UserName))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete_WrongAuthorIsNotFound(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM messages`).
		WithArgs("m1", "intruder").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectRollback()

	err := repo.Delete(context.Background(), "m1", "intruder")
	assert.True(t, apperror.IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete_BackReferenceFailureRollsBack(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM messages`).
		WithArgs("m1", author.UserName).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(`UPDATE users SET messages = array_remove`).
		WithArgs("m1", author.UserName).
		WillReturnError(errors.New("deadlock"))
	mock.ExpectRollback()

	err := repo.Delete(context.Background(), "m1", author.UserName)
	assert.True(t, apperror.IsDatabaseError(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearch(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectQuery(`WHERE content ILIKE \$1`).
		WithArgs("%great%", 20).
		WillReturnRows(pgxmock.NewRows(messageRowColumns).
			AddRow("m1", "testing is great!", "", author.UserName, author.Picture, time.Now(), int64(1)))

	result, err := repo.Search(context.Background(), "great", 20)
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "m1", result[0].ID)

	empty, err := repo.Search(context.Background(), " ", 20)
	require.NoError(t, err)
	assert.Empty(t, empty)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTopAuthors(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectQuery(`SELECT username, picture, cardinality\(messages\)`).
		WithArgs(3).
		WillReturnRows(pgxmock.NewRows([]string{"username", "picture", "message_count"}).
			AddRow("didi93", "/static/img/avatar.png", 12).
			AddRow("pesho", "/static/img/avatar.png", 4))

	result, err := repo.TopAuthors(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, "didi93", result[0].UserName)
	assert.Equal(t, 12, result[0].MessageCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestValidateContent(t *testing.T) {
	assert.Equal(t, "is required", ValidateContent("   "))
	assert.Equal(t, "", ValidateContent("hello"))
	assert.Equal(t, "", ValidateContent(strings.Repeat("я", MaxContentLength)))
	assert.Contains(t, ValidateContent(strings.Repeat("a", MaxContentLength+1)), "at most")
}

func TestGetByID(t *testing.T) {
	repo, mock := newTestRepo(t)
	created := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM messages WHERE id = \$1`).
		WithArgs("m1").
		WillReturnRows(pgxmock.NewRows(messageRowColumns).
			AddRow("m1", "first", "home", author.UserName, author.Picture, created, int64(1)))

	message, err := repo.GetByID(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, "first", message.Content)
	assert.Equal(t, author, message.Author)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByID_Outcomes(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantCheck func(error) bool
	}{
		{"unknown id", pgx.ErrNoRows, apperror.IsNotFound},
		{"database failure", errors.New("connection reset"), apperror.IsDatabaseError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newTestRepo(t)
			mock.ExpectQuery(`FROM messages WHERE id = \$1`).WithArgs("nope").WillReturnError(tt.err)

			message, err := repo.GetByID(context.Background(), "nope")
			assert.Nil(t, message)
			assert.True(t, tt.wantCheck(err))
			assert.False(t, apperror.IsNotFound(err) && apperror.IsDatabaseError(err))
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
