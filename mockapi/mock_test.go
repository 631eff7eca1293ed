package mockapi

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s0up4200/librarian/api"
	"github.com/s0up4200/librarian/session"
)

func newTestBackend(t *testing.T) (*Backend, api.Backend, *session.Session) {
	t.Helper()
	sess := session.New()
	b := New(sess, zerolog.Nop())
	b.now = func() time.Time { return time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC) }
	return b, b.API(), sess
}

func login(t *testing.T, backend api.Backend, sess *session.Session, identifier, secret string) {
	t.Helper()
	result, err := backend.Auth.Login(context.Background(), api.Credentials{Identifier: identifier, Secret: secret})
	require.NoError(t, err)
	sess.Set(*result)
}

func TestLogin(t *testing.T) {
	tests := []struct {
		name       string
		identifier string
		secret     string
		wantStatus int
	}{
		{name: "admin credentials", identifier: AdminIdentifier, secret: AdminSecret},
		{name: "wrong secret", identifier: AdminIdentifier, secret: "nope", wantStatus: 401},
		{name: "unknown identifier", identifier: "ghost", secret: "admin", wantStatus: 401},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, backend, _ := newTestBackend(t)
			result, err := backend.Auth.Login(context.Background(), api.Credentials{Identifier: tt.identifier, Secret: tt.secret})
			if tt.wantStatus != 0 {
				require.Error(t, err)
				assert.Equal(t, api.KindServerError, api.KindOf(err))
				assert.Equal(t, tt.wantStatus, api.StatusCode(err))
				assert.Equal(t, "Code 401: Invalid credentials (mock).", err.Error())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, AdminToken, result.AccessToken)
			assert.Equal(t, "1", result.UserID)
			assert.Equal(t, 0, result.Role)
			assert.NotZero(t, result.Expiry)
		})
	}
}

func TestRequiresToken(t *testing.T) {
	_, backend, sess := newTestBackend(t)
	ctx := context.Background()

	_, err := backend.Books.List(ctx)
	require.Error(t, err)
	assert.Equal(t, 401, api.StatusCode(err))

	login(t, backend, sess, AdminIdentifier, AdminSecret)
	books, err := backend.Books.List(ctx)
	require.NoError(t, err)
	assert.Len(t, books, 1)

	token, _ := sess.Token()
	require.NoError(t, backend.Auth.Logout(ctx, token))
	_, err = backend.Books.List(ctx)
	assert.Equal(t, 401, api.StatusCode(err))
}

func TestLogoutWithoutToken(t *testing.T) {
	_, backend, _ := newTestBackend(t)
	assert.ErrorIs(t, backend.Auth.Logout(context.Background(), ""), api.ErrNoToken)
}

func TestFindUnknownID(t *testing.T) {
	_, backend, sess := newTestBackend(t)
	login(t, backend, sess, AdminIdentifier, AdminSecret)

	_, err := backend.Authors.Find(context.Background(), 999)
	require.Error(t, err)
	assert.Equal(t, 404, api.StatusCode(err))
	assert.Equal(t, "Code 404: author 999 not found (mock).", err.Error())
}

func TestCreateAssignsIDs(t *testing.T) {
	_, backend, sess := newTestBackend(t)
	login(t, backend, sess, AdminIdentifier, AdminSecret)
	ctx := context.Background()

	first, err := backend.Authors.Create(ctx, &api.Author{GivenName: "Emilia", FamilyName1: "Pardo", FamilyName2: "Bazán"})
	require.NoError(t, err)
	second, err := backend.Authors.Create(ctx, &api.Author{GivenName: "Benito", FamilyName1: "Pérez", FamilyName2: "Galdós"})
	require.NoError(t, err)
	assert.Greater(t, second.GetID(), first.GetID())

	found, err := backend.Authors.Find(ctx, first.GetID())
	require.NoError(t, err)
	assert.Equal(t, "Emilia Pardo Bazán", found.FullName())

	updated, err := backend.Authors.Update(ctx, first.GetID(), &api.Author{GivenName: "Emilia", FamilyName1: "Pardo"})
	require.NoError(t, err)
	assert.Equal(t, first.GetID(), updated.GetID())
	assert.Empty(t, updated.FamilyName2)

	require.NoError(t, backend.Authors.Delete(ctx, first.GetID()))
	_, err = backend.Authors.Find(ctx, first.GetID())
	assert.Equal(t, 404, api.StatusCode(err))
}

func TestValidationBeforeAuthorization(t *testing.T) {
	_, backend, _ := newTestBackend(t)

	_, err := backend.Loans.Create(context.Background(), &api.Loan{User: &api.User{ID: api.ID(1)}})
	require.Error(t, err)
	assert.Equal(t, api.KindValidationFailure, api.KindOf(err))
}

func TestRegisterAndLogin(t *testing.T) {
	_, backend, sess := newTestBackend(t)
	ctx := context.Background()

	user, err := backend.Users.Register(ctx, &api.User{Identifier: "reader", Secret: "s3cret", GivenName: "Ana"})
	require.NoError(t, err)
	assert.Empty(t, user.Secret)
	assert.Equal(t, 1, user.Role)

	_, err = backend.Users.Register(ctx, &api.User{Identifier: "reader", Secret: "other"})
	assert.Equal(t, 409, api.StatusCode(err))

	login(t, backend, sess, "reader", "s3cret")
	token, _ := sess.Token()
	assert.Contains(t, token, "MOCK-TOKEN-")
	assert.NotEqual(t, AdminToken, token)

	me, err := backend.Users.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, user.GetID(), me.GetID())
	assert.Equal(t, "Ana", sess.Snapshot().GivenName)
}

func TestSearch(t *testing.T) {
	_, backend, sess := newTestBackend(t)
	login(t, backend, sess, AdminIdentifier, AdminSecret)
	ctx := context.Background()

	authors, err := backend.Authors.Search(ctx, "cervantes")
	require.NoError(t, err)
	assert.Len(t, authors, 1)

	_, err = backend.Authors.Search(ctx, "  ")
	assert.Equal(t, api.KindValidationFailure, api.KindOf(err))

	tests := []struct {
		name  string
		query api.BookQuery
		want  int
	}{
		{name: "empty query", query: api.BookQuery{}, want: 1},
		{name: "title", query: api.BookQuery{Title: "quijote"}, want: 1},
		{name: "author", query: api.BookQuery{Author: "Saavedra"}, want: 1},
		{name: "isbn mismatch", query: api.BookQuery{ISBN: "000"}, want: 0},
		{name: "all fields", query: api.BookQuery{Title: "Mancha", ISBN: "978-84-376-0494-7", Author: "Miguel"}, want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			books, err := backend.Books.Search(ctx, tt.query)
			require.NoError(t, err)
			assert.Len(t, books, tt.want)
		})
	}
}

func TestLoanLifecycle(t *testing.T) {
	_, backend, sess := newTestBackend(t)
	login(t, backend, sess, AdminIdentifier, AdminSecret)
	ctx := context.Background()

	copies, err := backend.Copies.ByBook(ctx, 1)
	require.NoError(t, err)
	require.Len(t, copies, 2)
	copyID := copies[0].GetID()

	loan, err := backend.Loans.Create(ctx, &api.Loan{User: &api.User{ID: api.ID(1)}, Copy: &api.Copy{ID: api.ID(copyID)}})
	require.NoError(t, err)
	assert.Equal(t, "2026-03-02", loan.LoanDate.String())
	assert.Equal(t, "2026-03-16", loan.DueDate.String())
	assert.Equal(t, AdminIdentifier, loan.User.Identifier)

	_, err = backend.Loans.Create(ctx, &api.Loan{User: &api.User{ID: api.ID(1)}, Copy: &api.Copy{ID: api.ID(copyID)}})
	assert.Equal(t, 409, api.StatusCode(err))

	c, err := backend.Copies.Find(ctx, copyID)
	require.NoError(t, err)
	assert.Equal(t, api.CopyLoaned, c.Status)

	loans, err := backend.Loans.ByUser(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, loans, 1)

	returned, err := backend.Loans.Return(ctx, loan.GetID())
	require.NoError(t, err)
	assert.True(t, returned.Returned())
	assert.Equal(t, api.CopyAvailable, returned.Copy.Status)

	_, err = backend.Loans.Return(ctx, loan.GetID())
	assert.Equal(t, 409, api.StatusCode(err))
}

func TestLoanForUnknownUserKeepsCopyAvailable(t *testing.T) {
	_, backend, sess := newTestBackend(t)
	login(t, backend, sess, AdminIdentifier, AdminSecret)
	ctx := context.Background()

	_, err := backend.Loans.Create(ctx, &api.Loan{User: &api.User{ID: api.ID(42)}, Copy: &api.Copy{ID: api.ID(1)}})
	assert.Equal(t, 404, api.StatusCode(err))

	c, err := backend.Copies.Find(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, api.CopyAvailable, c.Status)
}

func TestLoanChangesTrackCopyStatus(t *testing.T) {
	tests := []struct {
		name   string
		change func(ctx context.Context, loans api.LoanAPI, loan *api.Loan, other int64) error
		status map[int]api.CopyStatus
		err    int
	}{
		{
			name: "delete open loan",
			change: func(ctx context.Context, loans api.LoanAPI, loan *api.Loan, _ int64) error {
				return loans.Delete(ctx, loan.GetID())
			},
			status: map[int]api.CopyStatus{0: api.CopyAvailable, 1: api.CopyAvailable},
		},
		{
			name: "move to another copy",
			change: func(ctx context.Context, loans api.LoanAPI, loan *api.Loan, other int64) error {
				moved := *loan
				moved.Copy = &api.Copy{ID: api.ID(other)}
				_, err := loans.Update(ctx, loan.GetID(), &moved)
				return err
			},
			status: map[int]api.CopyStatus{0: api.CopyAvailable, 1: api.CopyLoaned},
		},
		{
			name: "move to a loaned copy",
			change: func(ctx context.Context, loans api.LoanAPI, loan *api.Loan, other int64) error {
				if _, err := loans.Create(ctx, &api.Loan{User: &api.User{ID: api.ID(1)}, Copy: &api.Copy{ID: api.ID(other)}}); err != nil {
					return err
				}
				moved := *loan
				moved.Copy = &api.Copy{ID: api.ID(other)}
				_, err := loans.Update(ctx, loan.GetID(), &moved)
				return err
			},
			status: map[int]api.CopyStatus{0: api.CopyLoaned, 1: api.CopyLoaned},
			err:    409,
		},
		{
			name: "close through return date",
			change: func(ctx context.Context, loans api.LoanAPI, loan *api.Loan, _ int64) error {
				closed := *loan
				closed.ReturnDate = &api.Date{Time: time.Date(2026, time.March, 5, 0, 0, 0, 0, time.UTC)}
				_, err := loans.Update(ctx, loan.GetID(), &closed)
				return err
			},
			status: map[int]api.CopyStatus{0: api.CopyAvailable, 1: api.CopyAvailable},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, backend, sess := newTestBackend(t)
			login(t, backend, sess, AdminIdentifier, AdminSecret)
			ctx := context.Background()

			copies, err := backend.Copies.ByBook(ctx, 1)
			require.NoError(t, err)
			require.Len(t, copies, 2)

			loan, err := backend.Loans.Create(ctx, &api.Loan{User: &api.User{ID: api.ID(1)}, Copy: &api.Copy{ID: api.ID(copies[0].GetID())}})
			require.NoError(t, err)

			err = tt.change(ctx, backend.Loans, loan, copies[1].GetID())
			if tt.err != 0 {
				assert.Equal(t, tt.err, api.StatusCode(err))
			} else {
				require.NoError(t, err)
			}

			for i, want := range tt.status {
				c, err := backend.Copies.Find(ctx, copies[i].GetID())
				require.NoError(t, err)
				assert.Equal(t, want, c.Status, "copy %d", i)
			}
		})
	}
}

func TestGroupMembers(t *testing.T) {
	_, backend, sess := newTestBackend(t)
	login(t, backend, sess, AdminIdentifier, AdminSecret)
	ctx := context.Background()

	group, err := backend.Groups.AddMember(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, group.Members, 1)
	assert.Equal(t, AdminIdentifier, group.Members[0].Identifier)

	group, err = backend.Groups.AddMember(ctx, 1, 1)
	require.NoError(t, err)
	assert.Len(t, group.Members, 1)

	_, err = backend.Groups.AddMember(ctx, 1, 77)
	assert.Equal(t, 404, api.StatusCode(err))

	group, err = backend.Groups.RemoveMember(ctx, 1, 1)
	require.NoError(t, err)
	assert.Empty(t, group.Members)

	schedules, err := backend.Schedules.ByGroup(ctx, 1)
	require.NoError(t, err)
	require.Len(t, schedules, 1)
	assert.Equal(t, "Reading club", schedules[0].Group.Name)
}

func TestReferencesMustExist(t *testing.T) {
	_, backend, sess := newTestBackend(t)
	login(t, backend, sess, AdminIdentifier, AdminSecret)
	ctx := context.Background()

	_, err := backend.Copies.Create(ctx, &api.Copy{Book: &api.Book{ID: api.ID(50)}, Code: "X"})
	assert.Equal(t, 404, api.StatusCode(err))

	_, err = backend.Schedules.Create(ctx, &api.Schedule{Group: &api.Group{ID: api.ID(50)}})
	assert.Equal(t, 404, api.StatusCode(err))

	created, err := backend.Copies.Create(ctx, &api.Copy{Book: &api.Book{ID: api.ID(1)}, Code: "DQ-003"})
	require.NoError(t, err)
	assert.Equal(t, api.CopyAvailable, created.Status)
	assert.Equal(t, "Don Quijote de la Mancha", created.Book.Title)
}
