package notifications

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMail struct {
	from, to, subject string
}

type fakeMailer struct {
	sent []sentMail
	err  error
}

func (f *fakeMailer) Send(_ context.Context, from, to, subject, _ string) error {
	f.sent = append(f.sent, sentMail{from, to, subject})
	return f.err
}

type emailMap map[string]string

func (m emailMap) Email(_ context.Context, userID string) (string, error) {
	email, ok := m[userID]
	if !ok {
		return "", errors.New("no such user")
	}
	return email, nil
}

func newTestService() (*Service, *fakeMailer) {
	mailer := &fakeMailer{}
	svc := New(NewMemoryStore(), mailer, nil)
	svc.Emails = emailMap{"e1": "e1@example.com"}
	seq := 0
	svc.newID = func() string {
		seq++
		return fmt.Sprintf("n-%d", seq)
	}
	return svc, mailer
}

func TestNotifyStoresAndEmails(t *testing.T) {
	ctx := context.Background()
	svc, mailer := newTestService()
	svc.EmailEnabled = true

	require.NoError(t, svc.Notify(ctx, "e1", TypeReviewAssigned, "Review assigned", "Please update your goals"))
	require.NoError(t, svc.Notify(ctx, "ghost", TypeFeedbackReceived, "Feedback", "Nice work"))

	items, err := svc.List(ctx, "e1", 0, 0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, TypeReviewAssigned, items[0].Type)
	assert.False(t, items[0].Read())

	assert.Equal(t, []sentMail{{"no-reply@perfhub.local", "e1@example.com", "Review assigned"}}, mailer.sent)
}

func TestEmailDisabledAndFailuresAreQuiet(t *testing.T) {
	ctx := context.Background()
	svc, mailer := newTestService()

	require.NoError(t, svc.Notify(ctx, "e1", TypeFeedbackReceived, "Feedback", "body"))
	assert.Empty(t, mailer.sent)

	svc.EmailEnabled = true
	mailer.err = errors.New("smtp down")
	require.NoError(t, svc.Notify(ctx, "e1", TypeFeedbackReceived, "Feedback", "body"))

	total, err := svc.Count(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}

func TestCreateValidation(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.Create(context.Background(), "", TypeFeedbackReceived, "t", "b")
	assert.ErrorIs(t, err, ErrInvalidNotification)
	_, err = svc.Create(context.Background(), "e1", " ", "t", "b")
	assert.ErrorIs(t, err, ErrInvalidNotification)
}

func TestListPagingAndMarkRead(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()
	for i := 0; i < 5; i++ {
		require.NoError(t, svc.Notify(ctx, "e1", TypeFeedbackReceived, fmt.Sprintf("t%d", i), ""))
	}

	page, err := svc.List(ctx, "e1", 2, 1)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "n-4", page[0].ID)
	assert.Equal(t, "n-3", page[1].ID)

	require.NoError(t, svc.MarkRead(ctx, "e1", "n-4"))
	require.NoError(t, svc.MarkRead(ctx, "e1", "n-4"))
	assert.ErrorIs(t, svc.MarkRead(ctx, "someone-else", "n-4"), ErrNotificationNotFound)
	assert.ErrorIs(t, svc.MarkRead(ctx, "e1", "missing"), ErrNotificationNotFound)

	unread, err := svc.CountUnread(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, 4, unread)
}
