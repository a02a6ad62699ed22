package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"tourbooking/internal/database"
	"tourbooking/internal/domain/auth"
	"tourbooking/internal/domain/notification"
	"tourbooking/internal/metrics"
)

var (
	customer = auth.Principal{UserID: 7, Role: auth.RoleCustomer}
	other    = auth.Principal{UserID: 8, Role: auth.RoleCustomer}
	staff    = auth.Principal{UserID: 1, Role: auth.RoleStaff}
	sent     = notification.Result{Sent: true}
)

type mockDispatcher struct {
	mock.Mock
}

func (m *mockDispatcher) NotifyCustomer(ctx context.Context, b notification.BookingInfo, kind notification.Kind) notification.Result {
	return m.Called(ctx, b, kind).Get(0).(notification.Result)
}

func (m *mockDispatcher) NotifyOwner(ctx context.Context, b notification.BookingInfo, kind notification.Kind, extra string) notification.Result {
	return m.Called(ctx, b, kind, extra).Get(0).(notification.Result)
}

func (m *mockDispatcher) NotifyAdminAction(ctx context.Context, b notification.BookingInfo, kind notification.Kind, detail string) notification.Result {
	return m.Called(ctx, b, kind, detail).Get(0).(notification.Result)
}

func (m *mockDispatcher) NotifyStaffMessage(ctx context.Context, msg notification.MessageInfo) notification.Result {
	return m.Called(ctx, msg).Get(0).(notification.Result)
}

func (m *mockDispatcher) SendContact(ctx context.Context, c notification.ContactInfo) (notification.Result, notification.Result) {
	args := m.Called(ctx, c)
	return args.Get(0).(notification.Result), args.Get(1).(notification.Result)
}

func quietDispatcher() *mockDispatcher {
	d := new(mockDispatcher)
	d.On("NotifyStaffMessage", mock.Anything, mock.Anything).Return(sent).Maybe()
	return d
}

type fixture struct {
	db      *gorm.DB
	svc     *Service
	notify  *mockDispatcher
	metrics *metrics.Registry
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:chat_test_%s?mode=memory&cache=shared", name)
	db, err := database.ConnectWithConfig(dsn, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db, append(auth.Models(), Models()...)...))

	users := []*auth.User{
		{ID: 1, Email: "desk@tours.local", PasswordHash: "x", Role: auth.RoleStaff, FirstName: "Support", LastName: "Desk"},
		{ID: 7, Email: "nour@travelers.io", PasswordHash: "x", Role: auth.RoleCustomer, FirstName: "Nour", LastName: "Hassan"},
		{ID: 8, Email: "omar@travelers.io", PasswordHash: "x", Role: auth.RoleCustomer, FirstName: "Omar", LastName: "Said"},
	}
	require.NoError(t, db.Create(users).Error)
	return db
}

func newFixture(t *testing.T, d *mockDispatcher) *fixture {
	t.Helper()
	db := newTestDB(t)
	reg := metrics.New()
	tick := time.Date(2030, 1, 10, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	}
	svc := NewService(NewRepository(db), auth.NewUserRepository(db), d, WithMetrics(reg), WithClock(clock))
	return &fixture{db: db, svc: svc, notify: d, metrics: reg}
}

func ptr(v int64) *int64 { return &v }

func TestSend_CustomerMessage(t *testing.T) {
	d := new(mockDispatcher)
	f := newFixture(t, d)
	ctx := context.Background()

	got, err := f.svc.Send(ctx, customer, "  Is lunch included?  ", nil)
	require.NoError(t, err)

	assert.True(t, got.IsNewUserMessage)
	assert.False(t, got.FromStaff)
	assert.Equal(t, int64(7), got.UserID)
	assert.Equal(t, "Is lunch included?", got.Message.Text)
	assert.Equal(t, "Nour Hassan", got.Message.SenderName)
	assert.False(t, got.Message.IsFromAdmin)

	var conv Conversation
	require.NoError(t, f.db.First(&conv, got.ConversationID).Error)
	assert.Equal(t, 1, conv.UnreadCount)
	assert.Equal(t, "Is lunch included?", conv.LastMessage)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ChatMessages.WithLabelValues("user")))

	// second message reuses the conversation
	again, err := f.svc.Send(ctx, customer, "And water?", nil)
	require.NoError(t, err)
	assert.Equal(t, got.ConversationID, again.ConversationID)
	var reloaded Conversation
	require.NoError(t, f.db.First(&reloaded, got.ConversationID).Error)
	assert.Equal(t, 2, reloaded.UnreadCount)

	// storing a message never sends email; callers decide via NotifyStaff
	d.AssertNotCalled(t, "NotifyStaffMessage", mock.Anything, mock.Anything)
}

func TestNotifyStaff(t *testing.T) {
	d := new(mockDispatcher)
	d.On("NotifyStaffMessage", mock.Anything, mock.MatchedBy(func(m notification.MessageInfo) bool {
		return m.SenderName == "Nour Hassan" && m.SenderEmail == "nour@travelers.io" && m.Text == "Is lunch included?"
	})).Return(sent).Once()
	f := newFixture(t, d)
	ctx := context.Background()

	got, err := f.svc.Send(ctx, customer, "Is lunch included?", nil)
	require.NoError(t, err)
	f.svc.NotifyStaff(ctx, got)

	reply, err := f.svc.Send(ctx, staff, "It is.", ptr(7))
	require.NoError(t, err)
	f.svc.NotifyStaff(ctx, reply)
	f.svc.NotifyStaff(ctx, nil)

	d.AssertExpectations(t)
	d.AssertNumberOfCalls(t, "NotifyStaffMessage", 1)
}

func TestSend_StaffMessage(t *testing.T) {
	d := new(mockDispatcher)
	f := newFixture(t, d)
	ctx := context.Background()

	_, err := f.svc.Send(ctx, staff, "Hello", nil)
	assert.ErrorIs(t, err, ErrTargetRequired)

	_, err = f.svc.Send(ctx, staff, "Hello", ptr(404))
	assert.ErrorIs(t, err, ErrUserNotFound)

	got, err := f.svc.Send(ctx, staff, "Yes, lunch is included.", ptr(7))
	require.NoError(t, err)
	assert.True(t, got.FromStaff)
	assert.False(t, got.IsNewUserMessage)
	assert.True(t, got.Message.IsFromAdmin)
	assert.Equal(t, int64(7), got.UserID)

	var conv Conversation
	require.NoError(t, f.db.First(&conv, got.ConversationID).Error)
	assert.Equal(t, 0, conv.UnreadCount)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ChatMessages.WithLabelValues("admin")))
	d.AssertNotCalled(t, "NotifyStaffMessage", mock.Anything, mock.Anything)
}

func TestSend_EmptyMessage(t *testing.T) {
	f := newFixture(t, quietDispatcher())

	_, err := f.svc.Send(context.Background(), customer, "   ", nil)
	assert.ErrorIs(t, err, ErrEmptyMessage)

	var count int64
	require.NoError(t, f.db.Model(&Message{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestNotifyStaff_FailureIsLogged(t *testing.T) {
	d := new(mockDispatcher)
	d.On("NotifyStaffMessage", mock.Anything, mock.Anything).
		Return(notification.Result{Err: errors.New("smtp down")}).Once()
	f := newFixture(t, d)

	got, err := f.svc.Send(context.Background(), customer, "Hi", nil)
	require.NoError(t, err)
	assert.NotZero(t, got.Message.ID)

	assert.NotPanics(t, func() { f.svc.NotifyStaff(context.Background(), got) })
	d.AssertExpectations(t)
}

func TestMessages_MarksCustomerSideRead(t *testing.T) {
	f := newFixture(t, quietDispatcher())
	ctx := context.Background()

	first, err := f.svc.Send(ctx, customer, "one", nil)
	require.NoError(t, err)
	_, err = f.svc.Send(ctx, customer, "two", nil)
	require.NoError(t, err)

	_, err = f.svc.Messages(ctx, customer, first.ConversationID)
	assert.ErrorIs(t, err, ErrForbidden)

	msgs, err := f.svc.Messages(ctx, staff, first.ConversationID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "one", msgs[0].Text)
	assert.Equal(t, "two", msgs[1].Text)

	var conv Conversation
	require.NoError(t, f.db.First(&conv, first.ConversationID).Error)
	assert.Equal(t, 0, conv.UnreadCount)

	var unread int64
	require.NoError(t, f.db.Model(&Message{}).Where("is_read = ?", false).Count(&unread).Error)
	assert.Zero(t, unread)

	_, err = f.svc.Messages(ctx, staff, 999)
	assert.ErrorIs(t, err, ErrConversationNotFound)
}

func TestMyMessages_CreatesAndMarksAdminRead(t *testing.T) {
	f := newFixture(t, quietDispatcher())
	ctx := context.Background()

	thread, err := f.svc.MyMessages(ctx, other)
	require.NoError(t, err)
	assert.Empty(t, thread.Messages)
	assert.Equal(t, int64(8), thread.Conversation.UserID)
	assert.Equal(t, "Omar Said", thread.Conversation.UserName)

	_, err = f.svc.Send(ctx, staff, "Welcome aboard", ptr(8))
	require.NoError(t, err)

	summary, err := f.svc.Unread(ctx, other)
	require.NoError(t, err)
	require.NotNil(t, summary.UnreadCount)
	assert.Equal(t, int64(1), *summary.UnreadCount)

	thread, err = f.svc.MyMessages(ctx, other)
	require.NoError(t, err)
	require.Len(t, thread.Messages, 1)
	assert.Equal(t, "Support Desk", thread.Messages[0].SenderName)

	summary, err = f.svc.Unread(ctx, other)
	require.NoError(t, err)
	assert.Equal(t, int64(0), *summary.UnreadCount)
}

func TestUnread_StaffTotals(t *testing.T) {
	f := newFixture(t, quietDispatcher())
	ctx := context.Background()

	for _, p := range []auth.Principal{customer, customer, other} {
		_, err := f.svc.Send(ctx, p, "hello", nil)
		require.NoError(t, err)
	}

	summary, err := f.svc.Unread(ctx, staff)
	require.NoError(t, err)
	assert.Equal(t, int64(2), *summary.UnreadConversations)
	assert.Equal(t, int64(3), *summary.TotalUnreadMessages)
	assert.Nil(t, summary.UnreadCount)

	// customer with no conversation yet
	fresh, err := f.svc.Unread(ctx, auth.Principal{UserID: 99, Role: auth.RoleCustomer})
	require.NoError(t, err)
	assert.Equal(t, int64(0), *fresh.UnreadCount)
}

func TestMarkRead(t *testing.T) {
	f := newFixture(t, quietDispatcher())
	ctx := context.Background()

	d, err := f.svc.Send(ctx, customer, "ping", nil)
	require.NoError(t, err)
	_, err = f.svc.Send(ctx, staff, "pong", ptr(7))
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.MarkRead(ctx, staff, nil), ErrConversationRequired)
	assert.ErrorIs(t, f.svc.MarkRead(ctx, staff, ptr(555)), ErrConversationNotFound)

	require.NoError(t, f.svc.MarkRead(ctx, staff, &d.ConversationID))
	var conv Conversation
	require.NoError(t, f.db.First(&conv, d.ConversationID).Error)
	assert.Equal(t, 0, conv.UnreadCount)

	// staff mark-read flags both sides of the thread
	var unread int64
	require.NoError(t, f.db.Model(&Message{}).
		Where("conversation_id = ? AND is_read = ?", d.ConversationID, false).
		Count(&unread).Error)
	assert.Zero(t, unread)

	_, err = f.svc.Send(ctx, staff, "anything else?", ptr(7))
	require.NoError(t, err)
	require.NoError(t, f.svc.MarkRead(ctx, customer, nil))
	require.NoError(t, f.db.Model(&Message{}).Where("is_read = ?", false).Count(&unread).Error)
	assert.Zero(t, unread)

	// no conversation is not an error
	assert.NoError(t, f.svc.MarkRead(ctx, other, nil))
}

func TestConversations_NewestFirst(t *testing.T) {
	f := newFixture(t, quietDispatcher())
	ctx := context.Background()

	_, err := f.svc.Send(ctx, customer, "first", nil)
	require.NoError(t, err)
	_, err = f.svc.Send(ctx, other, "second", nil)
	require.NoError(t, err)

	_, err = f.svc.Conversations(ctx, customer)
	assert.ErrorIs(t, err, ErrForbidden)

	list, err := f.svc.Conversations(ctx, staff)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, int64(8), list[0].UserID)
	assert.Equal(t, "omar@travelers.io", list[0].UserEmail)
	assert.Equal(t, int64(7), list[1].UserID)
}

func TestDeleteMessage_RewindsSummary(t *testing.T) {
	f := newFixture(t, quietDispatcher())
	ctx := context.Background()

	first, err := f.svc.Send(ctx, customer, "first", nil)
	require.NoError(t, err)
	second, err := f.svc.Send(ctx, customer, "second", nil)
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.DeleteMessage(ctx, customer, second.Message.ID), ErrForbidden)
	assert.ErrorIs(t, f.svc.DeleteMessage(ctx, staff, 12345), ErrMessageNotFound)

	require.NoError(t, f.svc.DeleteMessage(ctx, staff, second.Message.ID))
	var conv Conversation
	require.NoError(t, f.db.First(&conv, first.ConversationID).Error)
	assert.Equal(t, "first", conv.LastMessage)
	assert.Equal(t, 1, conv.UnreadCount)

	// a message staff already read does not touch the counter
	require.NoError(t, f.svc.MarkRead(ctx, staff, &first.ConversationID))
	third, err := f.svc.Send(ctx, customer, "third", nil)
	require.NoError(t, err)
	require.NoError(t, f.svc.DeleteMessage(ctx, staff, first.Message.ID))
	var afterRead Conversation
	require.NoError(t, f.db.First(&afterRead, first.ConversationID).Error)
	assert.Equal(t, 1, afterRead.UnreadCount)
	assert.Equal(t, "third", afterRead.LastMessage)

	require.NoError(t, f.svc.DeleteMessage(ctx, staff, third.Message.ID))
	var empty Conversation
	require.NoError(t, f.db.First(&empty, first.ConversationID).Error)
	assert.Equal(t, "", empty.LastMessage)
	assert.Equal(t, 0, empty.UnreadCount)
}

func TestDeleteMessage_UnreadCounterFloorsAtZero(t *testing.T) {
	f := newFixture(t, quietDispatcher())
	ctx := context.Background()

	d, err := f.svc.Send(ctx, customer, "lonely", nil)
	require.NoError(t, err)
	require.NoError(t, f.db.Model(&Conversation{}).Where("id = ?", d.ConversationID).Update("unread_count", 0).Error)

	require.NoError(t, f.svc.DeleteMessage(ctx, staff, d.Message.ID))
	var conv Conversation
	require.NoError(t, f.db.First(&conv, d.ConversationID).Error)
	assert.Equal(t, 0, conv.UnreadCount)
}

func TestDeleteConversation(t *testing.T) {
	f := newFixture(t, quietDispatcher())
	ctx := context.Background()

	d, err := f.svc.Send(ctx, customer, "bye", nil)
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.DeleteConversation(ctx, customer, d.ConversationID), ErrForbidden)
	require.NoError(t, f.svc.DeleteConversation(ctx, staff, d.ConversationID))
	assert.ErrorIs(t, f.svc.DeleteConversation(ctx, staff, d.ConversationID), ErrConversationNotFound)

	_, err = f.svc.Messages(ctx, staff, d.ConversationID)
	assert.ErrorIs(t, err, ErrConversationNotFound)
}
