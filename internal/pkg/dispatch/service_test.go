package dispatch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PayButton/paybutton-server/app/models"
	"github.com/PayButton/paybutton-server/internal/pkg/mail"
)

// fakeRepo serves fixed trigger snapshots and mirrors the real commit
// semantics: all-or-nothing, with debits clamped against the live balance.
type fakeRepo struct {
	mu           sync.Mutex
	triggers     map[string][]ResolvedTrigger
	users        map[uint]*models.User
	logs         []models.TriggerLog
	resolveCalls int
	commitCalls  int
	resolveErr   error
	commitErr    error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		triggers: map[string][]ResolvedTrigger{},
		users:    map[uint]*models.User{},
	}
}

func (f *fakeRepo) ResolveTriggers(addresses []string) (map[string][]ResolvedTrigger, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resolveCalls++
	if f.resolveErr != nil {
		return nil, f.resolveErr
	}
	out := map[string][]ResolvedTrigger{}
	for _, addr := range addresses {
		if rts, ok := f.triggers[addr]; ok {
			out[addr] = rts
		}
	}
	return out, nil
}

func (f *fakeRepo) CommitBatch(logs []models.TriggerLog, debits map[uint]AcceptedCounts) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commitCalls++
	if f.commitErr != nil {
		return f.commitErr
	}
	f.logs = append(f.logs, logs...)
	for userID, counts := range debits {
		user := f.users[userID]
		if user == nil {
			continue
		}
		user.PostCredits -= clampDebit(user.PostCredits, counts.Post)
		user.EmailCredits -= clampDebit(user.EmailCredits, counts.Email)
	}
	return nil
}

func (f *fakeRepo) logsByError(isError bool) []models.TriggerLog {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.TriggerLog
	for _, l := range f.logs {
		if l.IsError == isError {
			out = append(out, l)
		}
	}
	return out
}

// fakeMailer accepts every recipient unless an accept filter is set.
type fakeMailer struct {
	mu     sync.Mutex
	sends  int
	accept func(to []string) *mail.SendResult
	err    error
}

func (f *fakeMailer) Send(ctx context.Context, to []string, subject, htmlBody string) (*mail.SendResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends++
	if f.err != nil {
		return nil, f.err
	}
	if f.accept != nil {
		return f.accept(to), nil
	}
	return &mail.SendResult{Accepted: to}, nil
}

func newTestDispatcher(repo Repository, mailer mail.Mailer) *Dispatcher {
	return NewDispatcher(repo, mailer, nil, nil, Config{
		PostTimeout:   2 * time.Second,
		PostPoolSize:  4,
		EmailPoolSize: 4,
		LogChunkSize:  10,
		SigningSecret: "test-secret",
	})
}

func postTrigger(id uint, url string) models.Trigger {
	return models.Trigger{
		ID:       id,
		PostURL:  url,
		PostData: `{"txId": <txId>, "amount": <amount>, "signature": <signature>}`,
	}
}

func payment(hash string) Payment {
	return Payment{
		Hash:      hash,
		Amount:    decimal.NewFromFloat(100.5),
		Timestamp: 1664593200,
		Confirmed: true,
	}
}

func TestDispatchEmptyBatch(t *testing.T) {
	repo := newFakeRepo()
	d := newTestDispatcher(repo, &fakeMailer{})

	require.NoError(t, d.DispatchBatch(context.Background(), nil, models.NetworkIDEcash))
	require.NoError(t, d.DispatchBatch(context.Background(), []BroadcastTxData{{Address: "ecash:qq1"}}, models.NetworkIDEcash))

	assert.Zero(t, repo.resolveCalls, "empty batches must not hit the resolver")
	assert.Zero(t, repo.commitCalls)
}

func TestDispatchDisabled(t *testing.T) {
	repo := newFakeRepo()
	d := NewDispatcher(repo, &fakeMailer{}, nil, nil, Config{Disabled: true, SigningSecret: "s"})

	batch := []BroadcastTxData{{Address: "ecash:qq1", Txs: []Payment{payment("tx1")}}}
	require.NoError(t, d.DispatchBatch(context.Background(), batch, models.NetworkIDEcash))

	assert.Zero(t, repo.resolveCalls)
	assert.Zero(t, repo.commitCalls)
}

// Scenario D: payments for an address with no triggers produce no tasks and
// no logs.
func TestDispatchAddressWithoutTriggers(t *testing.T) {
	repo := newFakeRepo()
	d := newTestDispatcher(repo, &fakeMailer{})

	batch := []BroadcastTxData{{Address: "ecash:qq1", Txs: []Payment{payment("tx1")}}}
	require.NoError(t, d.DispatchBatch(context.Background(), batch, models.NetworkIDEcash))

	assert.Equal(t, 1, repo.resolveCalls)
	assert.Empty(t, repo.logs)
}

// Scenario A: one post credit, three post-eligible deliveries. Exactly one
// task runs, two skip logs are written, and the balance ends at zero.
func TestDispatchAdmissionLimitsScheduling(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	repo := newFakeRepo()
	repo.users[1] = &models.User{ID: 1, PostCredits: 1, EmailCredits: 0}
	repo.triggers["ecash:qq1"] = []ResolvedTrigger{{
		Trigger:     postTrigger(10, server.URL),
		ButtonName:  "Shop",
		UserID:      1,
		PostCredits: 1,
	}}

	d := newTestDispatcher(repo, &fakeMailer{})
	batch := []BroadcastTxData{{
		Address: "ecash:qq1",
		Txs:     []Payment{payment("tx1"), payment("tx2"), payment("tx3")},
	}}
	require.NoError(t, d.DispatchBatch(context.Background(), batch, models.NetworkIDEcash))

	assert.Equal(t, int32(1), atomic.LoadInt32(&hits), "only one delivery may be attempted")
	require.Len(t, repo.logs, 3, "one delivery log and two skip logs")

	skips := repo.logsByError(true)
	require.Len(t, skips, 2)
	for _, l := range skips {
		assert.Contains(t, l.Data, errNameOutOfCredits)
		assert.Equal(t, models.ChannelPost, l.ActionType)
	}
	assert.Equal(t, 0, repo.users[1].PostCredits)
}

// Scenario B: the destination answers 500; the log row is error-flagged and
// no credit is debited.
func TestDispatchPostServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	repo := newFakeRepo()
	repo.users[1] = &models.User{ID: 1, PostCredits: 5}
	repo.triggers["ecash:qq1"] = []ResolvedTrigger{{
		Trigger:     postTrigger(10, server.URL),
		UserID:      1,
		PostCredits: 5,
	}}

	d := newTestDispatcher(repo, &fakeMailer{})
	batch := []BroadcastTxData{{Address: "ecash:qq1", Txs: []Payment{payment("tx1")}}}
	require.NoError(t, d.DispatchBatch(context.Background(), batch, models.NetworkIDEcash))

	require.Len(t, repo.logs, 1)
	assert.True(t, repo.logs[0].IsError)
	assert.Contains(t, repo.logs[0].Data, "500")
	assert.Equal(t, 5, repo.users[1].PostCredits, "failed delivery must not be debited")
}

// Scenario C: the relay rejects the configured recipient; the delivery is
// not credit-worthy but the response is logged.
func TestDispatchEmailRecipientRejected(t *testing.T) {
	repo := newFakeRepo()
	repo.users[1] = &models.User{ID: 1, EmailCredits: 5}
	repo.triggers["ecash:qq1"] = []ResolvedTrigger{{
		Trigger:      models.Trigger{ID: 20, Emails: "owner@example.com"},
		UserID:       1,
		EmailCredits: 5,
	}}

	mailer := &fakeMailer{accept: func(to []string) *mail.SendResult {
		rejected := map[string]string{}
		for _, r := range to {
			rejected[r] = "550 mailbox unavailable"
		}
		return &mail.SendResult{Rejected: rejected}
	}}

	d := newTestDispatcher(repo, mailer)
	batch := []BroadcastTxData{{Address: "ecash:qq1", Txs: []Payment{payment("tx1")}}}
	require.NoError(t, d.DispatchBatch(context.Background(), batch, models.NetworkIDEcash))

	require.Len(t, repo.logs, 1)
	assert.True(t, repo.logs[0].IsError)
	assert.Equal(t, models.ChannelEmail, repo.logs[0].ActionType)
	assert.Contains(t, repo.logs[0].Data, "550 mailbox unavailable")
	assert.Equal(t, 5, repo.users[1].EmailCredits)
}

func TestDispatchEmailAccepted(t *testing.T) {
	repo := newFakeRepo()
	repo.users[1] = &models.User{ID: 1, EmailCredits: 2}
	repo.triggers["ecash:qq1"] = []ResolvedTrigger{{
		Trigger:      models.Trigger{ID: 20, Emails: "owner@example.com, second@example.com"},
		UserID:       1,
		EmailCredits: 2,
	}}

	mailer := &fakeMailer{}
	d := newTestDispatcher(repo, mailer)
	batch := []BroadcastTxData{{Address: "ecash:qq1", Txs: []Payment{payment("tx1")}}}
	require.NoError(t, d.DispatchBatch(context.Background(), batch, models.NetworkIDEcash))

	assert.Equal(t, 1, mailer.sends)
	require.Len(t, repo.logs, 1)
	assert.False(t, repo.logs[0].IsError)
	assert.Equal(t, 1, repo.users[1].EmailCredits, "one credit per accepted delivery, not per recipient")
}

// One trigger's transport failure must not prevent logging or delivery for
// its siblings in the same batch.
func TestDispatchFailureIsolation(t *testing.T) {
	okServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer okServer.Close()
	badServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer badServer.Close()

	repo := newFakeRepo()
	repo.users[1] = &models.User{ID: 1, PostCredits: 10}
	repo.triggers["ecash:qq1"] = []ResolvedTrigger{
		{Trigger: postTrigger(10, badServer.URL), UserID: 1, PostCredits: 10},
		{Trigger: postTrigger(11, okServer.URL), UserID: 1, PostCredits: 10},
	}

	d := newTestDispatcher(repo, &fakeMailer{})
	batch := []BroadcastTxData{{Address: "ecash:qq1", Txs: []Payment{payment("tx1")}}}
	require.NoError(t, d.DispatchBatch(context.Background(), batch, models.NetworkIDEcash))

	require.Len(t, repo.logs, 2)
	assert.Len(t, repo.logsByError(true), 1)
	assert.Len(t, repo.logsByError(false), 1)
	assert.Equal(t, 9, repo.users[1].PostCredits, "only the accepted delivery is debited")
}

// A malformed stored template fails that task alone.
func TestDispatchRenderFailureIsolation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	broken := models.Trigger{ID: 10, PostURL: server.URL, PostData: `{"amount": <amount>`}
	repo := newFakeRepo()
	repo.users[1] = &models.User{ID: 1, PostCredits: 10}
	repo.triggers["ecash:qq1"] = []ResolvedTrigger{
		{Trigger: broken, UserID: 1, PostCredits: 10},
		{Trigger: postTrigger(11, server.URL), UserID: 1, PostCredits: 10},
	}

	d := newTestDispatcher(repo, &fakeMailer{})
	batch := []BroadcastTxData{{Address: "ecash:qq1", Txs: []Payment{payment("tx1")}}}
	require.NoError(t, d.DispatchBatch(context.Background(), batch, models.NetworkIDEcash))

	require.Len(t, repo.logs, 2)
	errLogs := repo.logsByError(true)
	require.Len(t, errLogs, 1)
	assert.Contains(t, errLogs[0].Data, errNameRender)
	assert.Equal(t, 9, repo.users[1].PostCredits)
}

// At most one delivery attempt per (trigger, payment) pair in a batch.
func TestDispatchAtMostOnce(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	repo := newFakeRepo()
	repo.users[1] = &models.User{ID: 1, PostCredits: 10}
	repo.triggers["ecash:qq1"] = []ResolvedTrigger{
		{Trigger: postTrigger(10, server.URL), UserID: 1, PostCredits: 10},
	}

	d := newTestDispatcher(repo, &fakeMailer{})
	batch := []BroadcastTxData{{Address: "ecash:qq1", Txs: []Payment{payment("tx1"), payment("tx2")}}}
	require.NoError(t, d.DispatchBatch(context.Background(), batch, models.NetworkIDEcash))

	assert.Equal(t, int32(2), atomic.LoadInt32(&hits), "one attempt per payment, never more")
}

// Scenario E: two batches dispatched with the same stale snapshot; after both
// commit the persisted balance is clamped at zero, never negative.
func TestDispatchConcurrentBatchesClampAtCommit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	repo := newFakeRepo()
	repo.users[1] = &models.User{ID: 1, PostCredits: 5}
	// The resolver snapshot stays at 5 for both batches, simulating two
	// concurrent batch invocations reading before either commits.
	repo.triggers["ecash:qq1"] = []ResolvedTrigger{
		{Trigger: postTrigger(10, server.URL), UserID: 1, PostCredits: 5},
	}

	d := newTestDispatcher(repo, &fakeMailer{})
	txs := []Payment{payment("tx1"), payment("tx2"), payment("tx3"), payment("tx4"), payment("tx5")}
	batch := []BroadcastTxData{{Address: "ecash:qq1", Txs: txs}}

	require.NoError(t, d.DispatchBatch(context.Background(), batch, models.NetworkIDEcash))
	require.NoError(t, d.DispatchBatch(context.Background(), batch, models.NetworkIDEcash))

	assert.Equal(t, 0, repo.users[1].PostCredits, "balance must clamp at zero despite 10 accepted deliveries")
	assert.GreaterOrEqual(t, repo.users[1].PostCredits, 0)
}

func TestDispatchResolverErrorIsFatal(t *testing.T) {
	repo := newFakeRepo()
	repo.resolveErr = errors.New("connection refused")

	d := newTestDispatcher(repo, &fakeMailer{})
	batch := []BroadcastTxData{{Address: "ecash:qq1", Txs: []Payment{payment("tx1")}}}

	err := d.DispatchBatch(context.Background(), batch, models.NetworkIDEcash)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trigger resolution failed")
	assert.Zero(t, repo.commitCalls)
}

func TestDispatchCommitErrorIsFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	repo := newFakeRepo()
	repo.users[1] = &models.User{ID: 1, PostCredits: 5}
	repo.triggers["ecash:qq1"] = []ResolvedTrigger{
		{Trigger: postTrigger(10, server.URL), UserID: 1, PostCredits: 5},
	}
	repo.commitErr = errors.New("deadlock detected")

	d := newTestDispatcher(repo, &fakeMailer{})
	batch := []BroadcastTxData{{Address: "ecash:qq1", Txs: []Payment{payment("tx1")}}}

	err := d.DispatchBatch(context.Background(), batch, models.NetworkIDEcash)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batch commit failed")
	assert.Empty(t, repo.logs, "nothing may be visible after a failed commit")
	assert.Equal(t, 5, repo.users[1].PostCredits)
}
