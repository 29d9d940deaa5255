package services_test

import (
	"context"
	"testing"
	"time"

	"signalhub/internal/core/domain"
	"signalhub/internal/core/ports"
	"signalhub/internal/core/services"
	"signalhub/internal/infrastructure/repositories/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCallFixture(t *testing.T, ringTimeout time.Duration) (ports.CallService, ports.ConnectionRegistry) {
	t.Helper()
	registry := memory.NewMemoryConnectionRegistry()
	svc := services.NewCallService(memory.NewMemoryCallRepository(), registry, ringTimeout, nil, testLogger)
	t.Cleanup(svc.Shutdown)
	return svc, registry
}

func TestInitiateCall_NotifiesBothParties(t *testing.T) {
	svc, registry := newCallFixture(t, time.Minute)
	ctx := context.Background()

	alice := registerUser(t, registry, "alice", "Alice")
	bob := registerUser(t, registry, "bob", "Bob")

	require.NoError(t, svc.InitiateCall(ctx, "alice", "Alice", "bob", true))

	env, ok := bob.lastOfType(domain.MsgIncomingCall)
	require.True(t, ok, "receiver should get incomingCall")
	payload := env.Payload.(domain.IncomingCallPayload)
	assert.Equal(t, domain.UserID("alice"), payload.CallerID)
	assert.Equal(t, "Alice", payload.CallerName)
	assert.True(t, payload.IsVideo)

	env, ok = alice.lastOfType(domain.MsgCallInitiated)
	require.True(t, ok, "caller should get callInitiated")
	assert.Equal(t, domain.UserID("bob"), env.Payload.(domain.CallInitiatedPayload).ReceiverID)

	active, err := svc.ActiveCalls(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, domain.CallStateRinging, active[0].State)
}

func TestInitiateCall_SelfCall(t *testing.T) {
	svc, registry := newCallFixture(t, time.Minute)
	registerUser(t, registry, "alice", "Alice")

	err := svc.InitiateCall(context.Background(), "alice", "Alice", "alice", false)
	assert.ErrorIs(t, err, domain.ErrSelfCall)
}

func TestInitiateCall_ReceiverOffline(t *testing.T) {
	svc, registry := newCallFixture(t, time.Minute)
	ctx := context.Background()
	registerUser(t, registry, "alice", "Alice")

	err := svc.InitiateCall(ctx, "alice", "Alice", "bob", false)
	assert.ErrorIs(t, err, domain.ErrUserOffline)

	// No ringing state may survive a failed initiate.
	active, err := svc.ActiveCalls(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestInitiateCall_PairBusy(t *testing.T) {
	svc, registry := newCallFixture(t, time.Minute)
	ctx := context.Background()
	registerUser(t, registry, "alice", "Alice")
	registerUser(t, registry, "bob", "Bob")

	require.NoError(t, svc.InitiateCall(ctx, "alice", "Alice", "bob", false))

	assert.ErrorIs(t, svc.InitiateCall(ctx, "alice", "Alice", "bob", false), domain.ErrPairBusy)
	// The reverse direction is busy too.
	assert.ErrorIs(t, svc.InitiateCall(ctx, "bob", "Bob", "alice", false), domain.ErrPairBusy)
}

func TestAcceptCall_ConnectsAndNotifiesCaller(t *testing.T) {
	svc, registry := newCallFixture(t, time.Minute)
	ctx := context.Background()
	alice := registerUser(t, registry, "alice", "Alice")
	registerUser(t, registry, "bob", "Bob")

	require.NoError(t, svc.InitiateCall(ctx, "alice", "Alice", "bob", false))
	require.NoError(t, svc.AcceptCall(ctx, "alice", "bob"))

	env, ok := alice.lastOfType(domain.MsgCallAccepted)
	require.True(t, ok)
	assert.Equal(t, domain.UserID("bob"), env.Payload.(domain.CallAcceptedPayload).ReceiverID)

	active, err := svc.ActiveCalls(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, domain.CallStateConnected, active[0].State)
}

func TestAcceptCall_SecondAcceptIsNoOp(t *testing.T) {
	svc, registry := newCallFixture(t, time.Minute)
	ctx := context.Background()
	alice := registerUser(t, registry, "alice", "Alice")
	registerUser(t, registry, "bob", "Bob")

	require.NoError(t, svc.InitiateCall(ctx, "alice", "Alice", "bob", false))
	require.NoError(t, svc.AcceptCall(ctx, "alice", "bob"))
	require.NoError(t, svc.AcceptCall(ctx, "alice", "bob"))

	assert.Equal(t, 1, alice.countByType(domain.MsgCallAccepted))
}

func TestAcceptCall_UnknownCall(t *testing.T) {
	svc, registry := newCallFixture(t, time.Minute)
	registerUser(t, registry, "alice", "Alice")

	err := svc.AcceptCall(context.Background(), "alice", "bob")
	assert.ErrorIs(t, err, domain.ErrCallNotFound)
}

func TestRejectCall_NotifiesCallerWithReason(t *testing.T) {
	svc, registry := newCallFixture(t, time.Minute)
	ctx := context.Background()
	alice := registerUser(t, registry, "alice", "Alice")
	registerUser(t, registry, "bob", "Bob")

	require.NoError(t, svc.InitiateCall(ctx, "alice", "Alice", "bob", false))
	require.NoError(t, svc.RejectCall(ctx, "alice", "bob", "busy right now"))

	env, ok := alice.lastOfType(domain.MsgCallRejected)
	require.True(t, ok)
	assert.Equal(t, "busy right now", env.Payload.(domain.CallRejectedPayload).Reason)

	active, err := svc.ActiveCalls(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestRejectCall_DefaultReason(t *testing.T) {
	svc, registry := newCallFixture(t, time.Minute)
	ctx := context.Background()
	alice := registerUser(t, registry, "alice", "Alice")
	registerUser(t, registry, "bob", "Bob")

	require.NoError(t, svc.InitiateCall(ctx, "alice", "Alice", "bob", false))
	require.NoError(t, svc.RejectCall(ctx, "alice", "bob", ""))

	env, ok := alice.lastOfType(domain.MsgCallRejected)
	require.True(t, ok)
	assert.Equal(t, "Call rejected", env.Payload.(domain.CallRejectedPayload).Reason)
}

func TestRejectCall_StaleRejectIsSilent(t *testing.T) {
	svc, registry := newCallFixture(t, time.Minute)
	ctx := context.Background()
	alice := registerUser(t, registry, "alice", "Alice")
	registerUser(t, registry, "bob", "Bob")

	// No call at all.
	require.NoError(t, svc.RejectCall(ctx, "alice", "bob", ""))
	assert.Equal(t, 0, alice.countByType(domain.MsgCallRejected))

	// Reject after the call already connected.
	require.NoError(t, svc.InitiateCall(ctx, "alice", "Alice", "bob", false))
	require.NoError(t, svc.AcceptCall(ctx, "alice", "bob"))
	require.NoError(t, svc.RejectCall(ctx, "alice", "bob", ""))
	assert.Equal(t, 0, alice.countByType(domain.MsgCallRejected))
}

func TestEndCall_NotifiesOtherParty(t *testing.T) {
	svc, registry := newCallFixture(t, time.Minute)
	ctx := context.Background()
	alice := registerUser(t, registry, "alice", "Alice")
	registerUser(t, registry, "bob", "Bob")

	require.NoError(t, svc.InitiateCall(ctx, "alice", "Alice", "bob", false))
	require.NoError(t, svc.AcceptCall(ctx, "alice", "bob"))

	// Either party may hang up; here the receiver does.
	require.NoError(t, svc.EndCall(ctx, "bob", "alice"))

	env, ok := alice.lastOfType(domain.MsgCallEnded)
	require.True(t, ok)
	assert.Equal(t, domain.UserID("bob"), env.Payload.(domain.CallEndedPayload).UserID)

	// The pair is free again.
	require.NoError(t, svc.InitiateCall(ctx, "alice", "Alice", "bob", false))
}

func TestEndCall_UnknownCallIsNoOp(t *testing.T) {
	svc, registry := newCallFixture(t, time.Minute)
	registerUser(t, registry, "alice", "Alice")

	assert.NoError(t, svc.EndCall(context.Background(), "alice", "bob"))
}

func TestRingTimeout_NotifiesCallerOnce(t *testing.T) {
	svc, registry := newCallFixture(t, 30*time.Millisecond)
	ctx := context.Background()
	alice := registerUser(t, registry, "alice", "Alice")
	registerUser(t, registry, "bob", "Bob")

	require.NoError(t, svc.InitiateCall(ctx, "alice", "Alice", "bob", false))

	require.Eventually(t, func() bool {
		return alice.countByType(domain.MsgCallRejected) == 1
	}, time.Second, 5*time.Millisecond)

	env, _ := alice.lastOfType(domain.MsgCallRejected)
	assert.Equal(t, "Call not answered", env.Payload.(domain.CallRejectedPayload).Reason)

	active, err := svc.ActiveCalls(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)

	// An accept arriving after the timeout is a dead letter.
	assert.ErrorIs(t, svc.AcceptCall(ctx, "alice", "bob"), domain.ErrCallNotFound)
}

func TestRingTimeout_CancelledByAccept(t *testing.T) {
	svc, registry := newCallFixture(t, 30*time.Millisecond)
	ctx := context.Background()
	alice := registerUser(t, registry, "alice", "Alice")
	registerUser(t, registry, "bob", "Bob")

	require.NoError(t, svc.InitiateCall(ctx, "alice", "Alice", "bob", false))
	require.NoError(t, svc.AcceptCall(ctx, "alice", "bob"))

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, 0, alice.countByType(domain.MsgCallRejected))

	active, err := svc.ActiveCalls(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, domain.CallStateConnected, active[0].State)
}

func TestEndAllForUser_TerminatesEveryCall(t *testing.T) {
	svc, registry := newCallFixture(t, time.Minute)
	ctx := context.Background()
	registerUser(t, registry, "alice", "Alice")
	bob := registerUser(t, registry, "bob", "Bob")
	carol := registerUser(t, registry, "carol", "Carol")

	require.NoError(t, svc.InitiateCall(ctx, "alice", "Alice", "bob", false))
	require.NoError(t, svc.AcceptCall(ctx, "alice", "bob"))
	require.NoError(t, svc.InitiateCall(ctx, "carol", "Carol", "alice", false))

	require.NoError(t, svc.EndAllForUser(ctx, "alice"))

	assert.Equal(t, 1, bob.countByType(domain.MsgCallEnded))
	assert.Equal(t, 1, carol.countByType(domain.MsgCallEnded))

	active, err := svc.ActiveCalls(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestDeliver_OfflineRecipientDropped(t *testing.T) {
	svc, registry := newCallFixture(t, time.Minute)
	ctx := context.Background()
	alice := registerUser(t, registry, "alice", "Alice")
	registerUser(t, registry, "bob", "Bob")

	require.NoError(t, svc.InitiateCall(ctx, "alice", "Alice", "bob", false))

	// Bob vanishes before the reject; the push to alice still goes out.
	_, err := registry.Unregister(ctx, "bob")
	require.NoError(t, err)

	require.NoError(t, svc.RejectCall(ctx, "alice", "bob", "gone"))
	assert.Equal(t, 1, alice.countByType(domain.MsgCallRejected))
}
