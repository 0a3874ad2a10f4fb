package vpncode

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"vpngatebot/internal/store"
)

// mapStore is an in-memory stand-in for the document store.
type mapStore struct {
	ledger       store.CodeLedger
	channels     []string
	ledgerWrites int
	saveErr      error
}

func newMapStore() *mapStore {
	return &mapStore{ledger: store.CodeLedger{
		AvailableCodes: []string{},
		UserCodes:      map[string]string{},
	}}
}

func (m *mapStore) UpdateLedger(_ context.Context, fn func(*store.CodeLedger) (bool, error)) error {
	scratch := m.ledger
	scratch.AvailableCodes = append([]string(nil), m.ledger.AvailableCodes...)
	scratch.UserCodes = make(map[string]string, len(m.ledger.UserCodes))
	for k, v := range m.ledger.UserCodes {
		scratch.UserCodes[k] = v
	}
	dirty, err := fn(&scratch)
	if err != nil {
		return err
	}
	if !dirty {
		return nil
	}
	if m.saveErr != nil {
		return m.saveErr
	}
	m.ledger = scratch
	m.ledgerWrites++
	return nil
}

func (m *mapStore) SaveChannels(_ context.Context, channels []string) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.channels = append([]string(nil), channels...)
	return nil
}

type statusFunc func(channel string, userID int64) (string, error)

func (f statusFunc) MemberStatus(_ context.Context, channel string, userID int64) (string, error) {
	return f(channel, userID)
}

func botIsAdminEverywhere(string, int64) (string, error) { return "administrator", nil }

func newTestService(st *mapStore, check statusFunc) *Service {
	return New(st, check, 999, nil, zap.NewNop())
}

func TestGetCode_NoActiveCode(t *testing.T) {
	svc := newTestService(newMapStore(), botIsAdminEverywhere)

	_, err := svc.GetCode(context.Background(), 7)
	assert.ErrorIs(t, err, ErrNoCodeAvailable)
}

func TestGetCode_Idempotent(t *testing.T) {
	st := newMapStore()
	svc := newTestService(st, botIsAdminEverywhere)
	ctx := context.Background()

	require.NoError(t, svc.SetActiveCode(ctx, "VPN-1"))
	writesAfterSet := st.ledgerWrites

	code, err := svc.GetCode(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "VPN-1", code)
	assert.Equal(t, writesAfterSet+1, st.ledgerWrites)

	// Repeated calls while the active code is unchanged never write.
	for i := 0; i < 3; i++ {
		code, err = svc.GetCode(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, "VPN-1", code)
	}
	assert.Equal(t, writesAfterSet+1, st.ledgerWrites)
	assert.Equal(t, "VPN-1", st.ledger.UserCodes[store.UserKey(7)])
}

func TestGetCode_MigratesToNewActiveCode(t *testing.T) {
	st := newMapStore()
	svc := newTestService(st, botIsAdminEverywhere)
	ctx := context.Background()

	require.NoError(t, svc.SetActiveCode(ctx, "VPN-1"))
	_, err := svc.GetCode(ctx, 7)
	require.NoError(t, err)

	require.NoError(t, svc.SetActiveCode(ctx, "VPN-2"))
	// SetActiveCode leaves existing assignments alone.
	assert.Equal(t, "VPN-1", st.ledger.UserCodes[store.UserKey(7)])

	code, err := svc.GetCode(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "VPN-2", code)
	assert.Equal(t, "VPN-2", st.ledger.UserCodes[store.UserKey(7)])
}

func TestSetActiveCode_SingletonPool(t *testing.T) {
	st := newMapStore()
	svc := newTestService(st, botIsAdminEverywhere)
	ctx := context.Background()

	require.NoError(t, svc.SetActiveCode(ctx, "VPN-1"))
	require.NoError(t, svc.SetActiveCode(ctx, "VPN-2"))

	assert.Equal(t, []string{"VPN-2"}, st.ledger.AvailableCodes)
	assert.Equal(t, "VPN-2", st.ledger.ActiveCode)
}

func TestGetCode_StoreErrorPropagates(t *testing.T) {
	st := newMapStore()
	svc := newTestService(st, botIsAdminEverywhere)
	ctx := context.Background()

	require.NoError(t, svc.SetActiveCode(ctx, "VPN-1"))
	st.saveErr = errors.New("disk full")

	_, err := svc.GetCode(ctx, 7)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoCodeAvailable)
}

func TestUpdateChannels_Atomic(t *testing.T) {
	st := newMapStore()
	st.channels = []string{"@chan_old"}
	check := statusFunc(func(channel string, _ int64) (string, error) {
		if channel == "@chan_two" {
			return "left", nil
		}
		return "administrator", nil
	})
	svc := New(st, check, 999, []string{"@chan_old"}, zap.NewNop())

	_, err := svc.UpdateChannels(context.Background(),
		[]string{"@chan_one", "@chan_two", "@chan_three"})
	require.Error(t, err)

	var notAuth *ChannelNotAuthorizedError
	require.ErrorAs(t, err, &notAuth)
	assert.Equal(t, "@chan_two", notAuth.Channel)

	// Nothing was persisted and the in-memory list is untouched.
	assert.Equal(t, []string{"@chan_old"}, st.channels)
	assert.Equal(t, []string{"@chan_old"}, svc.Channels())
}

func TestUpdateChannels_QueryErrorFailsClosed(t *testing.T) {
	check := statusFunc(func(string, int64) (string, error) {
		return "", errors.New("chat not found")
	})
	svc := New(newMapStore(), check, 999, nil, zap.NewNop())

	_, err := svc.UpdateChannels(context.Background(), []string{"@chan_one"})
	var notAuth *ChannelNotAuthorizedError
	require.ErrorAs(t, err, &notAuth)
	assert.Equal(t, "@chan_one", notAuth.Channel)
}

func TestUpdateChannels_ReplacesListAndReturnsOld(t *testing.T) {
	st := newMapStore()
	svc := New(st, statusFunc(botIsAdminEverywhere), 999, []string{"@chan_old"}, zap.NewNop())

	old, err := svc.UpdateChannels(context.Background(), []string{"@chan_one", "@chan_two"})
	require.NoError(t, err)
	assert.Equal(t, []string{"@chan_old"}, old)
	assert.Equal(t, []string{"@chan_one", "@chan_two"}, st.channels)
	assert.Equal(t, []string{"@chan_one", "@chan_two"}, svc.Channels())
}

func TestScenario_FreshStoreLifecycle(t *testing.T) {
	st := newMapStore()
	svc := newTestService(st, botIsAdminEverywhere)
	ctx := context.Background()

	_, err := svc.GetCode(ctx, 7)
	require.ErrorIs(t, err, ErrNoCodeAvailable)

	require.NoError(t, svc.SetActiveCode(ctx, "VPN-1"))

	code, err := svc.GetCode(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "VPN-1", code)

	writes := st.ledgerWrites
	code, err = svc.GetCode(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "VPN-1", code)
	assert.Equal(t, writes, st.ledgerWrites, "second immediate call must not write")
}
