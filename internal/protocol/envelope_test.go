package protocol

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserJoinedIdentity(t *testing.T) {
	t.Run("id keyed", func(t *testing.T) {
		p, err := Decode[UserJoined](json.RawMessage(`{"room":"R1","user":{"id":"a1","name":"Alice","isGm":false}}`))
		require.NoError(t, err)
		id, name, gm := p.Identity()
		assert.Equal(t, "a1", id)
		assert.Equal(t, "Alice", name)
		assert.False(t, gm)
	})
	t.Run("name keyed", func(t *testing.T) {
		p, err := Decode[UserJoined](json.RawMessage(`{"room":"R1","username":"Bob"}`))
		require.NoError(t, err)
		id, name, gm := p.Identity()
		assert.Empty(t, id)
		assert.Equal(t, "Bob", name)
		assert.True(t, gm)
	})
}

func TestEncodeRoundTripsEnvelope(t *testing.T) {
	frame, err := Encode(EventLockChanged, true)
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"lockChanged","data":true}`, string(frame))

	env, err := DecodeEnvelope(frame)
	require.NoError(t, err)
	assert.Equal(t, EventLockChanged, env.Event)
}

func TestUsersUpdatedKeepsNullToast(t *testing.T) {
	frame, err := Encode(EventUsersUpdated, UsersUpdated{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"usersUpdated","data":{"updatedUsers":null,"toastText":null}}`, string(frame))
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := DecodeEnvelope([]byte(`not json`))
	assert.True(t, errors.Is(err, ErrBadPayload))

	_, err = DecodeEnvelope([]byte(`{"data":{}}`))
	assert.True(t, errors.Is(err, ErrBadPayload))

	_, err = Decode[Roll](nil)
	assert.True(t, errors.Is(err, ErrBadPayload))

	_, err = Decode[Roll](json.RawMessage(`{"diceCount":"three"}`))
	assert.True(t, errors.Is(err, ErrBadPayload))
}
