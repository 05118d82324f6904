package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeList(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload string
		want    []CloudAccount
		wantErr bool
	}{
		{
			name:    "bare array",
			payload: `[{"id":"a1","name":"prod","provider":"aws"}]`,
			want:    []CloudAccount{{ID: "a1", Name: "prod", Provider: "aws"}},
		},
		{
			name:    "wrapped object",
			payload: `{"items":[{"id":"a2","name":"staging","provider":"azure"}]}`,
			want:    []CloudAccount{{ID: "a2", Name: "staging", Provider: "azure"}},
		},
		{
			name:    "empty array",
			payload: `[]`,
			want:    []CloudAccount{},
		},
		{
			name:    "wrapped empty",
			payload: `{"items":[]}`,
			want:    []CloudAccount{},
		},
		{
			name:    "object without items",
			payload: `{"accounts":[]}`,
			wantErr: true,
		},
		{
			name:    "scalar",
			payload: `42`,
			wantErr: true,
		},
		{
			name:    "empty body",
			payload: ``,
			wantErr: true,
		},
		{
			name:    "items wrong type",
			payload: `{"items":"nope"}`,
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			var got []CloudAccount
			err := decodeList([]byte(tc.payload), &got)
			if tc.wantErr {
				require.ErrorIs(t, err, ErrMalformedPayload)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDecodeObject(t *testing.T) {
	t.Parallel()

	t.Run("bare object", func(t *testing.T) {
		t.Parallel()
		var state DemoState
		err := decodeObject([]byte(`{"isDemoMode":true,"verified":true}`), &state)
		require.NoError(t, err)
		assert.True(t, state.IsDemoMode)
		assert.True(t, state.IsVerified)
	})

	t.Run("wrapped object", func(t *testing.T) {
		t.Parallel()
		var state DemoState
		err := decodeObject([]byte(`{"data":{"isDemoMode":true,"verified":false}}`), &state)
		require.NoError(t, err)
		assert.True(t, state.IsDemoMode)
		assert.False(t, state.IsVerified)
	})

	t.Run("array rejected", func(t *testing.T) {
		t.Parallel()
		var state DemoState
		err := decodeObject([]byte(`[{"isDemoMode":true}]`), &state)
		require.ErrorIs(t, err, ErrMalformedPayload)
	})

	t.Run("empty body rejected", func(t *testing.T) {
		t.Parallel()
		var state DemoState
		err := decodeObject(nil, &state)
		require.ErrorIs(t, err, ErrMalformedPayload)
	})
}

func TestParseLicenseReason(t *testing.T) {
	t.Parallel()

	for _, valid := range []string{"expired", "no_seats", "no_license", "seats_exceeded"} {
		reason, err := ParseLicenseReason(valid)
		require.NoError(t, err)
		assert.Equal(t, LicenseReason(valid), reason)
	}

	_, err := ParseLicenseReason("trial_over")
	require.Error(t, err)
}
