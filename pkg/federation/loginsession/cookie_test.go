// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package loginsession

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCookieCodec(t *testing.T) {
	t.Parallel()

	hashKey := bytes.Repeat([]byte("h"), 32)
	blockKey := bytes.Repeat([]byte("b"), 16)

	codec, err := newCookieCodec(hashKey, blockKey, time.Minute)
	require.NoError(t, err)

	c, err := codec.encode("session-id")
	require.NoError(t, err)
	assert.Equal(t, 60, c.MaxAge)
	assert.NotContains(t, c.Value, "session-id")

	id, err := codec.decode(c.Value)
	require.NoError(t, err)
	assert.Equal(t, "session-id", id)

	other, err := newCookieCodec(bytes.Repeat([]byte("x"), 32), blockKey, time.Minute)
	require.NoError(t, err)
	_, err = other.decode(c.Value)
	assert.Error(t, err, "a cookie minted with another key is rejected")

	_, err = codec.decode("")
	assert.Error(t, err)
}

func TestNewCookieCodec_KeySizes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		hashKey  []byte
		blockKey []byte
		wantErr  bool
	}{
		{name: "aes-128", hashKey: make([]byte, 32), blockKey: make([]byte, 16)},
		{name: "aes-256 with long hash key", hashKey: make([]byte, 64), blockKey: make([]byte, 32)},
		{name: "short hash key", hashKey: make([]byte, 16), blockKey: make([]byte, 16), wantErr: true},
		{name: "odd block key", hashKey: make([]byte, 32), blockKey: make([]byte, 20), wantErr: true},
		{name: "no block key", hashKey: make([]byte, 32), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := newCookieCodec(tt.hashKey, tt.blockKey, time.Minute)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}
