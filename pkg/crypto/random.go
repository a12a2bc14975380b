// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package crypto

import (
	"crypto/rand"
	"fmt"
)

const alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// MinTokenLength is the minimum length of session ids and anti-forgery tokens.
const MinTokenLength = 32

// RandomAlphanumeric returns n characters drawn uniformly from [A-Za-z0-9].
func RandomAlphanumeric(n int) (string, error) {
	out := make([]byte, n)
	// 248 is the largest multiple of 62 below 256; rejecting bytes above it
	// keeps the distribution uniform.
	const limit = 256 - 256%len(alphanumeric)
	buf := make([]byte, n+n/4+8)
	for i := 0; i < n; {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to read random bytes: %w", err)
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out[i] = alphanumeric[int(b)%len(alphanumeric)]
			i++
			if i == n {
				break
			}
		}
	}
	return string(out), nil
}
