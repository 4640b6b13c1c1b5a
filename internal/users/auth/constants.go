// Copyright (c) 2026 Trackly. All rights reserved.

package auth

import "time"

// # Authentication Constraints

const (
	// MinPasswordLength is the minimum accepted password length at registration.
	MinPasswordLength = 8

	// LoginAttemptWindow is the fixed window over which login attempts are counted.
	LoginAttemptWindow = 1 * time.Minute

	// LoginAttemptLimit is the number of attempts allowed per email within the window.
	// The throttle fires before credentials are inspected, so it leaks nothing
	// about whether the account exists.
	LoginAttemptLimit = 10
)
