package app

import "time"

// SetClock swaps the service clock in tests.
func SetClock(s *QrService, now func() time.Time) { s.now = now }

// SetAuthClock swaps the auth service clock in tests.
func SetAuthClock(s *AuthService, now func() time.Time) { s.now = now }
