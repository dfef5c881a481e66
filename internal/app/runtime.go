package app

import "os"

// TestModeEnv, when "1", makes both binaries exit before dialing Postgres or Redis.
const TestModeEnv = "GYMSUITE_TEST_MODE"

// InTestMode reports whether startup side effects should be skipped.
func InTestMode() bool {
	return os.Getenv(TestModeEnv) == "1"
}
