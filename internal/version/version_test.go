package version

import "testing"

func TestString(t *testing.T) {
	oldV, oldSHA, oldTime := Version, GitSHA, BuildTime
	defer func() { Version, GitSHA, BuildTime = oldV, oldSHA, oldTime }()

	Version, GitSHA, BuildTime = "v1.2.3", "abc1234", "2026-01-02T03:04:05Z"
	want := "tpm-fit v1.2.3 (commit abc1234, built 2026-01-02T03:04:05Z)"
	if got := String("tpm-fit"); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
