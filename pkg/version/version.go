package version

// EmptyValue is the value we use when running a version that wasn't compiled
// by `make`. This is helpful for telling when we're running in a unit test.
const EmptyValue = "set-by-make"

// Version is the latest release tag. It's set at link time with
// `-ldflags "-X github.com/sidkik/fikasync/pkg/version.Version=1.2.3"`.
var Version = EmptyValue

// UpdateRepo is the GitHub repository that publishes fikasync releases.
var UpdateRepo = "fanteeek/fika-profiles-sync"

// UserAgent returns the User-Agent header sent to remote stores.
func UserAgent() string {
	return "FikaSync/" + Version
}
