package version

// Current is the application version, overwritten at build time with -ldflags.
var Current = "dev"

// Commit is the git commit the binary was built from.
var Commit = "UNKNOWN"

const AppName = "AssetLens"

// UserAgent identifies AssetLens to remote review stores.
func UserAgent() string {
	return AppName + "/" + Current
}
