package buildinfo

// Set at build time:
//
//	-X 'github.com/ArtemDzuba/bakery-bot/core/buildinfo.Version=v1.0.0'
//	-X 'github.com/ArtemDzuba/bakery-bot/core/buildinfo.Commit=abcdef0'
//	-X 'github.com/ArtemDzuba/bakery-bot/core/buildinfo.Date=2026-10-01T12:00:00Z'
var (
	Version = "dev"
	Commit  = "local"
	Date    = ""
)

// String renders the build identity for the version command.
func String() string {
	s := Version + " (" + Commit
	if Date != "" {
		s += ", " + Date
	}
	return s + ")"
}
