package ports

// ManifestPort loads the list of packages assumed present on the
// consuming system.
type ManifestPort interface {
	Load(path string) ([]string, error)
}
