package domain

// RemoteEntry is one file in a remote directory listing.
type RemoteEntry struct {
	Name string
	Size int64
}
