package ports

// ProgressPort reports progress of long-running index refreshes and
// downloads. Tasks may be incremented from several goroutines.
type ProgressPort interface {
	Start(label string, total int) ProgressTask
}

type ProgressTask interface {
	Increment(item string)
	Finish()
}
