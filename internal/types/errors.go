package types

import "fmt"

// PackageNotFoundError reports a requested package that the index does
// not know about.
type PackageNotFoundError struct {
	Name string
}

func (e *PackageNotFoundError) Error() string {
	return fmt.Sprintf("the package %q was not found in the index", e.Name)
}

// IndexOpenError reports that the package index could not be refreshed
// or opened.
type IndexOpenError struct {
	Root  string
	Cause error
}

func (e *IndexOpenError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("failed to open package index for %s", e.Root)
	}
	return fmt.Sprintf("failed to open package index for %s: %v", e.Root, e.Cause)
}

func (e *IndexOpenError) Unwrap() error {
	return e.Cause
}

// FetchError reports the archive download that aborted a fetch.
type FetchError struct {
	Package string
	Cause   error
}

func (e *FetchError) Error() string {
	if e.Package == "" {
		return fmt.Sprintf("failed to fetch archives: %v", e.Cause)
	}
	return fmt.Sprintf("failed to fetch archive for %s: %v", e.Package, e.Cause)
}

func (e *FetchError) Unwrap() error {
	return e.Cause
}

// UnpackError names the staged archive that failed to extract.
type UnpackError struct {
	Archive string
	Cause   error
}

func (e *UnpackError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("error while provisioning %s", e.Archive)
	}
	return fmt.Sprintf("error while provisioning %s: %v", e.Archive, e.Cause)
}

func (e *UnpackError) Unwrap() error {
	return e.Cause
}
