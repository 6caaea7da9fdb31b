// Package file stores artifacts as a directory of plain files:
//
//	manifest.json   storage.Manifest as JSON
//	index.rdx       zstd-compressed index blob (see index.MarshalBinary)
//	metadata.bin    record count followed by mus-encoded records
//
// A Save never modifies the live directory. It fills a sibling staging
// directory and renames it into place while holding an exclusive lock on
// <dir>.lock; a second builder gets storage.ErrLocked. Readers take a shared
// lock on the same file.
package file
