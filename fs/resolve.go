package fs

import (
	"strings"
)

// Segments splits a slash-separated path into its non-empty segments, so
// "/a//b" and "/a/b" walk the same way.
func Segments(path string) []string {
	var segments []string
	for _, segment := range strings.Split(path, "/") {
		if segment != "" {
			segments = append(segments, segment)
		}
	}
	return segments
}

// Resolve walks an absolute slash-separated path from the starting inode
// and returns the terminal inode number and its parent's. For the empty
// path (or "/") both are the starting inode.
//
// The walk fails with the first segment that does not resolve; rejecting
// ".." segments in untrusted input is the caller's job.
func (f *FileSystem) Resolve(path string, start int) (int, int, error) {
	current := start
	parent := start

	for _, segment := range Segments(path) {
		inum, err := f.Lookup(current, segment)
		if err != nil {
			return 0, 0, err
		}
		parent = current
		current = inum
	}
	return current, parent, nil
}
