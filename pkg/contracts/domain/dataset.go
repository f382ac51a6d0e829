package domain

import (
	"sort"
)

// Entry types reported by the contents listing endpoint
const (
	EntryTypeFile = "file"
	EntryTypeDir  = "dir"
)

// DirectoryEntry is one item of a remote directory listing
type DirectoryEntry struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Type string `json:"type"`
}

// IsDir reports whether the entry is a directory
func (e DirectoryEntry) IsDir() bool {
	return e.Type == EntryTypeDir
}

// IsFile reports whether the entry is a regular file
func (e DirectoryEntry) IsFile() bool {
	return e.Type == EntryTypeFile
}

// FileDescriptor identifies one remote spreadsheet. Path is the identity.
type FileDescriptor struct {
	Name string `json:"name" validate:"required"`
	Path string `json:"path" validate:"required"`
}

// YearIndex maps a survey year to its candidate files, sorted by name.
// Years without files are never present.
type YearIndex map[int][]FileDescriptor

// Years returns the indexed years in ascending order
func (idx YearIndex) Years() []int {
	years := make([]int, 0, len(idx))
	for year := range idx {
		years = append(years, year)
	}
	sort.Ints(years)
	return years
}

// Files returns the descriptors for a year
func (idx YearIndex) Files(year int) ([]FileDescriptor, bool) {
	files, ok := idx[year]
	return files, ok
}

// Lookup finds a descriptor by year and file name
func (idx YearIndex) Lookup(year int, name string) (FileDescriptor, bool) {
	for _, fd := range idx[year] {
		if fd.Name == name {
			return fd, true
		}
	}
	return FileDescriptor{}, false
}

// FileCount returns the total number of descriptors across all years
func (idx YearIndex) FileCount() int {
	n := 0
	for _, files := range idx {
		n += len(files)
	}
	return n
}
