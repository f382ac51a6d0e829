package catalog

import (
	"regexp"
	"strconv"
	"strings"
)

// yearFolderPattern matches OEWS state release folders such as oesm23st
var yearFolderPattern = regexp.MustCompile(`(?i)^oesm(\d+)st$`)

// dataFilePrefix is the lowercased prefix of state level spreadsheets
const dataFilePrefix = "state_"

var dataFileExtensions = []string{".xls", ".xlsx"}

// ParseYearFolder derives the survey year from a folder name. A digit run of
// at most two digits is read as 2000+n, anything longer is taken literally.
// Two digit years before 2000 and years from 2100 on are misread; the
// published folders do not use either form.
func ParseYearFolder(name string) (int, bool) {
	m := yearFolderPattern.FindStringSubmatch(name)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	if len(m[1]) <= 2 {
		return 2000 + n, true
	}
	return n, true
}

// IsDataFile reports whether a file name is a state level OEWS spreadsheet
func IsDataFile(name string) bool {
	lower := strings.ToLower(name)
	if !strings.HasPrefix(lower, dataFilePrefix) {
		return false
	}
	for _, ext := range dataFileExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
