package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseYearFolder(t *testing.T) {
	tests := []struct {
		name   string
		year   int
		wantOK bool
	}{
		{"oesm23st", 2023, true},
		{"oesm1999st", 1999, true},
		{"OESM22ST", 2022, true},
		{"oesm9st", 2009, true},
		{"oesm00st", 2000, true},
		{"oesm2024st", 2024, true},
		// two digit years before 2000 are misread
		{"oesm98st", 2098, true},
		{"oesmst", 0, false},
		{"oesm23", 0, false},
		{"oesm23st_old", 0, false},
		{"oesm2xst", 0, false},
		{"data", 0, false},
		{"oesm99999999999999999999st", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			year, ok := ParseYearFolder(tt.name)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.year, year)
		})
	}
}

func TestIsDataFile(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"state_M2023_dl.xlsx", true},
		{"State_M2019_dl.XLS", true},
		{"STATE_M2020_DL.XLSX", true},
		{"state_M2023_dl.csv", false},
		{"state_M2023_dl.xlsm", false},
		{"national_M2023_dl.xlsx", false},
		{"field_descriptions.xlsx", false},
		{"state_", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsDataFile(tt.name))
		})
	}
}
