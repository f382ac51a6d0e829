// Package shared holds helpers used across the wage browser packages that do
// not belong to any one layer.
//
// The testutil subpackage provides:
//
//	- a capturing slog handler with assertion helpers
//	- workbook builders for spreadsheet fixtures
//	- an httptest stand-in for the repository contents API and raw host
//
// Example usage:
//
//	func TestSomething(t *testing.T) {
//	    repo := testutil.NewRemoteRepo(t, "owner", "repo", "main")
//	    repo.AddFile("oesm23st/state_M2023_dl.xlsx", testutil.Workbook(t, rows))
//
//	    client := remote.NewClient(repo.RemoteConfig(), logger)
//	}
//
// Nothing in this package is imported by production code.
package shared
