// Package http implements the HTTP handlers of the wage browser. Handlers are
// thin: they parse path and query parameters, call a service and render the
// result as JSON, CSV or the original file bytes.
//
// # Routes
//
//	GET /api/datasets/years                                  year index with warnings
//	GET /api/datasets/years/{year}/files                     files of one year
//	GET /api/datasets/years/{year}/files/{name}/table        parsed preview (?limit=N)
//	GET /api/datasets/years/{year}/files/{name}/table.csv    CSV export (?limit=N)
//	GET /api/datasets/years/{year}/files/{name}/download     original spreadsheet
//	GET /api/site/pages, /api/site/pages/{slug}, /api/site/team
//	GET /api/health, /api/health/live, /api/health/ready, /api/version
//	GET /metrics
//
// # Error Handling
//
// Every failure is answered with an RFC 7807 problem through
// errors.ErrorHandler. Unknown years, files and pages are 404; an unreachable
// data repository is 502 (504 on timeout); an unreadable spreadsheet is 422.
package http
