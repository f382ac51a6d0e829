// Package services implements the business logic layer of the wage browser.
// It sits between the HTTP handlers and the catalog and dataset packages so
// that lookups, truncation rules and health reporting live in one place.
//
// # Architecture
//
// Services follow these principles:
//
//	1. Interface-driven dependencies for testability
//	2. Context propagation for cancellation and tracing
//	3. Constructor injection of loggers and collaborators
//
// # Common Service Pattern
//
//	type ServiceName struct {
//	    indexer Indexer
//	    logger  *slog.Logger
//	}
//
//	func (s *ServiceName) Operation(ctx context.Context, year int) (*View, error) {
//	    result, err := s.indexer.Build(ctx, s.basePath)
//	    if err != nil {
//	        return nil, fmt.Errorf("build index: %w", err)
//	    }
//	    ...
//	}
//
// # Available Services
//
//	- BrowserService: year index, file lookup, table previews and raw downloads
//	- HealthService: liveness, readiness and version reporting
//
// # Error Handling
//
// Lookups that miss return ErrYearNotFound or ErrFileNotFound. Remote and
// parse failures are passed through wrapped so handlers can map them with
// errors.As.
//
// # Testing
//
// Services are tested with testify mocks of their collaborators:
//
//	indexer := new(MockIndexer)
//	indexer.On("Build", mock.Anything, "").Return(result, nil)
//	svc := NewBrowserService(indexer, loader, "", logger)
package services
