package fixtures

// This package provides common test fixtures and utilities.
// Fixtures are reusable test data and helper functions that can be
// shared across different test suites.
//
// For TLS certificate generation, use github.com/nordwell-io/flowkit/security/tlstest
// which any package of this module can import.
