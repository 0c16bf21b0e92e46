// Package util provides common utility data structures
//
// This package includes the generic set implementation used by the state
// transition tables and the HTTP server
package util
