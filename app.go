// Package app exposes build-level identity for the workflow service.
package app

const (
	// Name is the service name reported in logs and health output
	Name = "lumina-workflow"

	// Version is the service version reported in logs and health output
	Version = "0.9.0"
)
