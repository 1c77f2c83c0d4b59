// Package core provides fundamental utilities for the Atrium sync core.
// This file contains option functions for customizing log entries.
package core

import (
	"github.com/atrium-app/atrium/domain"
	"github.com/google/uuid"
)

// LogWithContext is an option to add a context map to a log entry.
func LogWithContext(context map[string]any) func(log *domain.Log) error {
	return func(log *domain.Log) error {
		log.Context = context
		return nil
	}
}

// LogWithActionID is an option to associate a log entry with an offline action ID.
func LogWithActionID(id uuid.UUID) func(log *domain.Log) error {
	return func(log *domain.Log) error {
		log.ActionID = &id
		return nil
	}
}
