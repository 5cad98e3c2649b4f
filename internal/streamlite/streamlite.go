// Package streamlite provides data ingestion connectors that read portal
// content from external sources.
package streamlite

import (
	"context"
	"time"

	"github.com/dsjohal14/tourstack/internal/scope/content"
	"github.com/dsjohal14/tourstack/internal/scope/record"
)

// Batch is a group of raw records of one kind read from a source
type Batch struct {
	Kind   content.Kind
	Items  []record.Value
	Source string
}

// Connector represents a data source connector
type Connector interface {
	Name() string
	Start() error
	Stop() error
	// Read returns everything the source currently holds
	Read(ctx context.Context) ([]Batch, error)
}

// BaseConnector provides common functionality for all connectors
type BaseConnector struct {
	name      string
	startedAt time.Time
}

// NewBaseConnector creates a new base connector
func NewBaseConnector(name string) *BaseConnector {
	return &BaseConnector{
		name: name,
	}
}

// Name returns the connector name
func (c *BaseConnector) Name() string {
	return c.name
}

// Start marks the connector as started
func (c *BaseConnector) Start() error {
	c.startedAt = time.Now()
	return nil
}

// Stop is a placeholder for cleanup
func (c *BaseConnector) Stop() error {
	return nil
}

// StartedAt returns when the connector was started, or zero
func (c *BaseConnector) StartedAt() time.Time {
	return c.startedAt
}
