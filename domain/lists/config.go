// Package lists holds the user-facing parameters for reading and writing SharePoint lists.
package lists

import (
	"fmt"
	"slices"

	"spconnect/domain/schema"
	"spconnect/domain/sharepoint"
)

// Parameters represents the list dataset configuration.
// This is a domain value object that encapsulates the rules for list reads and writes.
type Parameters struct {
	ListTitle          string   `yaml:"list_title"`
	ViewTitle          string   `yaml:"view_title"`
	MetadataToRetrieve []string `yaml:"metadata_to_retrieve"`
	WriteMode          string   `yaml:"write_mode"` // create or append

	// Performance parameters, only honoured when AdvancedParameters is set
	AdvancedParameters bool `yaml:"advanced_parameters"`
	MaxWorkers         int  `yaml:"max_workers"` // concurrent batch requests
	BatchSize          int  `yaml:"batch_size"`  // items per $batch request
	PageSize           int  `yaml:"page_size"`   // items per read page
}

// DefaultParameters returns the list parameters used when nothing is configured.
func DefaultParameters() *Parameters {
	return &Parameters{
		WriteMode:  sharepoint.WriteModeCreate,
		MaxWorkers: 1, // no concurrency by default
		BatchSize:  100,
		PageSize:   5000,
	}
}

// Constraints defines the technical limits imposed by SharePoint APIs.
type Constraints struct {
	MinBatchSize  int
	MaxBatchSize  int // $batch change set limit (1000)
	MaxWorkers    int
	MinPageSize   int
	MaxPageSize   int // list view threshold (5000)
	MaxListTitle  int
	MaxColumnName int
}

// DefaultConstraints returns SharePoint API technical limits.
func DefaultConstraints() *Constraints {
	return &Constraints{
		MinBatchSize:  1,
		MaxBatchSize:  1000,
		MaxWorkers:    32,
		MinPageSize:   1,
		MaxPageSize:   5000,
		MaxListTitle:  255,
		MaxColumnName: 255,
	}
}

// Validate checks the list parameters against SharePoint API constraints.
func (p *Parameters) Validate(constraints *Constraints) error {
	if p == nil {
		return fmt.Errorf("list parameters cannot be nil")
	}
	if constraints == nil {
		constraints = DefaultConstraints()
	}

	if p.ListTitle == "" {
		return fmt.Errorf("list_title is required")
	}
	if len(p.ListTitle) > constraints.MaxListTitle {
		return fmt.Errorf("list_title cannot exceed %d characters, got: %d", constraints.MaxListTitle, len(p.ListTitle))
	}

	if p.WriteMode != sharepoint.WriteModeCreate && p.WriteMode != sharepoint.WriteModeAppend {
		return fmt.Errorf("write_mode must be %q or %q, got: %q", sharepoint.WriteModeCreate, sharepoint.WriteModeAppend, p.WriteMode)
	}

	if p.BatchSize < constraints.MinBatchSize {
		return fmt.Errorf("batch_size must be at least %d, got: %d", constraints.MinBatchSize, p.BatchSize)
	}
	if p.BatchSize > constraints.MaxBatchSize {
		return fmt.Errorf("batch_size cannot exceed %d (SharePoint $batch limit), got: %d", constraints.MaxBatchSize, p.BatchSize)
	}

	if p.MaxWorkers < 1 {
		return fmt.Errorf("max_workers must be at least 1, got: %d", p.MaxWorkers)
	}
	if p.MaxWorkers > constraints.MaxWorkers {
		return fmt.Errorf("max_workers cannot exceed %d, got: %d", constraints.MaxWorkers, p.MaxWorkers)
	}

	if p.PageSize < constraints.MinPageSize || p.PageSize > constraints.MaxPageSize {
		return fmt.Errorf("page_size must be between %d and %d, got: %d", constraints.MinPageSize, constraints.MaxPageSize, p.PageSize)
	}

	return nil
}

// ValidateAndSetDefaults sets defaults for zero values, drops the performance
// settings when advanced parameters are off, then validates against constraints.
func (p *Parameters) ValidateAndSetDefaults(constraints *Constraints) error {
	if p == nil {
		return fmt.Errorf("list parameters cannot be nil")
	}
	if constraints == nil {
		constraints = DefaultConstraints()
	}

	defaults := DefaultParameters()
	if !p.AdvancedParameters {
		p.MaxWorkers = defaults.MaxWorkers
		p.BatchSize = defaults.BatchSize
	}
	if p.WriteMode == "" {
		p.WriteMode = defaults.WriteMode
	}
	if p.MaxWorkers == 0 {
		p.MaxWorkers = defaults.MaxWorkers
	}
	if p.BatchSize == 0 {
		p.BatchSize = defaults.BatchSize
	}
	if p.PageSize == 0 {
		p.PageSize = defaults.PageSize
	}
	if !slices.Contains(p.MetadataToRetrieve, "Title") {
		p.MetadataToRetrieve = append(p.MetadataToRetrieve, "Title")
	}

	if err := schema.AssertListTitle(p.ListTitle); err != nil && p.WriteMode == sharepoint.WriteModeCreate {
		return err
	}

	return p.Validate(constraints)
}

// SetBatchSize sets the batch size with automatic clamping to valid limits.
func (p *Parameters) SetBatchSize(batchSize int, constraints *Constraints) {
	if constraints == nil {
		constraints = DefaultConstraints()
	}
	p.BatchSize = clamp(batchSize, constraints.MinBatchSize, constraints.MaxBatchSize)
}

// SetMaxWorkers sets the worker count with automatic clamping to valid limits.
func (p *Parameters) SetMaxWorkers(workers int, constraints *Constraints) {
	if constraints == nil {
		constraints = DefaultConstraints()
	}
	p.MaxWorkers = clamp(workers, 1, constraints.MaxWorkers)
}

// WorkingBatchSize is the number of rows buffered before a flush.
func (p *Parameters) WorkingBatchSize() int {
	return p.MaxWorkers * p.BatchSize
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
