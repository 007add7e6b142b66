package service

import (
	"encoding/json"
	"fmt"
	"os"

	"compliancecheck-backend/models"
)

// SkipFilter excludes regulations from analysis by section type and
// regulation number. The zero value skips nothing.
type SkipFilter struct {
	skipped map[string]map[string]bool
}

// NewSkipFilter builds a filter from a section-type to regulation-number map.
// Numbers are matched on their canonical form, so "3", 3, and 3.0 in the
// source config all refer to the same regulation.
func NewSkipFilter(sections map[string][]models.RegulationNumber) *SkipFilter {
	skipped := make(map[string]map[string]bool, len(sections))
	for sectionType, numbers := range sections {
		set := make(map[string]bool, len(numbers))
		for _, n := range numbers {
			set[n.Canonical()] = true
		}
		skipped[sectionType] = set
	}
	return &SkipFilter{skipped: skipped}
}

// LoadSkipFilter reads a skip configuration from a JSON file. A missing file
// yields an empty filter rather than an error.
func LoadSkipFilter(path string) (*SkipFilter, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewSkipFilter(nil), nil
		}
		return nil, fmt.Errorf("failed to read skip config: %w", err)
	}

	var sections map[string][]models.RegulationNumber
	if err := json.Unmarshal(data, &sections); err != nil {
		return nil, fmt.Errorf("failed to parse skip config: %w", err)
	}
	return NewSkipFilter(sections), nil
}

// ParseSkipFilter builds a filter from raw JSON bytes.
func ParseSkipFilter(data []byte) (*SkipFilter, error) {
	var sections map[string][]models.RegulationNumber
	if err := json.Unmarshal(data, &sections); err != nil {
		return nil, fmt.Errorf("failed to parse skip config: %w", err)
	}
	return NewSkipFilter(sections), nil
}

// ShouldSkip reports whether the regulation is excluded from analysis.
func (f *SkipFilter) ShouldSkip(reg *models.Regulation) bool {
	if f == nil || f.skipped == nil {
		return false
	}
	set, ok := f.skipped[reg.SectionType]
	if !ok {
		return false
	}
	return set[reg.RegulationNumber.Canonical()]
}

// Apply partitions regulations into those to analyze and a count of skipped
// ones, preserving input order.
func (f *SkipFilter) Apply(regs []models.Regulation) ([]models.Regulation, int) {
	kept := make([]models.Regulation, 0, len(regs))
	skipped := 0
	for i := range regs {
		if f.ShouldSkip(&regs[i]) {
			skipped++
			continue
		}
		kept = append(kept, regs[i])
	}
	return kept, skipped
}
