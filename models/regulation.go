package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// RegulationNumber identifies a regulation within its section. The upstream
// extractors emit it as either a JSON string or a bare integer depending on
// the source document, so it unmarshals from both forms.
type RegulationNumber string

// UnmarshalJSON accepts both "14" and 14.
func (n *RegulationNumber) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*n = RegulationNumber(strings.TrimSpace(s))
		return nil
	}

	var num int64
	if err := json.Unmarshal(data, &num); err == nil {
		*n = RegulationNumber(strconv.FormatInt(num, 10))
		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*n = RegulationNumber(strconv.FormatFloat(f, 'f', -1, 64))
		return nil
	}

	return fmt.Errorf("regulation number must be a string or number, got %s", string(data))
}

// Canonical returns the normalized form used for comparisons: numeric values
// lose leading zeros and whitespace so that "05", " 5" and 5 all match.
func (n RegulationNumber) Canonical() string {
	s := strings.TrimSpace(string(n))
	if i, err := strconv.Atoi(s); err == nil {
		return strconv.Itoa(i)
	}
	return s
}

func (n RegulationNumber) String() string {
	return string(n)
}

// RegulationKey is the uniqueness key of a regulation within one regulation
// set. No two regulations in a set may share the same key.
type RegulationKey struct {
	SectionType      string
	SourceName       string
	RegulationNumber string
}

// Regulation is one extracted regulatory provision. Regulations are read-only
// inputs to the analysis pipeline; the structural metadata (part/chapter) is
// carried through to reports but never interpreted.
type Regulation struct {
	SourceName       string           `json:"source_name"`
	SectionType      string           `json:"section_type"`
	RegulationNumber RegulationNumber `json:"regulation_number"`
	RegulationTitle  string           `json:"regulation_title"`
	RegulationText   string           `json:"regulation_text"`
	PartNumber       string           `json:"part_number,omitempty"`
	PartName         string           `json:"part_name,omitempty"`
	ChapterNumber    string           `json:"chapter_number,omitempty"`
	ChapterName      string           `json:"chapter_name,omitempty"`
}

// Key returns the regulation's identity key with the number in canonical form.
func (r *Regulation) Key() RegulationKey {
	return RegulationKey{
		SectionType:      r.SectionType,
		SourceName:       r.SourceName,
		RegulationNumber: r.RegulationNumber.Canonical(),
	}
}

// GuidanceItem is a piece of supervisory guidance attached to a regulation
// number. It is optional Phase-2 context only.
type GuidanceItem struct {
	RegulationNumber RegulationNumber `json:"regulation_number"`
	SubSectionNumber string           `json:"regulation_sub_section_number,omitempty"`
	GuidanceText     string           `json:"regulation_text"`
}
