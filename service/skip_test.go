package service

import (
	"os"
	"path/filepath"
	"testing"

	"compliancecheck-backend/models"
)

func TestSkipFilterNumberForms(t *testing.T) {
	filter := NewSkipFilter(map[string][]models.RegulationNumber{
		"Business Standards": {"3", "05"},
	})

	tests := []struct {
		name string
		reg  models.Regulation
		want bool
	}{
		{"exact match", models.Regulation{SectionType: "Business Standards", RegulationNumber: "3"}, true},
		{"zero-padded config entry", models.Regulation{SectionType: "Business Standards", RegulationNumber: "5"}, true},
		{"zero-padded regulation", models.Regulation{SectionType: "Business Standards", RegulationNumber: "03"}, true},
		{"different number", models.Regulation{SectionType: "Business Standards", RegulationNumber: "4"}, false},
		{"different section", models.Regulation{SectionType: "Consumer Protection", RegulationNumber: "3"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := filter.ShouldSkip(&tt.reg); got != tt.want {
				t.Errorf("ShouldSkip = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSkipFilterNilSkipsNothing(t *testing.T) {
	var filter *SkipFilter
	reg := models.Regulation{SectionType: "Business Standards", RegulationNumber: "1"}
	if filter.ShouldSkip(&reg) {
		t.Error("nil filter skipped a regulation")
	}

	kept, skipped := filter.Apply([]models.Regulation{reg})
	if len(kept) != 1 || skipped != 0 {
		t.Errorf("Apply = %d kept, %d skipped", len(kept), skipped)
	}
}

func TestSkipFilterApply(t *testing.T) {
	filter := NewSkipFilter(map[string][]models.RegulationNumber{
		"Business Standards": {"2"},
	})

	regs := []models.Regulation{
		{SectionType: "Business Standards", RegulationNumber: "1"},
		{SectionType: "Business Standards", RegulationNumber: "2"},
		{SectionType: "Business Standards", RegulationNumber: "3"},
	}

	kept, skipped := filter.Apply(regs)
	if skipped != 1 {
		t.Errorf("skipped = %d, want 1", skipped)
	}
	if len(kept) != 2 || kept[0].RegulationNumber != "1" || kept[1].RegulationNumber != "3" {
		t.Errorf("kept = %+v", kept)
	}
}

func TestParseSkipFilterAcceptsIntegers(t *testing.T) {
	filter, err := ParseSkipFilter([]byte(`{"Business Standards": [3, "7"]}`))
	if err != nil {
		t.Fatalf("ParseSkipFilter: %v", err)
	}

	if !filter.ShouldSkip(&models.Regulation{SectionType: "Business Standards", RegulationNumber: "3"}) {
		t.Error("integer config entry not matched")
	}
	if !filter.ShouldSkip(&models.Regulation{SectionType: "Business Standards", RegulationNumber: "7"}) {
		t.Error("string config entry not matched")
	}
}

func TestLoadSkipFilterMissingFile(t *testing.T) {
	filter, err := LoadSkipFilter(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("LoadSkipFilter: %v", err)
	}
	if filter.ShouldSkip(&models.Regulation{SectionType: "x", RegulationNumber: "1"}) {
		t.Error("filter from missing file skipped a regulation")
	}
}

func TestLoadSkipFilterMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "skip.json")
	if err := os.WriteFile(path, []byte("{broken"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := LoadSkipFilter(path); err == nil {
		t.Error("LoadSkipFilter accepted malformed JSON")
	}
}
