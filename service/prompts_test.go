package service

import (
	"strings"
	"testing"

	"compliancecheck-backend/models"
)

func TestBulletRange(t *testing.T) {
	tests := []struct {
		docs int
		want string
	}{
		{1, "5-7"},
		{5, "5-7"},
		{6, "7-9"},
		{20, "7-9"},
		{21, "10-12"},
	}
	for _, tt := range tests {
		if got := bulletRange(tt.docs); got != tt.want {
			t.Errorf("bulletRange(%d) = %q, want %q", tt.docs, got, tt.want)
		}
	}
}

func TestFormatGuidance(t *testing.T) {
	if got := formatGuidance(nil); got != "" {
		t.Errorf("formatGuidance(nil) = %q, want empty", got)
	}

	items := []models.GuidanceItem{
		{RegulationNumber: "5", SubSectionNumber: "5(1)", GuidanceText: "First item."},
		{RegulationNumber: "5", SubSectionNumber: "5(2)", GuidanceText: strings.Repeat("x", guidanceItemLimit+100)},
		{RegulationNumber: "5", SubSectionNumber: "5(3)", GuidanceText: "Third item."},
		{RegulationNumber: "5", SubSectionNumber: "5(4)", GuidanceText: "Fourth item, over the limit."},
	}

	got := formatGuidance(items)
	if !strings.Contains(got, "5(1): First item.") {
		t.Errorf("missing first item: %q", got)
	}
	if strings.Contains(got, "5(4)") {
		t.Error("fourth item included; only the first three should make the prompt")
	}
	if strings.Contains(got, strings.Repeat("x", guidanceItemLimit+1)) {
		t.Error("long guidance text not truncated")
	}
}

func TestBuildValidationPromptTruncatesLongDocuments(t *testing.T) {
	doc := testDocument(strings.Repeat("a", validationTextLimit+500))

	prompt := buildValidationPrompt(doc)
	if !strings.Contains(prompt, "[Content truncated due to length...]") {
		t.Error("long document not marked as truncated")
	}
	if strings.Contains(prompt, strings.Repeat("a", validationTextLimit+1)) {
		t.Error("document text not actually truncated")
	}

	short := buildValidationPrompt(testDocument("short text"))
	if strings.Contains(short, "[Content truncated due to length...]") {
		t.Error("short document marked as truncated")
	}
}

func TestBuildScreeningPromptEmbedsDocumentAndRegulation(t *testing.T) {
	doc := testDocument("the full document text goes here")
	reg := testRegulation("7")

	prompt := buildScreeningPrompt(doc, reg)
	for _, fragment := range []string{
		"the full document text goes here",
		"Regulation Number: 7",
		"Securing customers' interests",
		`"applicability_reasoning"`,
	} {
		if !strings.Contains(prompt, fragment) {
			t.Errorf("screening prompt missing %q", fragment)
		}
	}
}
