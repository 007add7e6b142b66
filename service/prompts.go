package service

import (
	"fmt"
	"strings"

	"compliancecheck-backend/models"
)

// Fixed domain context describing the two regulatory instruments every
// analysis runs against. Embedded verbatim in the screening and evaluation
// prompts so the model knows what body of law it is reasoning about.
const regulatoryContextShort = `# Regulatory Context:
## CENTRAL BANK REFORM ACT 2010 (SECTION 17A) (STANDARDS FOR BUSINESS) REGULATIONS 2025
These regulations set mandatory standards for businesses regulated by the Central Bank of Ireland, aiming to protect customers and ensure ethical conduct in financial services.

## CENTRAL BANK (SUPERVISION AND ENFORCEMENT) ACT 2013 (SECTION 48) (CONSUMER PROTECTION) REGULATIONS 2025
These are comprehensive consumer protection regulations for financial services, setting obligations for regulated entities when dealing with consumers, especially around transparency, suitability, and complaint handling.`

const regulatoryContextDetailed = `# Regulatory Context:
## CENTRAL BANK REFORM ACT 2010 (SECTION 17A) (STANDARDS FOR BUSINESS) REGULATIONS 2025
These regulations set mandatory standards for businesses regulated by the Central Bank of Ireland, including:
- Securing customers' interests
- Acting honestly and with integrity
- Acting with due skill, care, and diligence
- Acting in customers' best interests and treating them fairly
- Communicating effectively
- Controlling risks of financial abuse
- Managing affairs sustainably and responsibly

## CENTRAL BANK (SUPERVISION AND ENFORCEMENT) ACT 2013 (SECTION 48) (CONSUMER PROTECTION) REGULATIONS 2025
These regulations focus on consumer protection requirements including:
- Knowing the consumer and assessing suitability
- Providing clear information and statements
- Handling complaints appropriately
- Special provisions for different financial sectors`

// regulationDetails renders the structured fields of a regulation for
// prompt embedding.
func regulationDetails(reg *models.Regulation) string {
	return fmt.Sprintf(`# Regulation Details:
- Source: %s
- Section Type: %s
- Regulation Number: %s
- Regulation Title: %s
- Regulation Text: %s`,
		reg.SourceName,
		reg.SectionType,
		reg.RegulationNumber,
		reg.RegulationTitle,
		reg.RegulationText,
	)
}

// buildScreeningPrompt produces the Phase-1 applicability prompt. The full
// document text goes in unchunked: Phase 1 is intentionally cheap and global.
func buildScreeningPrompt(doc *models.Document, reg *models.Regulation) string {
	return fmt.Sprintf(`You are an expert financial regulations analyst. Your task is to determine if a specific regulation applies to a client document.

# Document Information:
- Filename: %s
- Document Text:
`+"```"+`
%s
`+"```"+`

%s

%s

Based on the document content and the regulation, determine if this regulation applies to this document.
Answer with EXACTLY ONE of these options:
- "Applies"
- "Does Not Apply"
- "May Apply - Requires Further Review"

Please provide a detailed explanation of why this regulation applies or does not apply to the document.

Format your response as a JSON object with these exact keys:
{
  "applicability": "Applies/Does Not Apply/May Apply - Requires Further Review",
  "applicability_reasoning": "Detailed explanation of why this regulation applies or does not apply to the document",
  "confidence_score": "Very High/High/Medium/Low/Very Low"
}`,
		doc.Name(),
		doc.FullText,
		regulationDetails(reg),
		regulatoryContextShort,
	)
}

// buildCompliancePrompt produces the Phase-2 main analysis prompt over the
// first document chunk.
func buildCompliancePrompt(docName, chunk string, reg *models.Regulation, guidanceText string) string {
	return fmt.Sprintf(`You are an expert financial regulations analyst. Your task is to determine if a client document complies with a specific regulation.

# Document Information:
- Filename: %s
- Document Text (excerpt):
`+"```"+`
%s
`+"```"+`

%s

%s
%s

Based on the document content and the regulation, determine:

1. Applicability: Does this regulation apply to this document? Answer with EXACTLY ONE of these options:
   - "Applies"
   - "Does Not Apply"
   - "May Apply - Requires Further Review"

2. If "Applies" or "May Apply", assess compliance:
   - Is the document compliant with this regulation?
   - If compliant, what EXACT text from the document demonstrates compliance? Include the exact quote.
   - If there's a gap, what is missing or inadequate?
   - What recommendations would you make to address any gaps?

Format your response as a JSON object with these exact keys:
{
  "applicability": "Applies/Does Not Apply/May Apply - Requires Further Review",
  "is_compliant": "Yes/No/Partial",
  "compliance_reasoning": "Detailed explanation of why the document is or is not compliant with this regulation",
  "compliance_evidence": "EXACT text from the document that demonstrates compliance (if any)",
  "gap_description": "Description of any compliance gaps (if any)",
  "gap_recommendations": "Recommendations to address gaps (if any)",
  "confidence_score": "Very High/High/Medium/Low/Very Low"
}`,
		docName,
		chunk,
		regulationDetails(reg),
		guidanceText,
		regulatoryContextDetailed,
	)
}

// buildAdditionalEvidencePrompt produces the lightweight per-chunk evidence
// mining prompt. It asks only for evidence beyond what was already found, not
// a full re-analysis; that is what bounds Phase-2 cost.
func buildAdditionalEvidencePrompt(docName string, chunkIndex, totalChunks int, chunk string, reg *models.Regulation, status models.ComplianceStatus, initialEvidence string) string {
	return fmt.Sprintf(`You are an expert financial regulations analyst. Your task is to find additional evidence of compliance with a specific regulation in this document chunk.

# Document Information:
- Filename: %s
- Document Chunk %d of %d:
`+"```"+`
%s
`+"```"+`

%s

# Previous Compliance Finding:
This document has been found to be %s compliant with this regulation.
Previous evidence found: "%s"

Your task is to find ADDITIONAL evidence of compliance in this chunk of the document.
If you find additional evidence, provide the EXACT text from this chunk that demonstrates compliance.
If you don't find additional evidence in this chunk, respond with "No additional evidence found".

Format your response as a JSON object with this exact key:
{
  "additional_evidence": "EXACT text from this chunk that demonstrates compliance (if any)"
}`,
		docName,
		chunkIndex+1,
		totalChunks,
		chunk,
		regulationDetails(reg),
		status,
		initialEvidence,
	)
}

// validationTextLimit bounds how much document text the relevance check sees.
const validationTextLimit = 12000

// buildValidationPrompt produces the pre-pipeline document relevance prompt.
func buildValidationPrompt(doc *models.Document) string {
	text := doc.FullText
	if len(text) > validationTextLimit {
		text = text[:validationTextLimit] + "\n\n[Content truncated due to length...]"
	}

	return fmt.Sprintf(`You are an expert financial regulations analyst. Your task is to determine if a client document is relevant for comparison against consumer protection regulations.

# Document Information:
- Filename: %s
- Document Text:
`+"```"+`
%s
`+"```"+`

%s

A document is relevant if it describes products, services, policies, procedures, governance, or customer interactions of a regulated financial business. Internal documents with no bearing on customer outcomes or regulatory obligations are not relevant.

Format your response as a JSON object with these exact keys:
{
  "is_relevant": "Yes/No",
  "reason": "Short explanation of why the document is or is not relevant"
}`,
		doc.Name(),
		text,
		regulatoryContextShort,
	)
}

// Guidance items are optional Phase-2 context; at most maxGuidanceItems are
// embedded and each is truncated to keep the prompt within token limits.
const (
	maxGuidanceItems  = 3
	guidanceItemLimit = 500
)

// formatGuidance renders guidance items for the Phase-2 prompt.
func formatGuidance(items []models.GuidanceItem) string {
	if len(items) == 0 {
		return ""
	}

	var builder strings.Builder
	builder.WriteString("# Relevant Guidance:\n")
	for i, item := range items {
		if i >= maxGuidanceItems {
			break
		}
		text := item.GuidanceText
		if len(text) > guidanceItemLimit {
			text = text[:guidanceItemLimit]
		}
		builder.WriteString(fmt.Sprintf("- %s: %s\n\n", item.SubSectionNumber, text))
	}
	return builder.String()
}

// bulletRange scales the consolidated summary's bullet budget with the number
// of applicable documents.
func bulletRange(applicableDocs int) string {
	switch {
	case applicableDocs <= 5:
		return "5-7"
	case applicableDocs <= 20:
		return "7-9"
	default:
		return "10-12"
	}
}

// buildGapSummaryPrompt asks for a consolidated bullet-point summary of the
// gaps found for one regulation across documents.
func buildGapSummaryPrompt(view *models.ConsolidatedRegulationView, gaps []string, applicableDocs int) string {
	return fmt.Sprintf(`You are analyzing compliance gaps for financial regulations. Below are multiple gap descriptions identified across different documents for the same regulation:

Regulation: %s
Regulation Text: %s
Number of Documents Analyzed: %d

Gap Descriptions:
%s

Please summarize these gaps into %s key points. Format each point as a detailed bullet point with a bold header followed by a specific description. Focus on the most critical issues first.

Example format:
• **Header for Issue 1:** Detailed description of the issue with specific context.
• **Header for Issue 2:** Detailed description of the issue with specific context.

Only return the bullet points, nothing else.`,
		view.RegulationTitle,
		view.RegulationText,
		applicableDocs,
		strings.Join(gaps, " "),
		bulletRange(applicableDocs),
	)
}

// buildRecommendationSummaryPrompt asks for a consolidated bullet-point
// summary of the remediation recommendations for one regulation.
func buildRecommendationSummaryPrompt(view *models.ConsolidatedRegulationView, recommendations []string, applicableDocs int) string {
	return fmt.Sprintf(`You are providing recommendations to address compliance gaps for financial regulations. Below are multiple recommendations identified across different documents for the same regulation:

Regulation: %s
Regulation Text: %s
Number of Documents Analyzed: %d

Recommendations:
%s

Please summarize these recommendations into %s key actionable points. Format each point as a detailed bullet point with a bold header followed by a specific action plan. Focus on the most critical actions first.

Example format:
• **Header for Action 1:** Detailed description of the recommended action with specific implementation guidance.
• **Header for Action 2:** Detailed description of the recommended action with specific implementation guidance.

Only return the bullet points, nothing else.`,
		view.RegulationTitle,
		view.RegulationText,
		applicableDocs,
		strings.Join(recommendations, " "),
		bulletRange(applicableDocs),
	)
}
