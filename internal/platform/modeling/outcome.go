package modeling

// OperationOutcome severity levels and issue codes used when rendering
// validation results in FHIR form.
const (
	IssueSeverityError       = "error"
	IssueSeverityInformation = "information"

	IssueTypeInvalid       = "invalid"
	IssueTypeInformational = "informational"
)

// OperationOutcome is a FHIR OperationOutcome.
type OperationOutcome struct {
	ResourceType string                  `json:"resourceType"`
	Issue        []OperationOutcomeIssue `json:"issue"`
}

// OperationOutcomeIssue is one issue of an OperationOutcome.
type OperationOutcomeIssue struct {
	Severity    string `json:"severity"`
	Code        string `json:"code"`
	Diagnostics string `json:"diagnostics,omitempty"`
}

// ToOperationOutcome renders the validation result. A valid result yields a
// single informational issue.
func (vr *ValidationResult) ToOperationOutcome() *OperationOutcome {
	oo := &OperationOutcome{ResourceType: "OperationOutcome"}
	if vr.Valid || len(vr.Issues) == 0 {
		oo.Issue = []OperationOutcomeIssue{{
			Severity:    IssueSeverityInformation,
			Code:        IssueTypeInformational,
			Diagnostics: "validation successful",
		}}
		return oo
	}
	oo.Issue = make([]OperationOutcomeIssue, 0, len(vr.Issues))
	for _, msg := range vr.Issues {
		oo.Issue = append(oo.Issue, OperationOutcomeIssue{
			Severity:    IssueSeverityError,
			Code:        IssueTypeInvalid,
			Diagnostics: msg,
		})
	}
	return oo
}
