package domain

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Person identifies a requester, sponsor or stakeholder.
type Person struct {
	Name       string `json:"name" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	Department string `json:"department,omitempty"`
	Position   string `json:"position,omitempty"`
	Phone      string `json:"phone,omitempty"`
}

// Stakeholder is a person with an interest in the request outcome.
type Stakeholder struct {
	Person
	Interest string `json:"interest,omitempty"`
	Internal bool   `json:"internal"`
}

// ProblemStatement describes the situation motivating the request.
type ProblemStatement struct {
	Situation    string `json:"situation" validate:"required"`
	Affected     string `json:"affected,omitempty"`
	Impact       string `json:"impact,omitempty"`
	OccurredAt   string `json:"occurred_at,omitempty"`
	Reproducible bool   `json:"reproducible,omitempty"`
}

// Urgency records why and by when the request matters.
type Urgency struct {
	Reason   string `json:"reason,omitempty"`
	Deadline string `json:"deadline,omitempty"`
	Legal    bool   `json:"legal,omitempty"`
}

// CostItem is one budget line of a solution proposal.
type CostItem struct {
	Concept  string  `json:"concept" validate:"required"`
	Amount   float64 `json:"amount" validate:"gte=0"`
	Currency string  `json:"currency,omitempty"`
	Periodic bool    `json:"periodic,omitempty"`
}

// SolutionProposal is the requester's suggested solution.
type SolutionProposal struct {
	Description  string     `json:"description" validate:"required"`
	Alternatives string     `json:"alternatives,omitempty"`
	CostItems    []CostItem `json:"cost_items,omitempty" validate:"dive"`
}

// Benefits lists expected outcomes.
type Benefits struct {
	Description  string   `json:"description" validate:"required"`
	Quantitative []string `json:"quantitative,omitempty"`
	Qualitative  []string `json:"qualitative,omitempty"`
}

// KPI is a measurable indicator for a request.
type KPI struct {
	Name     string `json:"name" validate:"required"`
	Baseline string `json:"baseline,omitempty"`
	Target   string `json:"target,omitempty"`
	Unit     string `json:"unit,omitempty"`
}

// ProjectReference points to an existing system or project.
type ProjectReference struct {
	Name        string `json:"name" validate:"required"`
	ProjectCode string `json:"project_code,omitempty"`
	URL         string `json:"url,omitempty"`
}

// TransferOrigin records where a transferred request came from.
type TransferOrigin struct {
	EntityType EntityType `json:"entity_type" validate:"required"`
	Code       string     `json:"code" validate:"required"`
	Motive     string     `json:"motive,omitempty"`
}

// RequestDetails holds the kind-dependent sub-documents of a request.
// Sections are optional in the struct; RequiredSections lists what each kind must carry.
type RequestDetails struct {
	Requester        *Person                    `json:"requester,omitempty" validate:"omitempty"`
	Sponsor          *Person                    `json:"sponsor,omitempty" validate:"omitempty"`
	Stakeholders     []Stakeholder              `json:"stakeholders,omitempty" validate:"dive"`
	Problem          *ProblemStatement          `json:"problem,omitempty" validate:"omitempty"`
	Urgency          *Urgency                   `json:"urgency,omitempty"`
	Solution         *SolutionProposal          `json:"solution,omitempty" validate:"omitempty"`
	Benefits         *Benefits                  `json:"benefits,omitempty" validate:"omitempty"`
	KPIs             []KPI                      `json:"kpis,omitempty" validate:"dive"`
	ProjectReference *ProjectReference          `json:"project_reference,omitempty" validate:"omitempty"`
	Origin           *TransferOrigin            `json:"origin,omitempty" validate:"omitempty"`
	Legacy           map[string]json.RawMessage `json:"legacy,omitempty"`
}

// Section names used in validation errors.
const (
	SectionRequester        = "requester"
	SectionSponsor          = "sponsor"
	SectionProblem          = "problem"
	SectionSolution         = "solution"
	SectionBenefits         = "benefits"
	SectionProjectReference = "project_reference"
	SectionOrigin           = "origin"
)

var requiredSections = map[RequestKind][]string{
	KindNewInternalProject: {SectionRequester, SectionSponsor, SectionProblem, SectionSolution, SectionBenefits},
	KindUpdate:             {SectionRequester, SectionProjectReference, SectionProblem},
	KindFaultReport:        {SectionRequester, SectionProblem},
	KindServiceClosure:     {SectionRequester, SectionProjectReference},
	KindTransferredFromTI:  {SectionRequester, SectionProblem, SectionOrigin},
}

// RequiredSections returns the sections a request of the given kind must carry.
func RequiredSections(kind RequestKind) []string {
	return append([]string(nil), requiredSections[kind]...)
}

// MissingSections returns the required sections absent from d for kind, sorted.
func (d RequestDetails) MissingSections(kind RequestKind) []string {
	present := map[string]bool{
		SectionRequester:        d.Requester != nil,
		SectionSponsor:          d.Sponsor != nil,
		SectionProblem:          d.Problem != nil,
		SectionSolution:         d.Solution != nil,
		SectionBenefits:         d.Benefits != nil,
		SectionProjectReference: d.ProjectReference != nil,
		SectionOrigin:           d.Origin != nil,
	}
	var missing []string
	for _, section := range requiredSections[kind] {
		if !present[section] {
			missing = append(missing, section)
		}
	}
	sort.Strings(missing)
	return missing
}

// ProblemSummary returns a one-line description of the problem, if any.
func (d RequestDetails) ProblemSummary() string {
	if d.Problem == nil {
		return ""
	}
	return d.Problem.Situation
}

// TotalCost sums the solution's cost items.
func (d RequestDetails) TotalCost() float64 {
	if d.Solution == nil {
		return 0
	}
	var total float64
	for _, item := range d.Solution.CostItems {
		total += item.Amount
	}
	return total
}

// Marshal encodes the details for a jsonb column.
func (d RequestDetails) Marshal() ([]byte, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("marshal request details: %w", err)
	}
	return raw, nil
}

// UnmarshalRequestDetails decodes a jsonb column. Unknown top-level keys land in Legacy.
func UnmarshalRequestDetails(raw []byte) (RequestDetails, error) {
	var details RequestDetails
	if len(raw) == 0 {
		return details, nil
	}
	if err := json.Unmarshal(raw, &details); err != nil {
		return details, fmt.Errorf("unmarshal request details: %w", err)
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(raw, &all); err != nil {
		return details, fmt.Errorf("unmarshal request details: %w", err)
	}
	for key, value := range all {
		if knownDetailKeys[key] {
			continue
		}
		if details.Legacy == nil {
			details.Legacy = make(map[string]json.RawMessage)
		}
		details.Legacy[key] = value
	}
	return details, nil
}

var knownDetailKeys = map[string]bool{
	"requester": true, "sponsor": true, "stakeholders": true, "problem": true, "urgency": true,
	"solution": true, "benefits": true, "kpis": true, "project_reference": true, "origin": true,
	"legacy": true,
}
