// Package models is the built-in descriptor catalog: a manual table of the
// core resource types registered at startup.
package models

import (
	"sort"
	"strings"

	"github.com/hacs/hacs/internal/platform/modeling"
)

// Resource type names in the catalog.
const (
	TypePatient            = "Patient"
	TypeObservation        = "Observation"
	TypeCondition          = "Condition"
	TypeEncounter          = "Encounter"
	TypeOrganization       = "Organization"
	TypePractitioner       = "Practitioner"
	TypeMedicationRequest  = "MedicationRequest"
	TypeProcedure          = "Procedure"
	TypeAllergyIntolerance = "AllergyIntolerance"
	TypeDiagnosticReport   = "DiagnosticReport"
	TypeDocument           = "Document"
	TypeGoal               = "Goal"
	TypeMemoryBlock        = "MemoryBlock"
	TypeActor              = "Actor"
	TypeAgentMessage       = "AgentMessage"
)

// EncounterStatus values.
const (
	EncounterStatusPlanned    = "planned"
	EncounterStatusInProgress = "in-progress"
	EncounterStatusFinished   = "finished"
	EncounterStatusCancelled  = "cancelled"
)

// ObservationStatus values.
const (
	ObservationStatusRegistered  = "registered"
	ObservationStatusPreliminary = "preliminary"
	ObservationStatusFinal       = "final"
	ObservationStatusAmended     = "amended"
)

// MemoryType values for MemoryBlock.
const (
	MemoryEpisodic   = "episodic"
	MemorySemantic   = "semantic"
	MemoryProcedural = "procedural"
	MemoryWorking    = "working"
)

type field = modeling.FieldInfo

func req(typ, desc string) field { return field{Type: typ, Description: desc, Required: true} }
func opt(typ, desc string) field { return field{Type: typ, Description: desc} }

func oneOf(values ...string) string { return strings.Join(values, " | ") }

var (
	encounterStatuses   = []string{EncounterStatusPlanned, EncounterStatusInProgress, EncounterStatusFinished, EncounterStatusCancelled}
	observationStatuses = []string{ObservationStatusRegistered, ObservationStatusPreliminary, ObservationStatusFinal, ObservationStatusAmended}
	memoryTypes         = []string{MemoryEpisodic, MemorySemantic, MemoryProcedural, MemoryWorking}
)

// base fields carried by every catalog type. id is optional: it is assigned
// on instantiation.
func base(fields map[string]field) map[string]field {
	fields[modeling.FieldID] = opt(modeling.TypeString, "Logical id of the resource")
	fields[modeling.FieldResourceType] = opt(modeling.TypeString, "Resource type name")
	fields[modeling.FieldCreatedAt] = opt(modeling.TypeDateTime, "Creation timestamp")
	fields[modeling.FieldUpdatedAt] = opt(modeling.TypeDateTime, "Last update timestamp")
	fields["meta"] = opt(modeling.TypeObject, "Free-form metadata")
	return fields
}

var catalog = map[string]map[string]field{
	TypePatient: base(map[string]field{
		"full_name":            req(modeling.TypeString, "Full display name"),
		"given":                opt("list[string]", "Given names"),
		"family":               opt(modeling.TypeString, "Family name"),
		"gender":               opt(modeling.TypeString, "male | female | other | unknown"),
		"birth_date":           opt(modeling.TypeDate, "Date of birth"),
		"active":               opt(modeling.TypeBoolean, "Whether the record is in active use"),
		"identifier":           opt(modeling.TypeArray, "Business identifiers"),
		"telecom":              opt(modeling.TypeArray, "Contact points"),
		"address":              opt(modeling.TypeArray, "Addresses"),
		"managingOrganization": opt(modeling.TypeReference, "Organization that is the custodian of the record"),
		"generalPractitioner":  opt("list[reference]", "Nominated primary care providers"),
		"agent_context":        opt(modeling.TypeObject, "Context carried for agents working on this patient"),
	}),
	TypeObservation: base(map[string]field{
		"status":              req(modeling.TypeString, oneOf(observationStatuses...)),
		"code":                req(modeling.TypeObject, "What was observed"),
		"category":            opt(modeling.TypeArray, "Classification of the observation"),
		"subject":             opt(modeling.TypeReference, "Who the observation is about"),
		"encounter":           opt(modeling.TypeReference, "Encounter during which it was made"),
		"performer":           opt("list[reference]", "Who is responsible"),
		"effective_date_time": opt(modeling.TypeDateTime, "Clinically relevant time"),
		"value_quantity":      opt(modeling.TypeObject, "Quantity result"),
		"value_string":        opt(modeling.TypeString, "Text result"),
		"interpretation":      opt(modeling.TypeArray, "High, low, normal, etc."),
		"note":                opt(modeling.TypeArray, "Comments about the observation"),
	}),
	TypeCondition: base(map[string]field{
		"code":                req(modeling.TypeObject, "Identification of the condition"),
		"subject":             req(modeling.TypeReference, "Who has the condition"),
		"clinical_status":     opt(modeling.TypeString, "active | recurrence | relapse | inactive | remission | resolved"),
		"verification_status": opt(modeling.TypeString, "unconfirmed | provisional | differential | confirmed"),
		"severity":            opt(modeling.TypeObject, "Subjective severity"),
		"encounter":           opt(modeling.TypeReference, "Encounter created as part of"),
		"onset_date_time":     opt(modeling.TypeDateTime, "Estimated or actual onset"),
		"recorder":            opt(modeling.TypeReference, "Who recorded the condition"),
		"evidence":            opt(modeling.TypeArray, "Supporting evidence"),
	}),
	TypeEncounter: base(map[string]field{
		"status":          req(modeling.TypeString, oneOf(encounterStatuses...)),
		"class":           opt(modeling.TypeObject, "Classification of the encounter"),
		"subject":         opt(modeling.TypeReference, "The patient present at the encounter"),
		"participant":     opt(modeling.TypeArray, "Participants in the encounter"),
		"period":          opt(modeling.TypeObject, "Start and end time"),
		"reason_code":     opt(modeling.TypeArray, "Coded reason the encounter takes place"),
		"serviceProvider": opt(modeling.TypeReference, "Organization responsible for the encounter"),
		"location":        opt(modeling.TypeArray, "Locations the patient has been"),
	}),
	TypeOrganization: base(map[string]field{
		"name":       req(modeling.TypeString, "Name used for the organization"),
		"active":     opt(modeling.TypeBoolean, "Whether the record is in active use"),
		"type":       opt(modeling.TypeArray, "Kind of organization"),
		"telecom":    opt(modeling.TypeArray, "Contact details"),
		"address":    opt(modeling.TypeArray, "Addresses"),
		"identifier": opt(modeling.TypeArray, "Business identifiers"),
		"partOf":     opt(modeling.TypeReference, "Parent organization"),
	}),
	TypePractitioner: base(map[string]field{
		"name":          req(modeling.TypeString, "Practitioner name"),
		"active":        opt(modeling.TypeBoolean, "Whether the record is in active use"),
		"gender":        opt(modeling.TypeString, "male | female | other | unknown"),
		"qualification": opt(modeling.TypeArray, "Certifications and licenses"),
		"telecom":       opt(modeling.TypeArray, "Contact details"),
		"organization":  opt(modeling.TypeReference, "Employing organization"),
	}),
	TypeMedicationRequest: base(map[string]field{
		"status":             req(modeling.TypeString, "active | on-hold | cancelled | completed | stopped | draft"),
		"intent":             req(modeling.TypeString, "proposal | plan | order | original-order"),
		"medication":         req(modeling.TypeObject, "Medication to be taken"),
		"subject":            req(modeling.TypeReference, "Who the medication is for"),
		"requester":          opt(modeling.TypeReference, "Who requested the medication"),
		"encounter":          opt(modeling.TypeReference, "Encounter the request is part of"),
		"authored_on":        opt(modeling.TypeDateTime, "When the request was written"),
		"dosage_instruction": opt(modeling.TypeArray, "How the medication should be taken"),
		"reason_reference":   opt("list[reference]", "Condition or observation that supports the prescription"),
	}),
	TypeProcedure: base(map[string]field{
		"status":              req(modeling.TypeString, "preparation | in-progress | completed | stopped"),
		"code":                req(modeling.TypeObject, "Identification of the procedure"),
		"subject":             req(modeling.TypeReference, "Who the procedure was performed on"),
		"encounter":           opt(modeling.TypeReference, "Encounter the procedure was part of"),
		"performed_date_time": opt(modeling.TypeDateTime, "When the procedure was performed"),
		"performer":           opt(modeling.TypeArray, "People who performed the procedure"),
		"reason_reference":    opt("list[reference]", "Why the procedure was performed"),
	}),
	TypeAllergyIntolerance: base(map[string]field{
		"patient":         req(modeling.TypeReference, "Who the sensitivity is for"),
		"code":            req(modeling.TypeObject, "Substance responsible"),
		"clinical_status": opt(modeling.TypeString, "active | inactive | resolved"),
		"criticality":     opt(modeling.TypeString, "low | high | unable-to-assess"),
		"reaction":        opt(modeling.TypeArray, "Adverse reaction events"),
		"recorded_date":   opt(modeling.TypeDateTime, "Date first recorded"),
	}),
	TypeDiagnosticReport: base(map[string]field{
		"status":     req(modeling.TypeString, "registered | partial | final | amended"),
		"code":       req(modeling.TypeObject, "Name of the report"),
		"subject":    opt(modeling.TypeReference, "The subject of the report"),
		"encounter":  opt(modeling.TypeReference, "Encounter the report is part of"),
		"result":     opt("list[reference]", "Observations included in the report"),
		"conclusion": opt(modeling.TypeString, "Clinical interpretation"),
		"issued":     opt(modeling.TypeDateTime, "When the report was released"),
	}),
	TypeDocument: base(map[string]field{
		"title":           req(modeling.TypeString, "Document title"),
		"status":          opt(modeling.TypeString, "preliminary | final | amended"),
		"subject":         opt(modeling.TypeReference, "Who or what the document is about"),
		"author":          opt("list[reference]", "Who authored the document"),
		"sections":        opt(modeling.TypeArray, "Document sections"),
		"document_type":   opt(modeling.TypeString, "Kind of document"),
		"confidentiality": opt(modeling.TypeString, "Confidentiality level"),
	}),
	TypeGoal: base(map[string]field{
		"lifecycle_status": req(modeling.TypeString, "proposed | planned | accepted | active | completed | cancelled"),
		"description":      req(modeling.TypeString, "Description of the goal"),
		"subject":          req(modeling.TypeReference, "Who the goal is for"),
		"priority":         opt(modeling.TypeString, "high-priority | medium-priority | low-priority"),
		"target":           opt(modeling.TypeArray, "Target outcomes"),
		"addresses":        opt("list[reference]", "Issues addressed by this goal"),
	}),
	TypeMemoryBlock: base(map[string]field{
		"memory_type":      req(modeling.TypeString, oneOf(memoryTypes...)),
		"content":          req(modeling.TypeString, "Memory content"),
		"importance_score": opt(modeling.TypeNumber, "Importance between 0 and 1"),
		"tags":             opt("list[string]", "Free-form tags"),
		"context_metadata": opt(modeling.TypeObject, "Where the memory came from"),
		"related_memories": opt("list[reference]", "Linked memory blocks"),
		"subject":          opt(modeling.TypeReference, "Resource the memory is about"),
	}),
	TypeActor: base(map[string]field{
		"name":         req(modeling.TypeString, "Actor name"),
		"role":         req(modeling.TypeString, "physician | nurse | agent | system | patient"),
		"permissions":  opt("list[string]", "Granted permissions"),
		"organization": opt(modeling.TypeReference, "Organization the actor belongs to"),
		"is_active":    opt(modeling.TypeBoolean, "Whether the actor may act"),
		"session_id":   opt(modeling.TypeString, "Current session identifier"),
	}),
	TypeAgentMessage: base(map[string]field{
		"role":             req(modeling.TypeString, "user | assistant | system | tool"),
		"content":          req(modeling.TypeString, "Message content"),
		"confidence_score": opt(modeling.TypeNumber, "Confidence between 0 and 1"),
		"related_to":       opt("list[reference]", "Resources the message refers to"),
		"tool_calls":       opt(modeling.TypeArray, "Tool invocations made by the agent"),
		"memory_handles":   opt("list[reference]", "Memory blocks consulted"),
	}),
}

// Names returns the catalog's resource type names in sorted order.
func Names() []string {
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Descriptors returns a fresh copy of every catalog descriptor, sorted by
// resource type.
func Descriptors() []modeling.SchemaDescriptor {
	out := make([]modeling.SchemaDescriptor, 0, len(catalog))
	for _, name := range Names() {
		fields := make(map[string]modeling.FieldInfo, len(catalog[name]))
		for k, v := range catalog[name] {
			fields[k] = v
		}
		out = append(out, modeling.SchemaDescriptor{ResourceType: name, Fields: fields})
	}
	return out
}

// Register adds every catalog descriptor to reg.
func Register(reg *modeling.Registry) error {
	return reg.RegisterAll(Descriptors())
}
