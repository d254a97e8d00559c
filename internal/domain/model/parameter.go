// Package model contains domain models passed between layers.
package model

import "fmt"

// Rating bounds for a single assessment parameter. Zero means "not rated".
const (
	MinRating = 0
	MaxRating = 5
)

// ParameterID enumerates the 21 rated parameters of an assessment.
type ParameterID int

// Parameters in schema order. The order groups parameters by category.
const (
	// Readiness.
	ContentPreparation ParameterID = iota
	LogisticsReadiness
	Punctuality
	SessionSetup

	// Expertise and delivery.
	DomainExpertise
	ContentDelivery
	Pacing
	UseOfExamples
	HandlingQuestions

	// Engagement.
	ParticipantEngagement
	Interactivity
	EnergyEnthusiasm
	Inclusivity

	// Communication.
	Clarity
	ActiveListening
	FeedbackQuality
	Professionalism

	// Technical acumen.
	TechnicalKnowledge
	ToolProficiency
	Troubleshooting
	HandsOnGuidance

	// NumParameters is the size of the parameter schema.
	NumParameters int = iota
)

// Category is one of the five fixed parameter groupings.
type Category int

// Categories in schema order.
const (
	CategoryReadiness Category = iota
	CategoryExpertiseDelivery
	CategoryEngagement
	CategoryCommunication
	CategoryTechnicalAcumen

	NumCategories int = iota
)

type parameterInfo struct {
	key      string
	label    string
	category Category
}

var parameterTable = [NumParameters]parameterInfo{
	ContentPreparation:    {"content_preparation", "Content Preparation", CategoryReadiness},
	LogisticsReadiness:    {"logistics_readiness", "Logistics Readiness", CategoryReadiness},
	Punctuality:           {"punctuality", "Punctuality", CategoryReadiness},
	SessionSetup:          {"session_setup", "Session Setup", CategoryReadiness},
	DomainExpertise:       {"domain_expertise", "Domain Expertise", CategoryExpertiseDelivery},
	ContentDelivery:       {"content_delivery", "Content Delivery", CategoryExpertiseDelivery},
	Pacing:                {"pacing", "Pacing", CategoryExpertiseDelivery},
	UseOfExamples:         {"use_of_examples", "Use of Examples", CategoryExpertiseDelivery},
	HandlingQuestions:     {"handling_questions", "Handling Questions", CategoryExpertiseDelivery},
	ParticipantEngagement: {"participant_engagement", "Participant Engagement", CategoryEngagement},
	Interactivity:         {"interactivity", "Interactivity", CategoryEngagement},
	EnergyEnthusiasm:      {"energy_enthusiasm", "Energy and Enthusiasm", CategoryEngagement},
	Inclusivity:           {"inclusivity", "Inclusivity", CategoryEngagement},
	Clarity:               {"clarity", "Clarity", CategoryCommunication},
	ActiveListening:       {"active_listening", "Active Listening", CategoryCommunication},
	FeedbackQuality:       {"feedback_quality", "Feedback Quality", CategoryCommunication},
	Professionalism:       {"professionalism", "Professionalism", CategoryCommunication},
	TechnicalKnowledge:    {"technical_knowledge", "Technical Knowledge", CategoryTechnicalAcumen},
	ToolProficiency:       {"tool_proficiency", "Tool Proficiency", CategoryTechnicalAcumen},
	Troubleshooting:       {"troubleshooting", "Troubleshooting", CategoryTechnicalAcumen},
	HandsOnGuidance:       {"hands_on_guidance", "Hands-on Guidance", CategoryTechnicalAcumen},
}

var categoryTable = [NumCategories]struct {
	key   string
	label string
}{
	CategoryReadiness:         {"readiness", "Readiness"},
	CategoryExpertiseDelivery: {"expertise_delivery", "Expertise & Delivery"},
	CategoryEngagement:        {"engagement", "Engagement"},
	CategoryCommunication:     {"communication", "Communication"},
	CategoryTechnicalAcumen:   {"technical_acumen", "Technical Acumen"},
}

// LegacyParameters are the six parameters carried over from the first
// assessment schema. Correlation reports and the well-rounded badge use them.
var LegacyParameters = []ParameterID{
	ContentPreparation,
	DomainExpertise,
	ContentDelivery,
	ParticipantEngagement,
	Clarity,
	TechnicalKnowledge,
}

var (
	parametersByKey map[string]ParameterID
	categoryMembers [NumCategories][]ParameterID
	allParameterIDs []ParameterID
	allCategoryIDs  []Category
)

func init() {
	parametersByKey = make(map[string]ParameterID, NumParameters)
	for i := 0; i < NumParameters; i++ {
		id := ParameterID(i)
		info := parameterTable[i]
		parametersByKey[info.key] = id
		categoryMembers[info.category] = append(categoryMembers[info.category], id)
		allParameterIDs = append(allParameterIDs, id)
	}
	for i := 0; i < NumCategories; i++ {
		allCategoryIDs = append(allCategoryIDs, Category(i))
	}
}

// Valid reports whether p is inside the schema.
func (p ParameterID) Valid() bool { return p >= 0 && int(p) < NumParameters }

// Key is the snake_case wire and column name of the parameter.
func (p ParameterID) Key() string {
	if !p.Valid() {
		return fmt.Sprintf("parameter(%d)", int(p))
	}
	return parameterTable[p].key
}

// Label is the human readable name of the parameter.
func (p ParameterID) Label() string {
	if !p.Valid() {
		return p.Key()
	}
	return parameterTable[p].label
}

// Category returns the category the parameter belongs to.
func (p ParameterID) Category() Category { return parameterTable[p].category }

func (p ParameterID) String() string { return p.Key() }

// ParseParameterID resolves a parameter key such as "pacing".
func ParseParameterID(key string) (ParameterID, error) {
	id, ok := parametersByKey[key]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownParameter, key)
	}
	return id, nil
}

// Parameters returns every parameter id in schema order.
func Parameters() []ParameterID {
	out := make([]ParameterID, len(allParameterIDs))
	copy(out, allParameterIDs)
	return out
}

// Valid reports whether c is one of the fixed categories.
func (c Category) Valid() bool { return c >= 0 && int(c) < NumCategories }

// Key is the snake_case name of the category.
func (c Category) Key() string {
	if !c.Valid() {
		return fmt.Sprintf("category(%d)", int(c))
	}
	return categoryTable[c].key
}

// Label is the human readable name of the category.
func (c Category) Label() string {
	if !c.Valid() {
		return c.Key()
	}
	return categoryTable[c].label
}

func (c Category) String() string { return c.Key() }

// Parameters returns the parameters that belong to c, in schema order.
func (c Category) Parameters() []ParameterID {
	if !c.Valid() {
		return nil
	}
	out := make([]ParameterID, len(categoryMembers[c]))
	copy(out, categoryMembers[c])
	return out
}

// Categories returns every category in schema order.
func Categories() []Category {
	out := make([]Category, len(allCategoryIDs))
	copy(out, allCategoryIDs)
	return out
}
