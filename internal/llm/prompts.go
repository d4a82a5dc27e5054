package llm

import (
	"fmt"
	"strings"
)

const (
	ClassDiagram     = "Class Diagram"
	SequenceDiagram  = "Sequence Diagram"
	UseCaseDiagram   = "Use Case Diagram"
	ActivityDiagram  = "Activity Diagram"
	ComponentDiagram = "Component Diagram"
	StateDiagram     = "State Diagram"
	GeneralDiagram   = "General Diagram"
)

// rule maps lowercased text to a diagram label. Rules are evaluated in order and
// the first match wins, so overlapping keywords (e.g. "actor") resolve to the
// earlier label.
type rule struct {
	label string
	match func(s string) bool
}

func containsAny(words ...string) func(string) bool {
	return func(s string) bool {
		for _, w := range words {
			if strings.Contains(s, w) {
				return true
			}
		}
		return false
	}
}

var promptRules = []rule{
	{ClassDiagram, containsAny("class", "inheritance", "attributes", "methods")},
	{SequenceDiagram, containsAny("sequence", "message", "actor")},
	{UseCaseDiagram, containsAny("use case", "actor", "user")},
	{ActivityDiagram, containsAny("activity", "workflow", "process")},
	{ComponentDiagram, containsAny("component", "interface", "service")},
	{StateDiagram, containsAny("state", "transition")},
}

var codeRules = []rule{
	{ClassDiagram, containsAny("class ")},
	{SequenceDiagram, containsAny("actor ", "participant ")},
	{UseCaseDiagram, containsAny("usecase")},
	{ActivityDiagram, func(s string) bool {
		return strings.Contains(s, "start") && strings.Contains(s, "end") &&
			(strings.Contains(s, "if") || strings.Contains(s, "while"))
	}},
	{ComponentDiagram, containsAny("component")},
	{StateDiagram, containsAny("state")},
}

// ClassifyPrompt picks the diagram type for a natural-language request.
func ClassifyPrompt(prompt string) string {
	return classify(strings.ToLower(prompt), promptRules)
}

// ClassifyCode picks the diagram type for existing PlantUML source.
func ClassifyCode(code string) string {
	return classify(strings.ToLower(code), codeRules)
}

func classify(s string, rules []rule) string {
	for _, r := range rules {
		if r.match(s) {
			return r.label
		}
	}
	return GeneralDiagram
}

const refineMessageFormat = "Refine this PlantUML diagram based on the following feedback:\n\nFeedback: %s\n\nExisting code:\n```\n%s\n```"

// RefineMessage composes the user turn for a refinement request.
func RefineMessage(existingCode, feedback string) string {
	return fmt.Sprintf(refineMessageFormat, feedback, existingCode)
}

// SystemPrompt renders the fixed instruction template for a diagram type.
func SystemPrompt(diagramType string) string {
	return fmt.Sprintf(systemPromptTemplate, diagramType)
}

const systemPromptTemplate = `You are an expert at creating PlantUML diagrams.
Your task is to convert natural language descriptions into valid PlantUML code.

Rules:
1. Always begin with @startuml and end with @enduml. Do not include any other uml tags.
2. Use appropriate PlantUML syntax for the type of diagram
3. Include meaningful relationships between elements
4. Add comments to explain complex parts
5. Focus only on generating valid PlantUML code which does not have any syntax errors
6. Return ONLY the PlantUML code without any explanations or markdown formatting

Examples:
- Class Diagram:
@startuml
class Customer {
  -id: Long
  -name: String
  +placeOrder(): Order
}

class Order {
  -number: String
  -total: Double
  +cancel(): boolean
}

Customer "1" -- "many" Order: places >
@enduml

- Sequence Diagram:
@startuml
actor User
participant "Web App" as App
participant "Auth Service" as Auth

User -> App: Submit credentials
App -> Auth: Verify
alt valid
  Auth --> App: Token
  App --> User: Dashboard
else invalid
  Auth --> App: Rejected
  App --> User: Error message
end
@enduml

- Activity Diagram:
@startuml
start
:Receive order;
if (In stock?) then (yes)
  :Ship order;
else (no)
  :Backorder;
endif
stop
@enduml

- Use Case Diagram:
@startuml
left to right direction
actor Customer
rectangle "Shop" {
  Customer -- (Browse)
  Customer -- (Checkout)
  (Checkout) .> (Pay) : includes
}
@enduml

- State Diagram:
@startuml
[*] --> Draft
Draft --> Review : Submit
Review --> Draft : Request changes
Review --> Published : Approve
Published --> [*]
@enduml

Diagram type context: %s
`
