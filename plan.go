package taskloop

import (
	_ "embed"
	"encoding/json"
	"strings"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed plan_schema.json
var planSchemaJSON string

// StepStatus is the progress of a step. It only moves from pending to completed.
type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepCompleted StepStatus = "completed"
)

// Step is a single unit of work. Its identity is its position in the plan.
type Step struct {
	Title       string     `json:"title,omitempty"`
	Description string     `json:"description"`
	Status      StepStatus `json:"status"`
}

// Plan is the goal and the ordered steps to reach it. It is shared by every
// phase of a run; only the orchestrator mutates it.
type Plan struct {
	Goal    string `json:"goal"`
	Thought string `json:"thought,omitempty"`
	Steps   []Step `json:"steps"`
}

// NewPlan returns a plan whose steps are all pending.
func NewPlan(goal string, descriptions ...string) *Plan {
	p := &Plan{Goal: goal}
	for _, d := range descriptions {
		p.Steps = append(p.Steps, Step{Description: d, Status: StepPending})
	}
	return p
}

// NextPending returns the first pending step from the left, or -1 and nil.
func (p *Plan) NextPending() (int, *Step) {
	if p == nil {
		return -1, nil
	}
	for i := range p.Steps {
		if p.Steps[i].Status == StepPending {
			return i, &p.Steps[i]
		}
	}
	return -1, nil
}

// Complete marks the step at i as completed. A completed step stays completed.
func (p *Plan) Complete(i int) error {
	if i < 0 || i >= len(p.Steps) {
		return goerr.New("step index out of range", goerr.V("index", i), goerr.V("steps", len(p.Steps)))
	}
	p.Steps[i].Status = StepCompleted
	return nil
}

// Done reports whether no pending step remains.
func (p *Plan) Done() bool {
	idx, _ := p.NextPending()
	return idx < 0
}

// CompletedCount returns the number of completed steps.
func (p *Plan) CompletedCount() int {
	n := 0
	for _, s := range p.Steps {
		if s.Status == StepCompleted {
			n++
		}
	}
	return n
}

func (p *Plan) Clone() *Plan {
	if p == nil {
		return nil
	}
	c := *p
	c.Steps = append([]Step(nil), p.Steps...)
	return &c
}

// Reconcile adopts an updated plan from the planner without breaking the
// invariants of the current one: every completed step is kept verbatim and
// in order, and no step is completed by the planner.
//
// The result is the completed steps of p followed by the steps proposed by
// next, each as pending. A proposed step is dropped when it repeats the
// description of a completed step, or when the model marks it completed at a
// position covered by the completed steps. Dropped steps are returned so the
// caller can report them.
func (p *Plan) Reconcile(next *Plan) (*Plan, []Step) {
	if next == nil {
		return p.Clone(), nil
	}

	out := &Plan{
		Goal:    next.Goal,
		Thought: next.Thought,
	}
	if out.Goal == "" {
		out.Goal = p.Goal
	}

	done := make(map[string]struct{})
	for _, s := range p.Steps {
		if s.Status == StepCompleted {
			out.Steps = append(out.Steps, s)
			done[normalizeDescription(s.Description)] = struct{}{}
		}
	}
	completed := len(out.Steps)

	var dropped []Step
	for i, s := range next.Steps {
		if _, ok := done[normalizeDescription(s.Description)]; ok {
			dropped = append(dropped, s)
			continue
		}
		if s.Status == StepCompleted && i < completed {
			dropped = append(dropped, s)
			continue
		}
		// only the executor completes steps
		s.Status = StepPending
		out.Steps = append(out.Steps, s)
	}

	return out, dropped
}

func normalizeDescription(d string) string {
	return strings.ToLower(strings.Join(strings.Fields(d), " "))
}

// String renders the plan as a JSON document.
func (p *Plan) String() string {
	raw, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return ""
	}
	return string(raw)
}

var (
	compileOnce sync.Once
	planSchema  *jsonschema.Schema
	compileErr  error
)

// PlanSchema returns the compiled JSON Schema for plan documents.
func PlanSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(planSchemaJSON))
		if err != nil {
			compileErr = goerr.Wrap(err, "failed to decode plan schema")
			return
		}

		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("plan_schema.json", doc); err != nil {
			compileErr = goerr.Wrap(err, "failed to add plan schema resource")
			return
		}
		schema, err := compiler.Compile("plan_schema.json")
		if err != nil {
			compileErr = goerr.Wrap(err, "failed to compile plan schema")
			return
		}
		planSchema = schema
	})
	return planSchema, compileErr
}

// ValidatePlanDocument validates a decoded JSON value against the plan schema.
func ValidatePlanDocument(doc any) error {
	schema, err := PlanSchema()
	if err != nil {
		return err
	}
	return schema.Validate(doc)
}

// ParsePlan decodes a plan from a model reply. Steps without a status are
// pending. Decode and schema failures are returned as *ParseError.
func ParsePlan(raw string) (*Plan, error) {
	body := ExtractFenced(StripReasoning(raw))

	var doc any
	if err := decodeStrict(body, &doc); err != nil {
		return nil, newParseError(err, raw)
	}
	if err := ValidatePlanDocument(doc); err != nil {
		return nil, newParseError(err, raw)
	}

	var plan Plan
	if err := json.Unmarshal([]byte(body), &plan); err != nil {
		return nil, newParseError(err, raw)
	}
	for i := range plan.Steps {
		if plan.Steps[i].Status == "" {
			plan.Steps[i].Status = StepPending
		}
	}

	return &plan, nil
}
