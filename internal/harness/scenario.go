package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Scenario defines an outline scenario: a seed document, a flow of
// operations and assertions on the result.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Templates lists CUE files declaring the templates nodes may use.
	// Paths are relative to the scenario file location.
	Templates []string `yaml:"templates,omitempty"`

	// Nodes seeds the document. Node positions follow list order.
	Nodes []NodeSpec `yaml:"nodes,omitempty"`

	// Expanded lists the initially expanded instances.
	Expanded []string `yaml:"expanded,omitempty"`

	// Flow contains the operations to run, in order.
	Flow []Step `yaml:"flow"`

	// Assertions validate the final state and trace.
	Assertions []Assertion `yaml:"assertions"`
}

// NodeSpec describes a seed node or a node to create.
type NodeSpec struct {
	ID       string         `yaml:"id"`
	Name     string         `yaml:"name"`
	Template string         `yaml:"template,omitempty"`
	Parents  []string       `yaml:"parents,omitempty"`
	Data     map[string]any `yaml:"data,omitempty"`
	Starred  bool           `yaml:"starred,omitempty"`

	// Order gives the sort key under each parent. When omitted, children
	// are ordered as listed.
	Order []int64 `yaml:"order,omitempty"`
}

// PatchSpec is a partial node update.
type PatchSpec struct {
	Name    *string        `yaml:"name,omitempty"`
	Data    map[string]any `yaml:"data,omitempty"`
	Unset   []string       `yaml:"unset,omitempty"`
	Starred *bool          `yaml:"starred,omitempty"`
}

// Step is one flow operation. Op selects the operation; the other fields
// are read as that operation needs them.
type Step struct {
	Op        string     `yaml:"op"`
	Target    string     `yaml:"target,omitempty"`
	Instances []string   `yaml:"instances,omitempty"`
	Nodes     []string   `yaml:"nodes,omitempty"`
	Position  string     `yaml:"position,omitempty"`
	Direction string     `yaml:"direction,omitempty"`
	AllEdges  bool       `yaml:"all_edges,omitempty"`
	Clone     bool       `yaml:"clone,omitempty"`
	Node      *NodeSpec  `yaml:"node,omitempty"`
	Patch     *PatchSpec `yaml:"patch,omitempty"`
	Template  string     `yaml:"template,omitempty"`
	Title     string     `yaml:"title,omitempty"`

	// Expect validates the step. Without it the step must not be rejected.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect specifies how a step must end.
type Expect struct {
	// Outcome is one of applied, noop, rejected or ok.
	Outcome string `yaml:"outcome,omitempty"`

	// Error is the expected error code; it implies a rejected outcome.
	Error string `yaml:"error,omitempty"`

	// Focus is the instance the command should reveal.
	Focus string `yaml:"focus,omitempty"`
}

// Assertion validates the final state or the trace.
type Assertion struct {
	Type string `yaml:"type"`

	// Lines is the expected rendering (tree, visible).
	Lines []string `yaml:"lines,omitempty"`

	// Node names the node under test (parents, data).
	Node    string   `yaml:"node,omitempty"`
	Parents []string `yaml:"parents,omitempty"`

	// History expectations.
	CanUndo *bool  `yaml:"can_undo,omitempty"`
	CanRedo *bool  `yaml:"can_redo,omitempty"`
	Undo    string `yaml:"undo,omitempty"`

	// Instances is the expected selection.
	Instances []string `yaml:"instances,omitempty"`

	// Count is used by nodes, orphans and trace_count.
	Count *int `yaml:"count,omitempty"`

	// Expect is a subset of the node payload (data).
	Expect map[string]any `yaml:"expect,omitempty"`

	// Op and Outcome filter trace_count; Ops is the trace_order sequence.
	Op      string   `yaml:"op,omitempty"`
	Outcome string   `yaml:"outcome,omitempty"`
	Ops     []string `yaml:"ops,omitempty"`
}

// Assertion type constants.
const (
	AssertTree       = "tree"
	AssertVisible    = "visible"
	AssertParents    = "parents"
	AssertHistory    = "history"
	AssertSelected   = "selected"
	AssertNodes      = "nodes"
	AssertOrphans    = "orphans"
	AssertData       = "data"
	AssertTraceCount = "trace_count"
	AssertTraceOrder = "trace_order"
)

// knownOps lists every flow op.
var knownOps = map[string]bool{
	"add-root": true, "add-child": true, "add-sibling": true,
	"move": true, "move-batch": true, "clone": true, "duplicate": true,
	"delete": true, "reorder": true, "update": true, "toggle-star": true,
	"change-template": true, "undo": true, "redo": true,
	"copy": true, "cut": true, "paste": true,
	"select": true, "expand": true, "collapse": true,
	"expand-all": true, "collapse-all": true, "set-title": true,
}

// LoadScenario reads and parses a scenario YAML file. Template paths are
// resolved relative to the file.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving template paths relative to basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data, basePath)
}

// ParseScenario parses scenario YAML. Unknown fields are rejected.
func ParseScenario(data []byte, basePath string) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	for i, p := range scenario.Templates {
		if !filepath.IsAbs(p) && basePath != "" {
			scenario.Templates[i] = filepath.Join(basePath, p)
		}
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// ParseSteps parses a YAML list of flow steps, as used outside a scenario.
func ParseSteps(data []byte) ([]Step, error) {
	var steps []Step
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&steps); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	for i, step := range steps {
		if !knownOps[step.Op] {
			return nil, fmt.Errorf("steps[%d]: unknown op %q", i, step.Op)
		}
	}
	return steps, nil
}

// LoadDir loads every *.yaml scenario in dir, sorted by file name.
func LoadDir(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	out := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		out = append(out, s)
	}
	return out, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for _, p := range s.Templates {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			return fmt.Errorf("template file not found: %s", p)
		}
	}

	seen := make(map[string]bool, len(s.Nodes))
	for i, n := range s.Nodes {
		if n.ID == "" {
			return fmt.Errorf("nodes[%d]: id is required", i)
		}
		if seen[n.ID] {
			return fmt.Errorf("nodes[%d]: duplicate id %q", i, n.ID)
		}
		seen[n.ID] = true
		if len(n.Order) > 0 && len(n.Order) != len(n.Parents) {
			return fmt.Errorf("nodes[%d]: order has %d entries for %d parents", i, len(n.Order), len(n.Parents))
		}
	}

	for i, step := range s.Flow {
		if step.Op == "" {
			return fmt.Errorf("flow[%d]: op is required", i)
		}
		if !knownOps[step.Op] {
			return fmt.Errorf("flow[%d]: unknown op %q", i, step.Op)
		}
		if e := step.Expect; e != nil {
			switch e.Outcome {
			case "", OutcomeApplied, OutcomeNoop, OutcomeRejected, OutcomeOK:
			default:
				return fmt.Errorf("flow[%d].expect: unknown outcome %q", i, e.Outcome)
			}
			if e.Error != "" && e.Outcome != "" && e.Outcome != OutcomeRejected {
				return fmt.Errorf("flow[%d].expect: error implies outcome %s", i, OutcomeRejected)
			}
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTree, AssertVisible:
		if a.Lines == nil {
			return fmt.Errorf("assertions[%d]: lines is required for %s", index, a.Type)
		}
	case AssertParents:
		if a.Node == "" {
			return fmt.Errorf("assertions[%d]: node is required for parents", index)
		}
	case AssertHistory:
		if a.CanUndo == nil && a.CanRedo == nil && a.Undo == "" {
			return fmt.Errorf("assertions[%d]: history needs can_undo, can_redo or undo", index)
		}
	case AssertSelected:
	case AssertNodes, AssertOrphans:
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: a non-negative count is required for %s", index, a.Type)
		}
	case AssertData:
		if a.Node == "" {
			return fmt.Errorf("assertions[%d]: node is required for data", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for data", index)
		}
	case AssertTraceCount:
		if a.Op == "" {
			return fmt.Errorf("assertions[%d]: op is required for trace_count", index)
		}
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertTraceOrder:
		if len(a.Ops) == 0 {
			return fmt.Errorf("assertions[%d]: ops list is required for trace_order", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
