// Package loader parses declarative rule pack files into rulemodel
// instances. Structural validation happens here, before anything reaches
// evaluation: each rule document is checked against an embedded JSON Schema,
// decoded, and deep-validated; failures are reported per rule and never
// abort the rest of the pack.
package loader

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/Masterminds/semver/v3"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/clauselab/regula/pkg/rulemodel"
)

//go:embed rule.schema.json
var ruleSchemaJSON []byte

const ruleSchemaURL = "https://clauselab.io/schemas/regula/rule.schema.json"

var ruleSchema = mustCompileSchema()

func mustCompileSchema() *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(ruleSchemaURL, bytes.NewReader(ruleSchemaJSON)); err != nil {
		panic(fmt.Sprintf("loader: embedded schema: %v", err))
	}
	return c.MustCompile(ruleSchemaURL)
}

// ErrorKind classifies a per-rule load failure.
type ErrorKind string

const (
	ErrSchema          ErrorKind = "schema"
	ErrDuplicateRuleID ErrorKind = "duplicate_rule_id"
	ErrMalformedTree   ErrorKind = "malformed_tree"
)

// LoadError describes why one rule in a pack could not be loaded. The rest
// of the pack is unaffected.
type LoadError struct {
	RuleID string
	Index  int
	Kind   ErrorKind
	Reason string
}

func (e LoadError) Error() string {
	id := e.RuleID
	if id == "" {
		id = fmt.Sprintf("#%d", e.Index)
	}
	return fmt.Sprintf("loader: rule %s: %s: %s", id, e.Kind, e.Reason)
}

// Loader parses rule packs. The zero value is not usable; construct with
// New.
type Loader struct {
	logger *slog.Logger
}

// New returns a Loader logging through the given logger (nil means
// slog.Default).
func New(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger}
}

// packDoc mirrors the pack envelope for the first generic decode pass.
type packDoc struct {
	PackID      string `yaml:"pack_id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Version     string `yaml:"version"`
	Rules       []any  `yaml:"rules"`
}

// Load parses a YAML rule pack. Structurally invalid rules are dropped and
// reported in the returned error list; the pack itself is returned as long
// as the envelope parses. The returned error is non-nil only for
// pack-level failures (unparseable document, missing pack_id, bad
// version).
func (l *Loader) Load(r io.Reader) (*rulemodel.RulePack, []LoadError, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("loader: read: %w", err)
	}

	var doc packDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("loader: parse pack: %w", err)
	}
	if doc.PackID == "" {
		return nil, nil, fmt.Errorf("loader: pack_id is required")
	}
	if doc.Version == "" {
		return nil, nil, fmt.Errorf("loader: pack %s: version is required", doc.PackID)
	}
	if _, err := semver.NewVersion(doc.Version); err != nil {
		return nil, nil, fmt.Errorf("loader: pack %s: version %q is not semver: %w", doc.PackID, doc.Version, err)
	}

	pack := &rulemodel.RulePack{
		PackID:      doc.PackID,
		Name:        doc.Name,
		Description: doc.Description,
		Version:     doc.Version,
	}

	var loadErrs []LoadError
	seen := make(map[string]bool)

	for i, raw := range doc.Rules {
		rule, lerr := l.loadRule(i, raw)
		if lerr != nil {
			loadErrs = append(loadErrs, *lerr)
			continue
		}
		if seen[rule.RuleID] {
			loadErrs = append(loadErrs, LoadError{
				RuleID: rule.RuleID,
				Index:  i,
				Kind:   ErrDuplicateRuleID,
				Reason: fmt.Sprintf("rule_id %q already defined in pack %s", rule.RuleID, doc.PackID),
			})
			continue
		}
		seen[rule.RuleID] = true
		pack.Rules = append(pack.Rules, *rule)
	}

	for _, le := range loadErrs {
		l.logger.Warn("rule rejected at load",
			"pack_id", doc.PackID, "rule_id", le.RuleID, "kind", string(le.Kind), "reason", le.Reason)
	}
	l.logger.Info("rule pack loaded",
		"pack_id", doc.PackID, "version", doc.Version,
		"rules", len(pack.Rules), "rejected", len(loadErrs))

	return pack, loadErrs, nil
}

// LoadFile parses a YAML rule pack from disk.
func (l *Loader) LoadFile(path string) (*rulemodel.RulePack, []LoadError, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("loader: open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	return l.Load(f)
}

func (l *Loader) loadRule(index int, raw any) (*rulemodel.Rule, *LoadError) {
	ruleID, _ := ruleIDOf(raw)

	// Schema validation runs over JSON-shaped data; YAML decoding yields
	// ints and interface keys, so round-trip through encoding/json first.
	jsonShaped, err := toJSONValue(raw)
	if err != nil {
		return nil, &LoadError{RuleID: ruleID, Index: index, Kind: ErrSchema, Reason: err.Error()}
	}
	if err := ruleSchema.Validate(jsonShaped); err != nil {
		return nil, &LoadError{RuleID: ruleID, Index: index, Kind: ErrSchema, Reason: schemaReason(err)}
	}

	data, err := json.Marshal(jsonShaped)
	if err != nil {
		return nil, &LoadError{RuleID: ruleID, Index: index, Kind: ErrSchema, Reason: err.Error()}
	}
	var rule rulemodel.Rule
	if err := json.Unmarshal(data, &rule); err != nil {
		return nil, &LoadError{RuleID: ruleID, Index: index, Kind: ErrSchema, Reason: err.Error()}
	}

	if err := rule.Validate(); err != nil {
		kind := ErrSchema
		if errors.Is(err, rulemodel.ErrMalformedTree) {
			kind = ErrMalformedTree
		}
		return nil, &LoadError{RuleID: rule.RuleID, Index: index, Kind: kind, Reason: err.Error()}
	}
	return &rule, nil
}

func ruleIDOf(raw any) (string, bool) {
	m, ok := raw.(map[string]any)
	if !ok {
		return "", false
	}
	id, ok := m["rule_id"].(string)
	return id, ok
}

// toJSONValue normalizes a YAML-decoded value into the shapes
// encoding/json produces (float64 numbers, map[string]any).
func toJSONValue(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("not JSON-representable: %w", err)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func schemaReason(err error) string {
	var ve *jsonschema.ValidationError
	if errors.As(err, &ve) {
		leaf := ve
		for len(leaf.Causes) > 0 {
			leaf = leaf.Causes[0]
		}
		loc := leaf.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		return fmt.Sprintf("%s: %s", loc, leaf.Message)
	}
	return err.Error()
}
