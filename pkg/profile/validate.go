package profile

import (
	"encoding/json"
	"fmt"

	sjsonschema "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/ormasoftchile/toollint/pkg/lint"
	"github.com/ormasoftchile/toollint/pkg/linters"
)

// ValidationError is a single profile validation finding with location
// context.
type ValidationError struct {
	Phase    string `json:"phase"` // structural, semantic, domain
	Path     string `json:"path"`
	Message  string `json:"message"`
	Severity string `json:"severity"` // error, warning
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Phase, e.Path, e.Message)
}

func errorf(phase, path, format string, args ...any) *ValidationError {
	return &ValidationError{Phase: phase, Path: path, Message: fmt.Sprintf(format, args...), Severity: "error"}
}

func warnf(phase, path, format string, args ...any) *ValidationError {
	return &ValidationError{Phase: phase, Path: path, Message: fmt.Sprintf(format, args...), Severity: "warning"}
}

// ValidateFile runs the full validation pipeline on a profile file.
// Phase 1: Structural (strict YAML decode)
// Phase 2: Semantic (JSON Schema validation)
// Phase 3: Domain (custom Go rules)
func ValidateFile(path string) (*Profile, []*ValidationError) {
	p, err := LoadFile(path)
	if err != nil {
		return nil, []*ValidationError{errorf("structural", "", "%s", err.Error())}
	}

	var all []*ValidationError
	all = append(all, validateSemantic(p)...)
	all = append(all, ValidateDomain(p)...)
	return p, all
}

// validateSemantic validates the profile against the generated JSON Schema.
func validateSemantic(p *Profile) []*ValidationError {
	data, err := json.Marshal(p)
	if err != nil {
		return []*ValidationError{errorf("semantic", "", "marshal for schema validation: %v", err)}
	}

	schemaJSON, err := GenerateJSONSchema()
	if err != nil {
		return []*ValidationError{errorf("semantic", "", "generate schema: %v", err)}
	}

	var schemaDoc any
	if err := json.Unmarshal(schemaJSON, &schemaDoc); err != nil {
		return []*ValidationError{errorf("semantic", "", "unmarshal schema: %v", err)}
	}

	c := sjsonschema.NewCompiler()
	if err := c.AddResource("profile-v0.json", schemaDoc); err != nil {
		return []*ValidationError{errorf("semantic", "", "add schema resource: %v", err)}
	}
	sch, err := c.Compile("profile-v0.json")
	if err != nil {
		return []*ValidationError{errorf("semantic", "", "compile schema: %v", err)}
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return []*ValidationError{errorf("semantic", "", "unmarshal document: %v", err)}
	}

	if err := sch.Validate(doc); err != nil {
		ve, ok := err.(*sjsonschema.ValidationError)
		if !ok {
			return []*ValidationError{errorf("semantic", "", "%s", err.Error())}
		}
		var errs []*ValidationError
		for _, cause := range flattenValidationErrors(ve) {
			path := ""
			for i, seg := range cause.InstanceLocation {
				if i > 0 {
					path += "/"
				}
				path += seg
			}
			errs = append(errs, errorf("semantic", path, "%v", cause.ErrorKind))
		}
		return errs
	}
	return nil
}

// flattenValidationErrors recursively collects all leaf validation errors.
func flattenValidationErrors(ve *sjsonschema.ValidationError) []*sjsonschema.ValidationError {
	if len(ve.Causes) == 0 {
		return []*sjsonschema.ValidationError{ve}
	}
	var flat []*sjsonschema.ValidationError
	for _, cause := range ve.Causes {
		flat = append(flat, flattenValidationErrors(cause)...)
	}
	return flat
}

// ValidateDomain runs domain-level validation rules on a profile.
func ValidateDomain(p *Profile) []*ValidationError {
	var errs []*ValidationError

	if p.APIVersion != APIVersion {
		errs = append(errs, errorf("domain", "apiVersion", "unrecognized apiVersion %q, expected %q", p.APIVersion, APIVersion))
	}

	if _, err := p.ReportLevel(); err != nil {
		errs = append(errs, errorf("domain", "level", "%s", err.Error()))
	}
	if _, err := p.FailAt(); err != nil {
		errs = append(errs, errorf("domain", "fail_level", "%s", err.Error()))
	}

	// Unknown skip entries are suspicious but harmless: the run just won't
	// skip anything.
	known := make(map[string]bool)
	for _, l := range linters.All() {
		known[l.Name()] = true
	}
	for i, name := range p.Skip {
		if !known[name] {
			errs = append(errs, warnf("domain", fmt.Sprintf("skip[%d]", i), "unknown linter %q", name))
		}
	}

	if p.Select != "" {
		if _, err := lint.CompileFilter(p.Select); err != nil {
			errs = append(errs, errorf("domain", "select", "%s", err.Error()))
		}
	}

	return errs
}
