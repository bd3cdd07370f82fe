package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"

	"jan-server/services/claims-api/internal/domain/llm"
)

var (
	// ErrUnknownTool is returned when the model names a tool that is not registered.
	ErrUnknownTool = errors.New("unknown tool")
	// ErrNotServerExecuted is returned when Resolve is asked to run a gated tool.
	ErrNotServerExecuted = errors.New("tool is not server-executed")
)

// InputError reports a model-proposed input that failed decoding or schema validation.
type InputError struct {
	Tool   string
	Reason string
	Err    error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid input for %s: %s", e.Tool, e.Reason)
}

func (e *InputError) Unwrap() error {
	return e.Err
}

// Resolver executes a server tool against a validated input.
type Resolver func(ctx context.Context, input Input) (json.RawMessage, error)

// Definition is the immutable description of one tool.
type Definition struct {
	Name        Name
	Description string
	Mode        Mode
	Schema      map[string]any
	// Resolver is only set for ModeServer tools.
	Resolver Resolver
}

// Registry holds the callable tools in declaration order.
type Registry struct {
	definitions []Definition
	byName      map[Name]int
	validate    *validator.Validate
}

// NewRegistry declares the claims tools. lookup backs the lookupClaim resolver.
func NewRegistry(lookup *LookupResolver) *Registry {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	r := &Registry{
		byName:   make(map[Name]int),
		validate: validate,
	}

	r.register(Definition{
		Name:        NameLookupClaim,
		Description: "Retrieve full details of a specific claim by its ID. Always call this before analyzing a claim.",
		Mode:        ModeServer,
		Schema:      reflectSchema(&LookupClaimInput{}),
		Resolver:    lookup.Resolve,
	})
	r.register(Definition{
		Name:        NameSuggestAction,
		Description: "Analyze a claim and suggest a specific resolution action. This renders a structured card with Approve/Reject buttons that the human must interact with. Use this whenever you want to propose a next step.",
		Mode:        ModeGated,
		Schema:      reflectSchema(&SuggestActionInput{}),
	})
	r.register(Definition{
		Name:        NameDraftAppeal,
		Description: "Generate a professional appeal letter or correspondence draft for a claim. Renders an editable card so the human can review and modify before using. Use this when an appeal, resubmission cover letter, or payer correspondence is needed.",
		Mode:        ModeGated,
		Schema:      reflectSchema(&DraftAppealInput{}),
	})
	r.register(Definition{
		Name:        NameUpdateClaimStatus,
		Description: "Record a status update for a claim after the human has explicitly approved the action. This renders a confirmation card; the actual update only happens when the human clicks Confirm. Only call this after the human has agreed to take an action.",
		Mode:        ModeGated,
		Schema:      reflectSchema(&UpdateClaimStatusInput{}),
	})

	return r
}

func (r *Registry) register(def Definition) {
	if _, exists := r.byName[def.Name]; exists {
		panic(fmt.Sprintf("tool %s registered twice", def.Name))
	}
	r.byName[def.Name] = len(r.definitions)
	r.definitions = append(r.definitions, def)
}

// Definitions returns every tool in declaration order.
func (r *Registry) Definitions() []Definition {
	return append([]Definition(nil), r.definitions...)
}

// Get looks up a tool definition by name.
func (r *Registry) Get(name string) (Definition, bool) {
	idx, ok := r.byName[Name(name)]
	if !ok {
		return Definition{}, false
	}
	return r.definitions[idx], true
}

// ToolDefinitions renders the registry in the OpenAI tools format.
func (r *Registry) ToolDefinitions() []llm.ToolDefinition {
	defs := make([]llm.ToolDefinition, 0, len(r.definitions))
	for _, def := range r.definitions {
		defs = append(defs, llm.ToolDefinition{
			Type: "function",
			Function: llm.ToolFunctionSchema{
				Name:        string(def.Name),
				Description: def.Description,
				Parameters:  def.Schema,
			},
		})
	}
	return defs
}

// Decode parses and validates a raw payload into the tool's typed input.
// Type mismatches, missing fields and out-of-enum values all fail; nothing is coerced.
func (r *Registry) Decode(name string, raw json.RawMessage) (Input, error) {
	var input Input
	switch Name(name) {
	case NameLookupClaim:
		input = &LookupClaimInput{}
	case NameSuggestAction:
		input = &SuggestActionInput{}
	case NameDraftAppeal:
		input = &DraftAppealInput{}
	case NameUpdateClaimStatus:
		input = &UpdateClaimStatusInput{}
	default:
		return nil, &InputError{Tool: name, Reason: fmt.Sprintf("tool %q does not exist", name), Err: ErrUnknownTool}
	}

	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	if err := json.Unmarshal(raw, input); err != nil {
		return nil, &InputError{Tool: name, Reason: describeDecodeError(err), Err: err}
	}
	if err := r.validate.Struct(input); err != nil {
		return nil, &InputError{Tool: name, Reason: describeValidationError(err), Err: err}
	}
	return input, nil
}

// Resolve runs a server-executed tool.
func (r *Registry) Resolve(ctx context.Context, input Input) (json.RawMessage, error) {
	def, ok := r.Get(string(input.ToolName()))
	if !ok {
		return nil, ErrUnknownTool
	}
	if def.Mode != ModeServer || def.Resolver == nil {
		return nil, ErrNotServerExecuted
	}
	return def.Resolver(ctx, input)
}

func reflectSchema(v any) map[string]any {
	reflector := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
		ExpandedStruct:            true,
	}
	data, err := json.Marshal(reflector.Reflect(v))
	if err != nil {
		panic(fmt.Sprintf("marshal tool schema: %v", err))
	}
	var schema map[string]any
	if err := json.Unmarshal(data, &schema); err != nil {
		panic(fmt.Sprintf("unmarshal tool schema: %v", err))
	}
	delete(schema, "$schema")
	delete(schema, "$id")
	return schema
}

func describeDecodeError(err error) string {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return fmt.Sprintf("field %q must be %s, got %s", typeErr.Field, typeErr.Type.String(), typeErr.Value)
	}
	return "arguments are not a valid JSON object"
}

func describeValidationError(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	reasons := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		switch fe.Tag() {
		case "required":
			reasons = append(reasons, fmt.Sprintf("%s is required", field))
		case "oneof":
			reasons = append(reasons, fmt.Sprintf("%s must be one of [%s], got %q", field, strings.ReplaceAll(fe.Param(), " ", ", "), fmt.Sprint(fe.Value())))
		default:
			reasons = append(reasons, fmt.Sprintf("%s failed %s", field, fe.Tag()))
		}
	}
	return strings.Join(reasons, "; ")
}
