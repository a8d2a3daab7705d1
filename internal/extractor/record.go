package extractor

// Record is the metadata extracted from one certificate. LogIndex and Hash are
// always set; every other field is nil unless its extension was present.
// Field order is the serialization order.
type Record struct {
	LogIndex                 uint64  `json:"LogIndex"`
	Hash                     string  `json:"Hash"`
	Subject                  *string `json:"Subject,omitempty"`
	OIDCIssuer               *string `json:"OIDCIssuer,omitempty"`
	GitHubWorkflowTrigger    *string `json:"GitHubWorkflowTrigger,omitempty"`
	GitHubWorkflowSHA        *string `json:"GitHubWorkflowSHA,omitempty"`
	GitHubWorkflowName       *string `json:"GitHubWorkflowName,omitempty"`
	GitHubWorkflowRepository *string `json:"GitHubWorkflowRepository,omitempty"`
	GitHubWorkflowRef        *string `json:"GitHubWorkflowRef,omitempty"`
}

// FieldNames lists every record key in serialization order.
var FieldNames = []string{
	"LogIndex",
	"Hash",
	"Subject",
	"OIDCIssuer",
	"GitHubWorkflowTrigger",
	"GitHubWorkflowSHA",
	"GitHubWorkflowName",
	"GitHubWorkflowRepository",
	"GitHubWorkflowRef",
}

// Field is one key of a Record. Present is false for unset optional fields.
type Field struct {
	Name    string
	Value   interface{}
	Present bool
}

// Fields returns the record's keys in serialization order.
func (r *Record) Fields() []Field {
	opt := func(name string, v *string) Field {
		if v == nil {
			return Field{Name: name}
		}
		return Field{Name: name, Value: *v, Present: true}
	}
	return []Field{
		{Name: "LogIndex", Value: r.LogIndex, Present: true},
		{Name: "Hash", Value: r.Hash, Present: true},
		opt("Subject", r.Subject),
		opt("OIDCIssuer", r.OIDCIssuer),
		opt("GitHubWorkflowTrigger", r.GitHubWorkflowTrigger),
		opt("GitHubWorkflowSHA", r.GitHubWorkflowSHA),
		opt("GitHubWorkflowName", r.GitHubWorkflowName),
		opt("GitHubWorkflowRepository", r.GitHubWorkflowRepository),
		opt("GitHubWorkflowRef", r.GitHubWorkflowRef),
	}
}

// Map returns the present fields keyed by name.
func (r *Record) Map() map[string]interface{} {
	out := map[string]interface{}{}
	for _, f := range r.Fields() {
		if f.Present {
			out[f.Name] = f.Value
		}
	}
	return out
}

// field returns the slot for an optional field name, or nil.
func (r *Record) field(name string) **string {
	switch name {
	case "Subject":
		return &r.Subject
	case "OIDCIssuer":
		return &r.OIDCIssuer
	case "GitHubWorkflowTrigger":
		return &r.GitHubWorkflowTrigger
	case "GitHubWorkflowSHA":
		return &r.GitHubWorkflowSHA
	case "GitHubWorkflowName":
		return &r.GitHubWorkflowName
	case "GitHubWorkflowRepository":
		return &r.GitHubWorkflowRepository
	case "GitHubWorkflowRef":
		return &r.GitHubWorkflowRef
	}
	return nil
}
