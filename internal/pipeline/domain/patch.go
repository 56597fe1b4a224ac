package domain

import "slices"

// Namespace groups fields that are persisted and cached together.
type Namespace string

const (
	NamespaceStage       Namespace = "stage"
	NamespacePreferences Namespace = "preferences"
)

// Namespaces lists every pending-write namespace.
func Namespaces() []Namespace {
	return []Namespace{NamespaceStage, NamespacePreferences}
}

// Field names a mutable lead attribute. Values match the backend wire names.
type Field string

const (
	FieldStage            Field = "pipelineStage"
	FieldDesiredLocations Field = "desiredLocations"
	FieldMaxBudget        Field = "maxBudget"
	FieldTypology         Field = "typology"
	FieldNotes            Field = "notes"
)

// Namespace returns the namespace the field is persisted under.
func (f Field) Namespace() Namespace {
	if f == FieldStage {
		return NamespaceStage
	}
	return NamespacePreferences
}

// Patch carries the changed fields of a lead. A nil field is unchanged; a
// non-nil empty value clears the field.
type Patch struct {
	Stage            *Stage
	DesiredLocations []string
	MaxBudget        *string
	Typology         *string
	Notes            *string
}

// StagePatch builds a patch carrying only a stage change.
func StagePatch(stage Stage) Patch {
	return Patch{Stage: &stage}
}

// PreferencesPatch builds a patch from the non-nil preference fields.
func PreferencesPatch(p Preferences) Patch {
	c := p.Clone()
	return Patch{
		DesiredLocations: c.DesiredLocations,
		MaxBudget:        c.MaxBudget,
		Typology:         c.Typology,
		Notes:            c.Notes,
	}
}

// Preferences returns the preference part of the patch.
func (p Patch) Preferences() Preferences {
	return Preferences{
		DesiredLocations: cloneList(p.DesiredLocations),
		MaxBudget:        cloneString(p.MaxBudget),
		Typology:         cloneString(p.Typology),
		Notes:            cloneString(p.Notes),
	}
}

// Fields lists the fields set on the patch.
func (p Patch) Fields() []Field {
	var fields []Field
	if p.Stage != nil {
		fields = append(fields, FieldStage)
	}
	if p.DesiredLocations != nil {
		fields = append(fields, FieldDesiredLocations)
	}
	if p.MaxBudget != nil {
		fields = append(fields, FieldMaxBudget)
	}
	if p.Typology != nil {
		fields = append(fields, FieldTypology)
	}
	if p.Notes != nil {
		fields = append(fields, FieldNotes)
	}
	return fields
}

// IsEmpty reports whether no field is set.
func (p Patch) IsEmpty() bool {
	return len(p.Fields()) == 0
}

// Namespaces lists the namespaces touched by the patch.
func (p Patch) Namespaces() []Namespace {
	var out []Namespace
	for _, ns := range Namespaces() {
		if !p.Only(ns).IsEmpty() {
			out = append(out, ns)
		}
	}
	return out
}

// Only keeps the fields that belong to ns.
func (p Patch) Only(ns Namespace) Patch {
	if ns == NamespaceStage {
		return Patch{Stage: cloneStage(p.Stage)}
	}
	out := p.Clone()
	out.Stage = nil
	return out
}

// Merge overlays newer on top of p. Fields set on newer win.
func (p Patch) Merge(newer Patch) Patch {
	out := p.Clone()
	if newer.Stage != nil {
		out.Stage = cloneStage(newer.Stage)
	}
	if newer.DesiredLocations != nil {
		out.DesiredLocations = cloneList(newer.DesiredLocations)
	}
	if newer.MaxBudget != nil {
		out.MaxBudget = cloneString(newer.MaxBudget)
	}
	if newer.Typology != nil {
		out.Typology = cloneString(newer.Typology)
	}
	if newer.Notes != nil {
		out.Notes = cloneString(newer.Notes)
	}
	return out
}

// Without drops every field of p whose value equals the same field in sent.
// Fields changed after sent was captured survive.
func (p Patch) Without(sent Patch) Patch {
	out := p.Clone()
	if out.Stage != nil && sent.Stage != nil && *out.Stage == *sent.Stage {
		out.Stage = nil
	}
	if out.DesiredLocations != nil && sent.DesiredLocations != nil && slices.Equal(out.DesiredLocations, sent.DesiredLocations) {
		out.DesiredLocations = nil
	}
	if equalString(out.MaxBudget, sent.MaxBudget) {
		out.MaxBudget = nil
	}
	if equalString(out.Typology, sent.Typology) {
		out.Typology = nil
	}
	if equalString(out.Notes, sent.Notes) {
		out.Notes = nil
	}
	return out
}

// Drop removes the fields set on fields regardless of value.
func (p Patch) Drop(fields Patch) Patch {
	out := p.Clone()
	if fields.Stage != nil {
		out.Stage = nil
	}
	if fields.DesiredLocations != nil {
		out.DesiredLocations = nil
	}
	if fields.MaxBudget != nil {
		out.MaxBudget = nil
	}
	if fields.Typology != nil {
		out.Typology = nil
	}
	if fields.Notes != nil {
		out.Notes = nil
	}
	return out
}

// Apply returns a copy of lead with the patch applied.
func (p Patch) Apply(lead Lead) Lead {
	out := lead.Clone()
	if p.Stage != nil {
		out.Stage = *p.Stage
	}
	if p.DesiredLocations != nil {
		out.Preferences.DesiredLocations = cloneList(p.DesiredLocations)
	}
	if p.MaxBudget != nil {
		out.Preferences.MaxBudget = cloneString(p.MaxBudget)
	}
	if p.Typology != nil {
		out.Preferences.Typology = cloneString(p.Typology)
	}
	if p.Notes != nil {
		out.Preferences.Notes = cloneString(p.Notes)
	}
	return out
}

// Clone returns a deep copy.
func (p Patch) Clone() Patch {
	return Patch{
		Stage:            cloneStage(p.Stage),
		DesiredLocations: cloneList(p.DesiredLocations),
		MaxBudget:        cloneString(p.MaxBudget),
		Typology:         cloneString(p.Typology),
		Notes:            cloneString(p.Notes),
	}
}

func cloneStage(value *Stage) *Stage {
	if value == nil {
		return nil
	}
	v := *value
	return &v
}

func equalString(a, b *string) bool {
	return a != nil && b != nil && *a == *b
}
