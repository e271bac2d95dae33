package ontology

import "strings"

// Thing is the universal root class. Subclass relations to it are implicit
// and never drawn.
const Thing = "owl:Thing"

// PropertyType is the OWL property subtype.
type PropertyType string

// Property subtypes.
const (
	ObjectProperty     PropertyType = "ObjectProperty"
	DataProperty       PropertyType = "DataProperty"
	AnnotationProperty PropertyType = "AnnotationProperty"
)

// Class is an OWL class record.
type Class struct {
	ID           string   `json:"id" yaml:"id" bson:"id"`
	Name         string   `json:"name" yaml:"name" bson:"name"`
	Label        string   `json:"label,omitempty" yaml:"label,omitempty" bson:"label,omitempty"`
	SuperClasses []string `json:"superClasses,omitempty" yaml:"superClasses,omitempty" bson:"superClasses,omitempty"`
}

// Property is an OWL property record.
type Property struct {
	ID     string       `json:"id" yaml:"id" bson:"id"`
	Name   string       `json:"name" yaml:"name" bson:"name"`
	Label  string       `json:"label,omitempty" yaml:"label,omitempty" bson:"label,omitempty"`
	Type   PropertyType `json:"type" yaml:"type" bson:"type"`
	Domain []string     `json:"domain,omitempty" yaml:"domain,omitempty" bson:"domain,omitempty"`
}

// Individual is an OWL named individual.
type Individual struct {
	ID    string   `json:"id" yaml:"id" bson:"id"`
	Name  string   `json:"name" yaml:"name" bson:"name"`
	Label string   `json:"label,omitempty" yaml:"label,omitempty" bson:"label,omitempty"`
	Types []string `json:"types,omitempty" yaml:"types,omitempty" bson:"types,omitempty"`
}

// Snapshot is an immutable view of an ontology. Collection order is the
// store's insertion order and determines the initial placement of nodes.
type Snapshot struct {
	Name        string       `json:"name,omitempty" yaml:"name,omitempty" bson:"name,omitempty"`
	Classes     []Class      `json:"classes" yaml:"classes" bson:"classes"`
	Properties  []Property   `json:"properties" yaml:"properties" bson:"properties"`
	Individuals []Individual `json:"individuals" yaml:"individuals" bson:"individuals"`
}

// DisplayLabel returns the label if set, else the name, else the local name
// of the id.
func (c *Class) DisplayLabel() string { return displayLabel(c.Label, c.Name, c.ID) }

// DisplayLabel returns the label if set, else the name, else the local name
// of the id.
func (p *Property) DisplayLabel() string { return displayLabel(p.Label, p.Name, p.ID) }

// DisplayLabel returns the label if set, else the name, else the local name
// of the id.
func (i *Individual) DisplayLabel() string { return displayLabel(i.Label, i.Name, i.ID) }

func displayLabel(label, name, id string) string {
	if label != "" {
		return label
	}
	if name != "" {
		return name
	}
	return LocalName(id)
}

// LocalName returns the fragment of an IRI or CURIE after the last '#', '/'
// or ':'. "http://ex.org/pizza#Margherita" → "Margherita", "owl:Thing" → "Thing".
func LocalName(id string) string {
	if i := strings.LastIndexAny(id, "#/:"); i >= 0 && i < len(id)-1 {
		return id[i+1:]
	}
	return id
}

// Class returns the class with the given id.
func (s *Snapshot) Class(id string) (*Class, bool) {
	if s == nil {
		return nil, false
	}
	for i := range s.Classes {
		if s.Classes[i].ID == id {
			return &s.Classes[i], true
		}
	}
	return nil, false
}

// Stats summarizes a snapshot.
type Stats struct {
	Classes              int `json:"classes"`
	Properties           int `json:"properties"`
	ObjectProperties     int `json:"object_properties"`
	DataProperties       int `json:"data_properties"`
	AnnotationProperties int `json:"annotation_properties"`
	Individuals          int `json:"individuals"`
	SubclassAxioms       int `json:"subclass_axioms"`
}

// Stats counts the records of a snapshot. Subclass axioms to [Thing] are
// not counted.
func (s *Snapshot) Stats() Stats {
	var st Stats
	if s == nil {
		return st
	}
	st.Classes = len(s.Classes)
	st.Properties = len(s.Properties)
	st.Individuals = len(s.Individuals)
	for _, c := range s.Classes {
		for _, sup := range c.SuperClasses {
			if sup != Thing {
				st.SubclassAxioms++
			}
		}
	}
	for _, p := range s.Properties {
		switch p.Type {
		case ObjectProperty:
			st.ObjectProperties++
		case DataProperty:
			st.DataProperties++
		default:
			st.AnnotationProperties++
		}
	}
	return st
}

// Selector receives class selections made in the graph view.
type Selector interface {
	SelectClass(id string)
}

// SelectorFunc adapts a function to a [Selector].
type SelectorFunc func(id string)

// SelectClass calls f(id).
func (f SelectorFunc) SelectClass(id string) { f(id) }
