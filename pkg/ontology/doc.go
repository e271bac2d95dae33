// Package ontology defines the read-only snapshot consumed by the graph view.
//
// The ontology store, the format parsers (JSON-LD, Turtle, OWL/XML) and the
// reasoner live outside this repository. They hand the view a [Snapshot]: three
// ordered, id-keyed collections of classes, properties and individuals with
// their relation lists. The view never mutates a snapshot; it rebuilds its
// node/edge model whenever it receives a different snapshot pointer.
//
// # Snapshot Documents
//
// Snapshots can be loaded from JSON or YAML documents for the CLI and the
// server:
//
//	{
//	  "name": "Pizza",
//	  "classes": [
//	    {"id": "Food", "name": "Food", "superClasses": ["owl:Thing"]},
//	    {"id": "Pizza", "name": "Pizza", "superClasses": ["Food"]}
//	  ],
//	  "properties": [
//	    {"id": "hasTopping", "name": "hasTopping", "type": "ObjectProperty", "domain": ["Pizza"]}
//	  ],
//	  "individuals": [
//	    {"id": "margherita", "name": "margherita", "types": ["Pizza"]}
//	  ]
//	}
//
// Use [ReadFile] for files and [Read] for streams; [DetectFormat] sniffs the
// first non-blank byte.
//
// # Selection
//
// Clicking a class node notifies the store through a [Selector]. Other node
// kinds and deselection never notify.
package ontology
