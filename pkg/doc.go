// Package pkg provides the core libraries for ontograph.
//
// # Overview
//
// Ontograph turns an ontology snapshot (classes, properties, individuals and
// their relations) into a force-directed node-link graph that can be explored
// interactively or exported. The pkg directory is organized into these areas:
//
//  1. [ontology] - Snapshot types and JSON/YAML readers
//  2. [graph] - The node/edge model built from a snapshot, and its layout
//  3. [layout/force] - The bounded force simulation
//  4. [view], [input] - Viewport transform and pointer/zoom handling
//  5. [render] - Scene drawing onto raster, terminal and DOT/SVG surfaces
//  6. [session] - One interactive view with frame scheduling
//  7. [pipeline] - Batch orchestration (load → settle → render) with [cache]
//  8. [source] - Snapshot sources (files with change watching, MongoDB)
//
// # Architecture
//
// The typical data flow through ontograph:
//
//	Snapshot file / MongoDB document
//	         ↓
//	    [ontology] package (read and validate)
//	         ↓
//	    [graph] package (build nodes and edges, seed positions)
//	         ↓
//	    [layout/force] package (relax positions step by step)
//	         ↓
//	    [render] package (draw through the [view] transform)
//	         ↓
//	    Terminal / PNG / SVG / DOT / JSON output
//
// # Quick Start
//
// Settle a snapshot and export it as PNG:
//
//	import (
//	    "context"
//	    "github.com/matzehuels/ontograph/pkg/pipeline"
//	)
//
//	runner := pipeline.NewRunner(nil, nil, nil)
//	result, err := runner.Execute(context.Background(), pipeline.Options{
//	    Path:    "pizza.json",
//	    Formats: []string{"png"},
//	})
//	if err != nil {
//	    panic(err)
//	}
//	_ = result.Artifacts["png"]
package pkg
