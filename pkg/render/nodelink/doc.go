// Package nodelink exports a settled graph model as Graphviz DOT and SVG.
//
// # Overview
//
// The force simulator already decides where every node goes, so the DOT
// output pins each node with pos="x,y!" and is rendered with the neato
// engine, which keeps pinned nodes in place: Graphviz only draws.
// Colors, dash styles and widths follow the same policy as the raster
// renderer.
//
// # Usage
//
//	dot := nodelink.ToDOT(m, nodelink.Options{})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG
// rendering; no Graphviz installation is required.
package nodelink
