package graph_test

import (
	"fmt"

	"github.com/matzehuels/ontograph/pkg/graph"
	"github.com/matzehuels/ontograph/pkg/ontology"
)

func ExampleBuild() {
	s := &ontology.Snapshot{
		Classes: []ontology.Class{
			{ID: "Animal", Name: "Animal", SuperClasses: []string{ontology.Thing}},
			{ID: "Dog", Name: "Dog", SuperClasses: []string{"Animal"}},
		},
		Properties: []ontology.Property{
			{ID: "hasOwner", Name: "hasOwner", Type: ontology.ObjectProperty, Domain: []string{"Dog"}},
		},
		Individuals: []ontology.Individual{
			{ID: "rex", Name: "rex", Types: []string{"Dog"}},
		},
	}

	m := graph.Build(s)
	for _, n := range m.Nodes {
		fmt.Printf("%-10s %-10s r=%v\n", n.Kind, n.ID, n.Radius)
	}
	for _, e := range m.Edges {
		fmt.Printf("%s -%s-> %s\n", e.From, e.Label, e.To)
	}
	// Output:
	// Class      Animal     r=35
	// Class      Dog        r=35
	// Property   hasOwner   r=28
	// Individual rex        r=25
	// Dog -subClassOf-> Animal
	// hasOwner -domain-> Dog
	// rex -instanceOf-> Dog
}
