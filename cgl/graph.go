package cgl

import (
	"fmt"
	"strings"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"
)

//graphDescription renders the label of one tree node for figure output.
func (t *Tree) graphDescription(node *Node) string {
	var sb strings.Builder
	if node.IsLeaf() {
		sb.WriteString(fmt.Sprintln("class:", node.Output))
		sb.WriteString("[")
		for _, val := range node.Posterior {
			sb.WriteString(fmt.Sprintf(" %5.3f", val))
		}
		sb.WriteString(" ]")
		return sb.String()
	}

	attribute := t.Attributes[node.Feature]
	if attribute.Kind == Nominal {
		sb.WriteString(fmt.Sprintf("%s = %s\n", attribute.Name, attribute.ValueName(node.Value)))
	} else {
		sb.WriteString(fmt.Sprintf("%s <= %6.5f\n", attribute.Name, node.Value))
	}
	sb.WriteString(fmt.Sprintf("gain: %6.5f", node.Gain))
	return sb.String()
}

func (t *Tree) recurrentDraw(g *cgraph.Graph, node *Node, id string, parentNode *cgraph.Node) {
	currentNode, err := g.CreateNode(id)
	HandleError(err)
	currentNode.Set("label", t.graphDescription(node))

	if parentNode != nil {
		_, err = g.CreateEdge("", parentNode, currentNode)
		HandleError(err)
	}

	if node.IsLeaf() {
		currentNode.Set("shape", "box")
	} else {
		t.recurrentDraw(g, node.True, id+"t", currentNode)
		t.recurrentDraw(g, node.False, id+"f", currentNode)
	}
}

//DrawGraph builds the graphviz representation of the tree.
func (t *Tree) DrawGraph() (*graphviz.Graphviz, *cgraph.Graph) {
	graphViz := graphviz.New()
	graph, err := graphViz.Graph()
	HandleError(err)

	t.recurrentDraw(graph, t.TreeRoot, "n", nil)

	return graphViz, graph
}

//RenderTree draws the tree into an image file. Supported figure types are
//png, svg and jpg.
func (t *Tree) RenderTree(filename, figureType string) {
	graphvizType := map[string]graphviz.Format{
		"png": graphviz.PNG,
		"svg": graphviz.SVG,
		"jpg": graphviz.JPG,
	}[figureType]

	graphViz, graph := t.DrawGraph()
	HandleError(graphViz.RenderFilename(graph, graphvizType, filename))
}
