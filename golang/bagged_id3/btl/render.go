package btl

import (
	"fmt"
	"path"
	"strconv"

	"github.com/awalterschulze/gographviz"
	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"
	"github.com/pkg/errors"
)

//GraphvizFormats maps figure types accepted by the renderers to graphviz formats.
var GraphvizFormats = map[string]graphviz.Format{
	"png": graphviz.PNG,
	"svg": graphviz.SVG,
	"jpg": graphviz.JPG,
}

func recurrentDraw(g *cgraph.Graph, node *TreeNode, counter *int, parentNode *cgraph.Node, branch string) error {
	currentNode, err := g.CreateNode(fmt.Sprint(*counter))
	if err != nil {
		return err
	}
	*counter++

	if parentNode != nil {
		edge, err := g.CreateEdge("", parentNode, currentNode)
		if err != nil {
			return err
		}
		edge.SetLabel(branch)
	}

	currentNode.Set("label", node.GraphDescription())
	if node.IsLeaf() {
		currentNode.Set("shape", "box")
		return nil
	}
	if err := recurrentDraw(g, node.Positive, counter, currentNode, "yes"); err != nil {
		return err
	}
	return recurrentDraw(g, node.Negative, counter, currentNode, "no")
}

//DrawGraph builds a graphviz graph of the tree. The caller closes both returned objects.
func (tree *ID3Tree) DrawGraph() (*graphviz.Graphviz, *cgraph.Graph, error) {
	if tree.Root == nil {
		return nil, nil, ErrNotFitted
	}
	graphViz := graphviz.New()
	graph, err := graphViz.Graph()
	if err != nil {
		return nil, nil, err
	}

	counter := 0
	if err := recurrentDraw(graph, tree.Root, &counter, nil, ""); err != nil {
		return nil, nil, err
	}

	return graphViz, graph, nil
}

//RenderFile renders the tree into a picture file. figureType is one of png, svg or jpg.
func (tree *ID3Tree) RenderFile(figureType, filename string) (err error) {
	format, ok := GraphvizFormats[figureType]
	if !ok {
		return errors.Errorf("unknown figure type %q", figureType)
	}
	graphViz, graph, err := tree.DrawGraph()
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := graph.Close(); err == nil {
			err = closeErr
		}
		if closeErr := graphViz.Close(); err == nil {
			err = closeErr
		}
	}()
	return graphViz.RenderFilename(graph, format, filename)
}

//RenderTrees renders every tree into picturesDirectory as <dumpPrefix>_<index>.<figureType>.
func RenderTrees(trees []*ID3Tree, dumpPrefix, figureType, picturesDirectory string) error {
	for graphInd, currentTree := range trees {
		filename := fmt.Sprintf("%s_%05d.%s", dumpPrefix, graphInd, figureType)
		if err := currentTree.RenderFile(figureType, path.Join(picturesDirectory, filename)); err != nil {
			return errors.Wrapf(err, "render tree %d", graphInd)
		}
	}
	return nil
}

//DotString returns the tree in the DOT language.
func (tree *ID3Tree) DotString() (string, error) {
	if tree.Root == nil {
		return "", ErrNotFitted
	}
	const graphName = "tree"
	g := gographviz.NewGraph()
	if err := g.SetName(graphName); err != nil {
		return "", err
	}
	if err := g.SetDir(true); err != nil {
		return "", err
	}

	counter := 0
	var walk func(node *TreeNode) (string, error)
	walk = func(node *TreeNode) (string, error) {
		name := fmt.Sprintf("n%d", counter)
		counter++
		attrs := map[string]string{"label": strconv.Quote(node.GraphDescription())}
		if node.IsLeaf() {
			attrs["shape"] = "box"
		}
		if err := g.AddNode(graphName, name, attrs); err != nil {
			return "", err
		}
		if node.IsLeaf() {
			return name, nil
		}
		for _, child := range []struct {
			node   *TreeNode
			branch string
		}{{node.Positive, "yes"}, {node.Negative, "no"}} {
			childName, err := walk(child.node)
			if err != nil {
				return "", err
			}
			if err := g.AddEdge(name, childName, true, map[string]string{"label": child.branch}); err != nil {
				return "", err
			}
		}
		return name, nil
	}
	if _, err := walk(tree.Root); err != nil {
		return "", err
	}
	return g.String(), nil
}
