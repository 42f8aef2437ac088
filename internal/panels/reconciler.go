package panels

import (
	"fmt"
	"strconv"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	AttrKind     = "data-panel-kind"
	AttrOwner    = "data-owner-id"
	AttrAnchored = "data-anchored"
)

type Kind string

const (
	KindCurated Kind = "curated"
	KindIndex   Kind = "index"
)

type Placement string

const (
	Created   Placement = "created"
	Moved     Placement = "moved"
	Unchanged Placement = "unchanged"
	Stale     Placement = "stale"
	Absent    Placement = "absent"
	Detached  Placement = "detached"
)

type Options struct {
	// ContainerSelector finds the fallback container panels are appended to.
	ContainerSelector string
	// AnchorSelectors are tried in order inside the container; the first hit's
	// AnchorWrapper ancestor is the element panels follow.
	AnchorSelectors []string
	AnchorWrapper   string
	PanelClass      string
}

func DefaultOptions() Options {
	return Options{
		ContainerSelector: ".page-content .media.media-anime",
		AnchorSelectors:   []string{".reviews", ".threads"},
		AnchorWrapper:     ".grid-section-wrap",
		PanelClass:        "grid-section-wrap",
	}
}

// Reconciler keeps panels attached at their intended position in a host document that
// may rebuild parts of itself at any time. It never recreates an existing panel.
type Reconciler struct {
	opts Options
}

func New(opts Options) *Reconciler {
	defaults := DefaultOptions()
	if opts.ContainerSelector == "" {
		opts.ContainerSelector = defaults.ContainerSelector
	}
	if len(opts.AnchorSelectors) == 0 {
		opts.AnchorSelectors = defaults.AnchorSelectors
	}
	if opts.AnchorWrapper == "" {
		opts.AnchorWrapper = defaults.AnchorWrapper
	}
	if opts.PanelClass == "" {
		opts.PanelClass = defaults.PanelClass
	}
	return &Reconciler{opts: opts}
}

// Find returns the panel of the given kind, or nil.
func (r *Reconciler) Find(doc *html.Node, kind Kind) *html.Node {
	sel := goquery.NewDocumentFromNode(doc).Find(fmt.Sprintf(`[%s=%q]`, AttrKind, string(kind))).First()
	if sel.Length() == 0 {
		return nil
	}
	return sel.Nodes[0]
}

// Owner reports the title a panel was created for.
func Owner(panel *html.Node) (int64, bool) {
	raw, ok := attr(panel, AttrOwner)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// Place creates the panel with content when it does not exist yet, or repositions the
// existing one. An existing panel owned by another title is left alone.
func (r *Reconciler) Place(doc *html.Node, kind Kind, content *html.Node, titleID int64, after Kind) Placement {
	panel := r.Find(doc, kind)
	if panel == nil {
		if content == nil {
			return Absent
		}
		panel = newPanel(kind, titleID, r.opts.PanelClass)
		panel.AppendChild(content)
		if r.insert(doc, panel, after) == Detached {
			return Detached
		}
		return Created
	}

	if owner, _ := Owner(panel); owner != titleID {
		return Stale
	}
	return r.insert(doc, panel, after)
}

// Reconcile moves an existing panel back behind its predecessor if the host rebuilt the
// surrounding markup. It is idempotent and does nothing for absent or foreign panels.
func (r *Reconciler) Reconcile(doc *html.Node, kind Kind, currentTitleID int64, after Kind) Placement {
	panel := r.Find(doc, kind)
	if panel == nil {
		return Absent
	}
	if owner, _ := Owner(panel); owner != currentTitleID {
		return Stale
	}
	return r.insert(doc, panel, after)
}

// ReplaceContent swaps the first element matching selector inside the panel, provided
// the panel belongs to titleID.
func (r *Reconciler) ReplaceContent(doc *html.Node, kind Kind, titleID int64, selector string, replacement *html.Node) bool {
	panel := r.Find(doc, kind)
	if panel == nil || replacement == nil {
		return false
	}
	if owner, _ := Owner(panel); owner != titleID {
		return false
	}

	target := goquery.NewDocumentFromNode(panel).Find(selector).First()
	if target.Length() == 0 || target.Nodes[0].Parent == nil {
		return false
	}
	old := target.Nodes[0]
	old.Parent.InsertBefore(replacement, old)
	old.Parent.RemoveChild(old)
	return true
}

// RemoveStale removes panels owned by any title other than currentTitleID.
func (r *Reconciler) RemoveStale(doc *html.Node, currentTitleID int64) int {
	removed := 0
	for _, panel := range r.allPanels(doc) {
		if owner, _ := Owner(panel); owner == currentTitleID {
			continue
		}
		detach(panel)
		removed++
	}
	return removed
}

// RemoveAll removes every panel, used when the host leaves title pages.
func (r *Reconciler) RemoveAll(doc *html.Node) int {
	panels := r.allPanels(doc)
	for _, panel := range panels {
		detach(panel)
	}
	return len(panels)
}

func (r *Reconciler) allPanels(doc *html.Node) []*html.Node {
	sel := goquery.NewDocumentFromNode(doc).Find(fmt.Sprintf("[%s]", AttrKind))
	return append([]*html.Node(nil), sel.Nodes...)
}

func (r *Reconciler) container(doc *html.Node) *html.Node {
	sel := goquery.NewDocumentFromNode(doc).Find(r.opts.ContainerSelector).First()
	if sel.Length() == 0 {
		return nil
	}
	return sel.Nodes[0]
}

func (r *Reconciler) anchor(doc *html.Node) *html.Node {
	root := r.container(doc)
	if root == nil {
		return nil
	}
	container := goquery.NewDocumentFromNode(root)
	for _, selector := range r.opts.AnchorSelectors {
		hit := container.Find(selector).First()
		if hit.Length() == 0 {
			continue
		}
		wrapper := hit.Closest(r.opts.AnchorWrapper)
		if wrapper.Length() > 0 {
			return wrapper.Nodes[0]
		}
	}
	return nil
}

// insert applies the placement priority: after the named sibling panel, after the
// anchor, appended to the container.
func (r *Reconciler) insert(doc *html.Node, panel *html.Node, after Kind) Placement {
	if after != "" {
		if target := r.Find(doc, after); target != nil && target != panel && target.Parent != nil {
			setAttr(panel, AttrAnchored, "true")
			if previousElement(panel) == target {
				return Unchanged
			}
			insertAfter(target, panel)
			return Moved
		}
	}

	if anchor := r.anchor(doc); anchor != nil && anchor.Parent != nil {
		setAttr(panel, AttrAnchored, "true")
		if previousElement(panel) == anchor {
			return Unchanged
		}
		insertAfter(anchor, panel)
		return Moved
	}

	container := r.container(doc)
	if container == nil {
		if panel.Parent == nil {
			return Detached
		}
		return Unchanged
	}
	setAttr(panel, AttrAnchored, "false")
	if panel.Parent == container {
		return Unchanged
	}
	detach(panel)
	container.AppendChild(panel)
	return Moved
}

func newPanel(kind Kind, titleID int64, class string) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		Data:     "div",
		DataAtom: atom.Div,
		Attr: []html.Attribute{
			{Key: "id", Val: string(kind) + "-releases-panel"},
			{Key: "class", Val: class},
			{Key: AttrKind, Val: string(kind)},
			{Key: AttrOwner, Val: strconv.FormatInt(titleID, 10)},
			{Key: AttrAnchored, Val: "false"},
		},
	}
}

func insertAfter(target, node *html.Node) {
	detach(node)
	target.Parent.InsertBefore(node, target.NextSibling)
}

func detach(node *html.Node) {
	if node.Parent != nil {
		node.Parent.RemoveChild(node)
	}
}

func previousElement(node *html.Node) *html.Node {
	for prev := node.PrevSibling; prev != nil; prev = prev.PrevSibling {
		if prev.Type == html.ElementNode {
			return prev
		}
	}
	return nil
}

func attr(node *html.Node, key string) (string, bool) {
	for _, a := range node.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func setAttr(node *html.Node, key, value string) {
	for i := range node.Attr {
		if node.Attr[i].Key == key {
			node.Attr[i].Val = value
			return
		}
	}
	node.Attr = append(node.Attr, html.Attribute{Key: key, Val: value})
}
