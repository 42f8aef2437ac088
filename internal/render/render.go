package render

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/gabriel/release-panels/internal/mergestore"
	"github.com/gabriel/release-panels/internal/models"
)

var templates = template.Must(template.New("panels").Funcs(template.FuncMap{
	"magnet": func(link string) template.URL {
		if strings.HasPrefix(strings.ToLower(link), "magnet:") {
			return template.URL(link)
		}
		return ""
	},
	"isFolder": func(node models.FileNode) bool {
		_, ok := node.(models.Folder)
		return ok
	},
}).Parse(panelTemplates))

type metaCard struct {
	Title    string
	Segments []Segment
}

type releaseCard struct {
	Group    string
	Flags    string
	Tracker  string
	FileSize string
	Action   Action
	Episodes []models.CuratedFile
}

type curatedView struct {
	Message  string
	Meta     []metaCard
	Releases []releaseCard
}

// CuratedPanel renders curated release data as the curated panel body.
func CuratedPanel(data *models.CuratedReleaseData) (*html.Node, error) {
	if data == nil {
		return CuratedMessage("No curated releases")
	}

	view := curatedView{}
	for _, meta := range []struct{ title, text string }{
		{"Comparison", data.Comparison},
		{"Notes", data.Notes},
		{"Theoretical Best", data.TheoreticalBest},
	} {
		if strings.TrimSpace(meta.text) == "" {
			continue
		}
		view.Meta = append(view.Meta, metaCard{Title: meta.title, Segments: Linkify(meta.text)})
	}

	for _, release := range data.Releases {
		group := release.ReleaseGroup
		if group == "" {
			group = "Unknown Group"
		}
		view.Releases = append(view.Releases, releaseCard{
			Group:    group,
			Flags:    strings.Join(releaseFlags(release), " • "),
			Tracker:  release.Tracker,
			FileSize: release.FileSize,
			Action:   ReleaseAction(release.URL),
			Episodes: release.EpisodeList,
		})
	}

	return fragment("curated", view)
}

// CuratedMessage renders the curated panel with a single status line instead of releases.
func CuratedMessage(message string) (*html.Node, error) {
	return fragment("curated", curatedView{Message: message})
}

func releaseFlags(release models.CuratedRelease) []string {
	flags := make([]string, 0, 3+len(release.Tags))
	if release.DualAudio {
		flags = append(flags, "Dual Audio")
	}
	if release.IsBest {
		flags = append(flags, "Best Release")
	}
	if release.PrivateTracker {
		flags = append(flags, "Private Tracker")
	}
	return append(flags, release.Tags...)
}

type SortOption struct {
	Value string
	Label string
}

var sortOptions = []SortOption{
	{Value: string(mergestore.BySeeders), Label: "Seeders"},
	{Value: string(mergestore.ByDate), Label: "Date"},
	{Value: string(mergestore.BySize), Label: "Size"},
	{Value: string(mergestore.ByCompleted), Label: "Completed"},
}

// IndexView is everything the index panel shows.
type IndexView struct {
	Mode            string
	Episodes        []models.EpisodeRef
	SelectedEpisode string
	Running         bool
	Status          string
	Criteria        string
	FilterText      string
	FilterMode      string
	RSSSubmitter    string
	RSSQuery        string
	Items           []mergestore.Item
	SortOptions     []SortOption
}

func IndexPanel(view IndexView) (*html.Node, error) {
	view.SortOptions = sortOptions
	if view.Criteria == "" {
		view.Criteria = string(mergestore.BySeeders)
	}
	if view.FilterMode == "" {
		view.FilterMode = string(mergestore.Include)
	}
	return fragment("index", view)
}

// Results renders only the status line and result list of the index panel.
func Results(status string, items []mergestore.Item) (*html.Node, error) {
	return fragment("results", IndexView{Status: status, Items: items})
}

// CardDetails renders the expanded detail block of one result, including its file tree.
func CardDetails(result models.IndexResult) (*html.Node, error) {
	return fragment("details", result)
}

// HTML serializes a node.
func HTML(node *html.Node) (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, node); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func fragment(name string, data any) (*html.Node, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, fmt.Errorf("execute %s template: %w", name, err)
	}

	context := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(&buf, context)
	if err != nil {
		return nil, fmt.Errorf("parse %s fragment: %w", name, err)
	}
	for _, node := range nodes {
		if node.Type == html.ElementNode {
			return node, nil
		}
	}
	return nil, fmt.Errorf("%s template produced no element", name)
}
