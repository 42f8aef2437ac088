package scraper

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/gabriel/release-panels/internal/models"
)

// ErrNotAnEntry is returned when the page carries no magnet link, which is what the
// index serves for unknown fingerprints.
var ErrNotAnEntry = errors.New("page is not an index entry")

const titleSuffix = ":: Nyaa"

// Parse extracts one index entry from a fetched entry page. It performs no I/O.
func Parse(r io.Reader) (models.IndexResult, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return models.IndexResult{}, fmt.Errorf("parse entry html: %w", err)
	}
	return parseDocument(doc)
}

func ParseString(body string) (models.IndexResult, error) {
	return Parse(strings.NewReader(body))
}

func parseDocument(doc *goquery.Document) (models.IndexResult, error) {
	magnet, ok := doc.Find("div.panel-footer.clearfix a[href^='magnet']").First().Attr("href")
	if !ok || strings.TrimSpace(magnet) == "" {
		return models.IndexResult{}, ErrNotAnEntry
	}

	result := models.IndexResult{
		ReleaseName: strings.TrimSpace(strings.Replace(doc.Find("title").First().Text(), titleSuffix, "", 1)),
		Magnet:      strings.TrimSpace(magnet),
		Files:       []models.FileNode{},
	}

	cells := metadataCells(doc.Find("div.panel-body .row"))
	for i := 0; i < len(cells); i++ {
		value := ""
		if i+1 < len(cells) {
			value = cells[i+1]
		}
		switch cells[i] {
		case "Category:":
			result.Category = value
		case "Date:":
			result.Date = value
		case "Submitter:":
			result.Submitter = value
		case "Seeders:":
			result.Seeders = value
		case "Leechers:":
			result.Leechers = value
		case "File size:":
			result.FileSize = value
		case "Completed:":
			result.Completed = value
		}
	}

	fileList := doc.Find("div.torrent-file-list.panel-body").First()
	if fileList.Length() > 0 {
		result.Files = formatFiles(fileList.Find("ul").First())
	}

	return result, nil
}

// metadataCells flattens the label/value grid into an ordered list of non-empty cell texts.
func metadataCells(rows *goquery.Selection) []string {
	cells := make([]string, 0, rows.Length()*4)
	rows.Each(func(_ int, row *goquery.Selection) {
		children := row.Children()
		if children.Length() == 0 {
			for _, line := range strings.Split(row.Text(), "\n") {
				if trimmed := strings.TrimSpace(line); trimmed != "" {
					cells = append(cells, trimmed)
				}
			}
			return
		}
		children.Each(func(_ int, cell *goquery.Selection) {
			if text := collapseWhitespace(cell.Text()); text != "" {
				cells = append(cells, text)
			}
		})
	})
	return cells
}

func formatFiles(list *goquery.Selection) []models.FileNode {
	nodes := make([]models.FileNode, 0)
	if list.Length() == 0 {
		return nodes
	}

	list.ChildrenFiltered("li").Each(func(_ int, item *goquery.Selection) {
		folderLink := item.ChildrenFiltered("a.folder").First()
		if folderLink.Length() == 0 {
			folderLink = item.Find("a.folder").First()
		}
		if folderLink.Length() > 0 {
			nodes = append(nodes, models.Folder{
				Name:     collapseWhitespace(folderLink.Text()),
				Contents: formatFiles(item.ChildrenFiltered("ul").First()),
			})
			return
		}

		icon := item.Find("i.fa-file").First()
		if icon.Length() == 0 {
			return
		}
		nodes = append(nodes, models.File{
			Name: textAfter(icon),
			Size: strings.TrimSpace(item.Find(".file-size").First().Text()),
		})
	})

	return nodes
}

func textAfter(selection *goquery.Selection) string {
	if len(selection.Nodes) == 0 {
		return ""
	}
	next := selection.Nodes[0].NextSibling
	if next == nil || next.Type != html.TextNode {
		return ""
	}
	return strings.TrimSpace(next.Data)
}

func collapseWhitespace(value string) string {
	return strings.Join(strings.Fields(value), " ")
}
