package host

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

var titlePathPattern = regexp.MustCompile(`/anime/(\d+)`)

// Page mirrors the host document the panels live in. Every change bumps Version and
// notifies subscribers; subscribers run outside the page lock.
type Page struct {
	mu          sync.Mutex
	url         string
	doc         *html.Node
	version     uint64
	nextID      int
	subscribers map[int]func()
}

func NewPage() *Page {
	doc, _ := html.Parse(strings.NewReader(""))
	return &Page{doc: doc, subscribers: map[int]func(){}}
}

// Navigate swaps in a new document, as a router transition or full load would.
func (p *Page) Navigate(rawURL, body string) error {
	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return fmt.Errorf("parse host document: %w", err)
	}

	p.mu.Lock()
	p.url = strings.TrimSpace(rawURL)
	p.doc = doc
	p.version++
	p.mu.Unlock()

	p.notify()
	return nil
}

// Replace swaps every element matching selector for the parsed fragment, which is how a
// single-page router rebuilds a subtree. It returns the number of replaced elements.
func (p *Page) Replace(selector, fragment string) (int, error) {
	p.mu.Lock()
	sel := goquery.NewDocumentFromNode(p.doc).Find(selector)
	count := sel.Length()
	if count == 0 {
		p.mu.Unlock()
		return 0, nil
	}

	for _, target := range sel.Nodes {
		if target.Parent == nil {
			continue
		}
		context := &html.Node{Type: html.ElementNode, Data: target.Parent.Data, DataAtom: target.Parent.DataAtom}
		nodes, err := html.ParseFragment(strings.NewReader(fragment), context)
		if err != nil {
			p.mu.Unlock()
			return 0, fmt.Errorf("parse fragment: %w", err)
		}
		for _, node := range nodes {
			target.Parent.InsertBefore(node, target)
		}
		target.Parent.RemoveChild(target)
	}
	p.version++
	p.mu.Unlock()

	p.notify()
	return count, nil
}

// Do runs fn with exclusive access to the document. Changes made by fn do not notify
// subscribers, so panel placement does not retrigger itself.
func (p *Page) Do(fn func(doc *html.Node)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(p.doc)
}

func (p *Page) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url
}

func (p *Page) Version() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.version
}

// TitleID extracts the title identifier from the page URL; ok is false off title pages.
func (p *Page) TitleID() (int64, bool) {
	return ParseTitleID(p.URL())
}

func ParseTitleID(rawURL string) (int64, bool) {
	match := titlePathPattern.FindStringSubmatch(rawURL)
	if match == nil {
		return 0, false
	}
	id, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func (p *Page) Render() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var buf bytes.Buffer
	if err := html.Render(&buf, p.doc); err != nil {
		return "", fmt.Errorf("render host document: %w", err)
	}
	return buf.String(), nil
}

// OnMutation registers fn for change notifications and returns its unsubscribe func.
func (p *Page) OnMutation(fn func()) func() {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.subscribers[id] = fn
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.subscribers, id)
		p.mu.Unlock()
	}
}

func (p *Page) notify() {
	p.mu.Lock()
	fns := make([]func(), 0, len(p.subscribers))
	for _, fn := range p.subscribers {
		fns = append(fns, fn)
	}
	p.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
