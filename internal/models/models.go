package models

import (
	"encoding/json"
	"time"
)

type EpisodeRef struct {
	EpisodeNumber     string `json:"episode"`
	ExternalEpisodeID string `json:"externalEpisodeId"`
	Title             string `json:"title"`
}

type ExternalMapping struct {
	TitleID    int64        `json:"titleId"`
	ExternalID string       `json:"externalId"`
	Source     string       `json:"source,omitempty"`
	Episodes   []EpisodeRef `json:"episodes"`
}

// FileNode is either a File or a Folder.
type FileNode interface {
	NodeName() string
	isFileNode()
}

type File struct {
	Name string `json:"name"`
	Size string `json:"size"`
}

type Folder struct {
	Name     string     `json:"name"`
	Contents []FileNode `json:"contents"`
}

func (f File) NodeName() string   { return f.Name }
func (f Folder) NodeName() string { return f.Name }
func (File) isFileNode()          {}
func (Folder) isFileNode()        {}

func (f File) MarshalJSON() ([]byte, error) {
	type plain File
	return json.Marshal(struct {
		Type string `json:"type"`
		plain
	}{Type: "file", plain: plain(f)})
}

func (f Folder) MarshalJSON() ([]byte, error) {
	contents := f.Contents
	if contents == nil {
		contents = []FileNode{}
	}
	return json.Marshal(struct {
		Type     string     `json:"type"`
		Name     string     `json:"name"`
		Contents []FileNode `json:"contents"`
	}{Type: "folder", Name: f.Name, Contents: contents})
}

// CountFiles walks the tree and returns the number of File leaves.
func CountFiles(nodes []FileNode) int {
	total := 0
	for _, node := range nodes {
		switch n := node.(type) {
		case File:
			total++
		case Folder:
			total += CountFiles(n.Contents)
		}
	}
	return total
}

// IndexResult is one scraped index entry. It is never mutated after the scraper returns it.
type IndexResult struct {
	ReleaseName string     `json:"releaseName"`
	Magnet      string     `json:"magnet"`
	Category    string     `json:"category,omitempty"`
	Date        string     `json:"date,omitempty"`
	Submitter   string     `json:"submitter,omitempty"`
	Seeders     string     `json:"seeders,omitempty"`
	Leechers    string     `json:"leechers,omitempty"`
	FileSize    string     `json:"fileSize,omitempty"`
	Completed   string     `json:"completed,omitempty"`
	Files       []FileNode `json:"files"`
	URL         string     `json:"url,omitempty"`
}

type CuratedFile struct {
	Name string `json:"name"`
	Size string `json:"size"`
}

type CuratedRelease struct {
	Tracker        string        `json:"tracker"`
	ReleaseGroup   string        `json:"releaseGroup"`
	URL            string        `json:"url"`
	DualAudio      bool          `json:"dualAudio"`
	IsBest         bool          `json:"isBest"`
	PrivateTracker bool          `json:"privateTracker"`
	Tags           []string      `json:"tags"`
	FileSize       string        `json:"fileSize"`
	EpisodeList    []CuratedFile `json:"episodeList"`
}

type CuratedReleaseData struct {
	Comparison      string           `json:"comparison"`
	Notes           string           `json:"notes"`
	TheoreticalBest string           `json:"theoreticalBest"`
	Releases        []CuratedRelease `json:"releases"`
}

// MappingSlot is the single cached lookup. A nil Mapping records a miss.
type MappingSlot struct {
	TitleID   int64            `json:"titleId"`
	Mapping   *ExternalMapping `json:"mapping"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

type SearchPreferences struct {
	SortCriteria string    `json:"sortCriteria"`
	FilterMode   string    `json:"filterMode"`
	SearchMode   string    `json:"searchMode"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
