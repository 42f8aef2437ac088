package render

const panelTemplates = `
{{define "curated"}}<div class="section curated-releases">
<h2 class="section-header">Curated Releases</h2>
<div class="content-wrap list">
{{- if .Message}}
<div class="panel-message">{{.Message}}</div>
{{- else}}
<div class="meta-cards">
{{- range .Meta}}
<div class="meta-card result-card">
<div class="card-header"><span class="card-title">{{.Title}}</span><span class="expand-btn">-</span></div>
<div class="card-details">{{range .Segments}}{{if .LineBreak}}<br>{{else if .URL}}<a href="{{.URL}}" target="_blank" rel="noopener noreferrer">{{.Text}}</a>{{else}}{{.Text}}{{end}}{{end}}</div>
</div>
{{- end}}
</div>
<div class="release-cards">
{{- range .Releases}}
<div class="release-card result-card">
<div class="card-header">
<span class="card-title" title="{{.Group}}">{{.Group}}</span>
{{- with .Flags}}<span class="release-flags">{{.}}</span>{{end}}
<div class="card-actions">
{{- with .Tracker}}<span class="release-tracker">{{.}}</span>{{end}}
<span class="release-size">{{.FileSize}}</span>
{{- if eq .Action.Kind "open"}}<a class="action-open-url" href="{{.Action.Target}}" target="_blank" rel="noopener noreferrer" title="Open URL">🔗</a>{{end}}
{{- if eq .Action.Kind "copy"}}<button class="action-copy-path" data-copy="{{.Action.Target}}" title="Copy Path">🔒</button>{{end}}
<span class="expand-btn">+</span>
</div>
</div>
<div class="card-details" style="display: none">
{{- with .Episodes}}
<div class="episodes-label">Episodes:</div>
<ul class="episode-list">{{range .}}<li><span>📄 {{.Name}}</span><span class="file-size">{{.Size}}</span></li>{{end}}</ul>
{{- end}}
</div>
</div>
{{- end}}
</div>
{{- end}}
</div>
</div>{{end}}

{{define "index"}}<div class="section index-releases">
<h2 class="section-header">Index Releases</h2>
<div class="content-wrap">
<div class="index-panel-row">
<div class="index-mode-group">
<label><input type="radio" name="index-mode" value="full"{{if ne .Mode "episode"}} checked{{end}}> Full release</label>
<label><input type="radio" name="index-mode" value="episode"{{if eq .Mode "episode"}} checked{{end}}> Episode</label>
</div>
<div class="index-rss-group">
<input class="rss-submitter" type="text" placeholder="Submitter" value="{{.RSSSubmitter}}">
<input class="rss-query" type="text" placeholder="Query" value="{{.RSSQuery}}">
<button class="action-rss button">Setup RSS</button>
</div>
</div>
<div class="index-panel-row">
<button class="action-search button">{{if .Running}}Stop Search{{else}}Start Search{{end}}</button>
{{- if eq .Mode "episode"}}
<select class="index-episode-select">
<option value=""{{if not .SelectedEpisode}} selected{{end}} disabled>Select Episode...</option>
{{- $selected := .SelectedEpisode}}
{{- range .Episodes}}
<option value="{{.EpisodeNumber}}"{{if eq .EpisodeNumber $selected}} selected{{end}}>{{.EpisodeNumber}}{{with .Title}} - {{.}}{{end}}</option>
{{- end}}
</select>
{{- end}}
<div class="index-sort-group">
<span>Sort:</span>
{{- $criteria := .Criteria}}
{{- range .SortOptions}}
<button class="sort-button button{{if eq .Value $criteria}} active{{end}}" data-sort="{{.Value}}">{{.Label}}</button>
{{- end}}
</div>
<div class="index-filter-group">
<input class="index-filter" type="text" placeholder="Filter releases" value="{{.FilterText}}">
<button class="filter-mode button" data-mode="{{.FilterMode}}">{{if eq .FilterMode "exclude"}}Exclude{{else}}Include{{end}}</button>
</div>
</div>
{{template "results" .}}
</div>
</div>{{end}}

{{define "results"}}<div class="index-results">
{{- with .Status}}
<div class="index-search-status">{{.}}</div>
{{- end}}
<div class="index-results-list">
{{- range .Items}}
<div class="index-result-card" data-result-index="{{.Index}}"{{if not .Visible}} style="display: none"{{end}}>
<div class="card-header">
<span class="card-title" title="{{.Result.ReleaseName}}">{{.Result.ReleaseName}}</span>
<div class="card-actions">
<span class="seeders-count">{{.Seeders}} Seeders</span>
<a class="action-open-magnet" href="{{magnet .Result.Magnet}}" title="Open Magnet">🧲</a>
<button class="action-copy-magnet" title="Copy Magnet">📋</button>
{{- with .Result.URL}}<a class="action-open-url" href="{{.}}" target="_blank" rel="noopener noreferrer" title="Open URL">🔗</a>{{end}}
<span class="expand-btn">+</span>
</div>
</div>
<div class="card-details" data-hydrated="false" style="display: none"></div>
</div>
{{- end}}
</div>
</div>{{end}}

{{define "details"}}<div class="card-details" data-hydrated="true">
<div class="details-title">{{.ReleaseName}}</div>
<ul class="details-list">
<li><span>Category:</span> <span>{{or .Category "Unknown"}}</span></li>
<li><span>Date:</span> <span>{{or .Date "Unknown"}}</span></li>
<li><span>Seeders:</span> <span class="seeders">{{or .Seeders "0"}}</span></li>
<li><span>Leechers:</span> <span class="leechers">{{or .Leechers "0"}}</span></li>
<li><span>Completed:</span> <span>{{or .Completed "0"}}</span></li>
<li><span>Submitter:</span> <span>{{or .Submitter "Unknown"}}</span></li>
<li><span>Size:</span> <span>{{or .FileSize "Unknown"}}</span></li>
</ul>
{{- with .Files}}
<div class="file-tree">{{template "tree" .}}</div>
{{- end}}
</div>{{end}}

{{define "tree"}}<ul class="file-list">
{{- range .}}
{{- if isFolder .}}
<li class="folder">📁 {{.Name}}</li>
{{- with .Contents}}<li class="folder-contents">{{template "tree" .}}</li>{{end}}
{{- else}}
<li class="file">📄 {{.Name}} <span class="file-size">{{.Size}}</span></li>
{{- end}}
{{- end}}
</ul>{{end}}
`
