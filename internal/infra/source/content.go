package source

import (
	"html/template"
	"strings"
)

// contentTemplates render entry content. html/template escapes every value
// for its context, so upstream text can never inject markup.
var contentTemplates = template.Must(template.New("content").Parse(`
{{define "pixiv-illust"}}<p>{{.Caption}}</p><p>タグ: {{.Tags}}</p><p><a href="{{.URL}}"><img src="{{.Image}}" /></a></p>{{end}}
{{define "pixiv-novel"}}<p>{{.Caption}}</p><p>タグ: {{.Tags}}</p>{{if .Image}}<p><a href="{{.URL}}"><img src="{{.Image}}" /></a></p>{{end}}{{end}}
{{define "qiita-stock"}}<p><a href="{{.UserURL}}">{{.UserName}}</a> stocked item <a href="{{.ObjectURL}}">“{{.ObjectName}}”</a> ({{.Stocks}} stocks).</p>{{if .TagLinks}}<p>Tags:{{range .TagLinks}} <a href="{{.URL}}">{{.Name}}</a>{{end}}</p>{{end}}{{end}}
{{define "qiita-comment"}}<p><a href="{{.UserURL}}">{{.UserName}}</a> commented on item <a href="{{.ObjectURL}}">“{{.ObjectName}}”</a> ({{.Stocks}} stocks).</p>{{end}}
{{define "qiita-tag"}}<p><a href="{{.UserURL}}">{{.UserName}}</a> started following tag <a href="{{.ObjectURL}}">“{{.ObjectName}}”</a>.</p>{{end}}
{{define "qiita-follow"}}<p><a href="{{.UserURL}}">{{.UserName}}</a> followed <a href="{{.ObjectURL}}">{{.ObjectName}}</a>.</p>{{end}}
{{define "github-commit"}}<p>{{if .AuthorURL}}<a href="{{.AuthorURL}}">{{.AuthorLogin}}</a>{{else}}{{.AuthorLogin}}{{end}} committed <a href="{{.URL}}">“{{.Message}}”</a></p>{{end}}
{{define "wiki-new"}}<p><a href="{{.UserURL}}">{{.User}}</a> が <a href="{{.PageURL}}">“{{.Title}}”</a> を作成しました</p><p>[NEW] → {{.NewLen}} bytes (+{{.NewLen}})</p>{{end}}
{{define "wiki-edit"}}<p><a href="{{.UserURL}}">{{.User}}</a> が <a href="{{.PageURL}}">“{{.Title}}”</a> を編集しました</p><p>{{.OldLen}} bytes → {{.NewLen}} bytes ({{.Diff}})</p>{{end}}
{{define "comike-update"}}<p><a href="{{.URL}}"><img src="{{.Thumbnail}}" /></a></p>{{.Body}}{{end}}
`))

// render executes the named content template.
func render(name string, data any) (string, error) {
	var sb strings.Builder
	if err := contentTemplates.ExecuteTemplate(&sb, name, data); err != nil {
		return "", err
	}
	return sb.String(), nil
}
