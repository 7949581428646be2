package kcodegen

import (
	"strings"
	"text/template"
)

var funcs = template.FuncMap{
	"join": strings.Join,
}

var computeTemplate = template.Must(template.New("compute").Funcs(funcs).Parse(`// Code generated by tilestreams. DO NOT EDIT.
// kernel {{ printf "%q" .Kernel }} on core {{ .Core }}, tiles [{{ .Start }}, {{ .End }})

package compute

func {{ .Entry }}({{ if .Inputs }}{{ join .Inputs ", " }} float32{{ end }}){{ if .Outputs }} ({{ join .Outputs ", " }} float32){{ end }} {
{{ .Body }}
	return
}
`))

var movementTemplate = template.Must(template.New("movement").Parse(`// Code generated by tilestreams. DO NOT EDIT.
// {{ .Description }} on core {{ .Core }}, tiles [{{ .Start }}, {{ .End }})

package dataflow

func {{ .Entry }}(src, dst Buffer) {
	for tile := {{ .Start }}; tile < {{ .End }}; tile++ {
		page := {{ if .FromDRAM }}src.ReadPage(tile){{ else }}src.Pop(){{ end }}
		{{ if .ToDRAM }}dst.WritePage(tile, page){{ else }}dst.Push(page){{ end }}
	}
}
`))

type computeData struct {
	Kernel  string
	Core    string
	Start   int
	End     int
	Entry   string
	Inputs  []string
	Outputs []string
	Body    string
}

type movementData struct {
	Description string
	Core        string
	Start       int
	End         int
	Entry       string
	FromDRAM    bool
	ToDRAM      bool
}

func render(t *template.Template, data any) (string, error) {
	var sb strings.Builder
	if err := t.Execute(&sb, data); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// identifier turns name into a valid Go identifier fragment.
func identifier(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}
