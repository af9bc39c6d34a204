package report

import (
	"bytes"
	"encoding/json"
	htmltemplate "html/template"
	texttemplate "text/template"
)

// RenderJSON marshals doc as indented JSON, the façade's default report
// format.
func RenderJSON(doc *Report) (string, error) {
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

const markdownTemplate = `# Crash Analysis Report

Dump: {{.Metadata.DumpID}}
Generated: {{.Metadata.GeneratedAt.Format "2006-01-02T15:04:05Z07:00"}}
Debugger: {{.Metadata.DebuggerFamily}}

## Summary

- Crash type: {{.Analysis.Summary.CrashType}}
- Severity: {{.Analysis.Summary.Severity}}

{{.Analysis.Summary.Description}}

{{if .Analysis.Summary.Recommendations}}### Recommendations
{{range .Analysis.Summary.Recommendations}}- {{.}}
{{end}}{{end}}
## Threads

OS thread count: {{.Analysis.Threads.OSThreadCount}}

{{range .Analysis.Threads.All}}### Thread {{.ThreadID}} (OS {{.OSThreadID}}){{if .IsFaulting}} — FAULTING{{end}}

Top function: {{.TopFunction}}

{{range .CallStack}}- #{{.FrameNumber}} {{.Function}}{{if .SourceFile}} ({{.SourceFile}}:{{.LineNumber}}){{end}}
{{end}}
{{end}}
## Modules

{{range .Analysis.Modules}}- {{.Name}} @ {{.BaseAddress}}
{{end}}
{{if .Analysis.Assemblies.Items}}## Assemblies

{{range .Analysis.Assemblies.Items}}- {{.Name}}{{if .AssemblyVersion}} v{{.AssemblyVersion}}{{end}}
{{end}}{{end}}
{{if .Analysis.Security}}## Security Findings

Overall risk: {{.Analysis.Security.OverallRisk}}

{{range .Analysis.Security.Findings}}- [{{.Severity}}] {{.Kind}} ({{.CWE}}, confidence: {{.Confidence}})
{{end}}{{end}}
{{if .Analysis.AIAnalysis}}## AI Analysis

Root cause: {{.Analysis.AIAnalysis.RootCause}}
Confidence: {{.Analysis.AIAnalysis.Confidence}}
Iterations: {{.Analysis.AIAnalysis.Iterations}}

{{.Analysis.AIAnalysis.Reasoning}}
{{end}}
{{if .Analysis.Diagnostics}}## Diagnostics

{{range .Analysis.Diagnostics}}- [{{.Step}}] {{.Message}}
{{end}}{{end}}`

var md = texttemplate.Must(texttemplate.New("markdown").Parse(markdownTemplate))

// RenderMarkdown renders doc as the markdown report format, grounded on
// the teacher's text-templated CLI output (the module layout, not its
// specific fields).
func RenderMarkdown(doc *Report) (string, error) {
	var buf bytes.Buffer
	if err := md.Execute(&buf, doc); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const htmlTemplate = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Crash Analysis Report - {{.Metadata.DumpID}}</title></head>
<body>
<h1>Crash Analysis Report</h1>
<p>Dump: {{.Metadata.DumpID}}<br>Generated: {{.Metadata.GeneratedAt}}<br>Debugger: {{.Metadata.DebuggerFamily}}</p>
<h2>Summary</h2>
<p><strong>{{.Analysis.Summary.CrashType}}</strong> ({{.Analysis.Summary.Severity}})</p>
<p>{{.Analysis.Summary.Description}}</p>
{{if .Analysis.Summary.Recommendations}}<ul>{{range .Analysis.Summary.Recommendations}}<li>{{.}}</li>{{end}}</ul>{{end}}
<h2>Threads</h2>
<p>OS thread count: {{.Analysis.Threads.OSThreadCount}}</p>
{{range .Analysis.Threads.All}}
<h3>Thread {{.ThreadID}} (OS {{.OSThreadID}}){{if .IsFaulting}} &mdash; FAULTING{{end}}</h3>
<p>Top function: {{.TopFunction}}</p>
<ol start="0">{{range .CallStack}}<li>{{.Function}}{{if .SourceFile}} ({{.SourceFile}}:{{.LineNumber}}){{end}}</li>{{end}}</ol>
{{end}}
<h2>Modules</h2>
<ul>{{range .Analysis.Modules}}<li>{{.Name}} @ {{.BaseAddress}}</li>{{end}}</ul>
{{if .Analysis.Security}}<h2>Security Findings</h2>
<p>Overall risk: {{.Analysis.Security.OverallRisk}}</p>
<ul>{{range .Analysis.Security.Findings}}<li>[{{.Severity}}] {{.Kind}} ({{.CWE}}, confidence: {{.Confidence}})</li>{{end}}</ul>
{{end}}
{{if .Analysis.AIAnalysis}}<h2>AI Analysis</h2>
<p>Root cause: {{.Analysis.AIAnalysis.RootCause}}<br>Confidence: {{.Analysis.AIAnalysis.Confidence}}<br>Iterations: {{.Analysis.AIAnalysis.Iterations}}</p>
<p>{{.Analysis.AIAnalysis.Reasoning}}</p>
{{end}}
{{if .Analysis.Diagnostics}}<h2>Diagnostics</h2>
<ul>{{range .Analysis.Diagnostics}}<li>[{{.Step}}] {{.Message}}</li>{{end}}</ul>{{end}}
</body>
</html>
`

var htmlDoc = htmltemplate.Must(htmltemplate.New("html").Parse(htmlTemplate))

// RenderHTML renders doc as a self-contained HTML report, grounded on the
// teacher's html/template usage in internal/api/handlers.go (ParseFS of a
// page template with struct-typed data).
func RenderHTML(doc *Report) (string, error) {
	var buf bytes.Buffer
	if err := htmlDoc.Execute(&buf, doc); err != nil {
		return "", err
	}
	return buf.String(), nil
}
