package motw

import (
	"strings"
	"text/template"

	"github.com/choplin/unblockpreview/internal/powershell"
)

// Every caller-supplied value reaches the scripts through these functions.
var scriptFuncs = template.FuncMap{
	"literal":  powershell.QuoteLiteral,
	"literals": literalArray,
	"psbool":   boolToken,
}

// ZoneStream is the alternate data stream that carries the Mark of the Web.
const ZoneStream = "Zone.Identifier"

var scanTemplate = template.Must(template.New("scan").Funcs(scriptFuncs).Parse(`
[Console]::OutputEncoding = [System.Text.Encoding]::UTF8
$folder = {{literal .Dir}}
$recurse = {{psbool .Recursive}}
$exts = {{literals .Exts}}

$items = Get-ChildItem -LiteralPath $folder -File -Force -Recurse:$recurse |
  Where-Object { $exts -contains $_.Extension.ToLowerInvariant() } |
  ForEach-Object {
    $zi = Get-Item -LiteralPath $_.FullName -Stream {{literal .Stream}} -ErrorAction SilentlyContinue
    if ($zi) {
      [pscustomobject]@{
        FullName = $_.FullName
        Name = $_.Name
        Ext = $_.Extension
        Length = $_.Length
        LastWriteTimeStr = $_.LastWriteTime.ToString('yyyy-MM-dd HH:mm:ss', [System.Globalization.CultureInfo]::InvariantCulture)
      }
    }
  }

$items | ConvertTo-Json -Compress
`))

var unblockTemplate = template.Must(template.New("unblock").Funcs(scriptFuncs).Parse(`
[Console]::OutputEncoding = [System.Text.Encoding]::UTF8
$paths = {{literals .Paths}}
$dryRun = {{psbool .DryRun}}

$results = foreach ($p in $paths) {
  try {
    Unblock-File -LiteralPath $p -ErrorAction Stop -WhatIf:$dryRun
    $status = if ($dryRun) { 'simulated' } else { 'unblocked' }
    [pscustomobject]@{ Path = $p; Status = $status; Message = '' }
  } catch {
    [Console]::Error.WriteLine('Failed: ' + $p + ' -> ' + $_.Exception.Message)
    [pscustomobject]@{ Path = $p; Status = 'failed'; Message = $_.Exception.Message }
  }
}

Write-Output ''
ConvertTo-Json -InputObject @($results) -Compress
`))

type scanParams struct {
	Dir       string
	Recursive bool
	Exts      []string
	Stream    string
}

type unblockParams struct {
	Paths  []string
	DryRun bool
}

// ScanScript renders the enumeration script for dir.
func ScanScript(dir string, recursive bool, exts []string) (string, error) {
	return render(scanTemplate, scanParams{Dir: dir, Recursive: recursive, Exts: exts, Stream: ZoneStream})
}

// UnblockScript renders the batch script that clears the stream from paths,
// or only simulates it when dryRun is set.
func UnblockScript(paths []string, dryRun bool) (string, error) {
	return render(unblockTemplate, unblockParams{Paths: paths, DryRun: dryRun})
}

func render(t *template.Template, data any) (string, error) {
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}

func literalArray(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = powershell.QuoteLiteral(v)
	}
	return "@(" + strings.Join(quoted, ",") + ")"
}

func boolToken(b bool) string {
	if b {
		return "$true"
	}
	return "$false"
}
