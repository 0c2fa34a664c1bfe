package mcp

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dustin/go-humanize"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/choplin/unblockpreview/internal/allowlist"
	"github.com/choplin/unblockpreview/internal/motw"
	"github.com/choplin/unblockpreview/internal/services"
	"github.com/choplin/unblockpreview/internal/session"
)

// Options carries the defaults applied when a tool call leaves a value unset.
type Options struct {
	Version   string
	Recursive bool
}

// Server exposes one shared session as MCP tools.
type Server struct {
	server    *mcp.Server
	session   *session.Session
	allowlist *services.AllowlistService
	opts      Options
	logger    *slog.Logger
}

// NewServer creates a new MCP server instance
func NewServer(sess *session.Session, allow *services.AllowlistService, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}

	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    "unblockpreview",
		Version: opts.Version,
	}, nil)

	s := &Server{
		server:    mcpServer,
		session:   sess,
		allowlist: allow,
		opts:      opts,
		logger:    logger.With("component", "mcp"),
	}
	s.registerTools()
	return s
}

// Run starts the MCP server with stdio transport
func (s *Server) Run(ctx context.Context) error {
	return s.Serve(ctx, &mcp.StdioTransport{})
}

// Serve runs the server on t until the client disconnects or ctx is done.
func (s *Server) Serve(ctx context.Context, t mcp.Transport) error {
	return s.server.Run(ctx, t)
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "motw_scan",
		Description: "List files in a folder that carry the Mark of the Web (Zone.Identifier) and whose extension is allowed. Every listed file is selected for the next unblock.",
	}, s.handleScan)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "motw_unblock",
		Description: "Remove the Mark of the Web from files. Without paths the current selection is used. Only files whose extension is on the allowlist are accepted. A real unblock requires confirm=true; dryRun only reports what would change.",
	}, s.handleUnblock)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "allowlist_list",
		Description: "Show the extensions eligible for scanning and unblocking",
	}, s.handleAllowlistList)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "allowlist_office",
		Description: "Add or remove the Office formats (.docx, .xlsx, .pptx) from the allowlist",
	}, s.handleAllowlistOffice)
}

// Input/Output types for each tool

type ScanInput struct {
	Dir        string   `json:"dir" jsonschema:"Folder to scan"`
	Recursive  *bool    `json:"recursive,omitempty" jsonschema:"Include subfolders"`
	Extensions []string `json:"extensions,omitempty" jsonschema:"Extensions to scan for instead of the stored allowlist, e.g. .pdf"`
}

type ScanOutput struct {
	Dir       string     `json:"dir"`
	Recursive bool       `json:"recursive"`
	Count     int        `json:"count"`
	Files     []FileInfo `json:"files"`
}

type FileInfo struct {
	Path          string `json:"path"`
	Name          string `json:"name"`
	Ext           string `json:"ext"`
	Size          int64  `json:"size"`
	SizeHuman     string `json:"sizeHuman"`
	LastWriteTime string `json:"lastWriteTime"`
}

type UnblockInput struct {
	Paths      []string `json:"paths,omitempty" jsonschema:"Files to unblock; defaults to the files selected by the last scan"`
	DryRun     bool     `json:"dryRun,omitempty" jsonschema:"Report what would be unblocked without changing anything"`
	Confirm    bool     `json:"confirm,omitempty" jsonschema:"Must be true to remove the mark when dryRun is false"`
	Extensions []string `json:"extensions,omitempty" jsonschema:"Extensions allowed for this unblock instead of the stored allowlist"`
}

type UnblockOutput struct {
	DryRun    bool         `json:"dryRun"`
	Cancelled bool         `json:"cancelled,omitempty"`
	Results   []PathResult `json:"results"`
	Refreshed *ScanOutput  `json:"refreshed,omitempty"`
	Warnings  []string     `json:"warnings,omitempty"`
}

type PathResult struct {
	Path    string `json:"path"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type AllowlistInput struct{}

type OfficeInput struct {
	Enabled bool `json:"enabled" jsonschema:"true to allow Office formats, false to remove them"`
}

type AllowlistOutput struct {
	Extensions    []string `json:"extensions"`
	OfficeFormats bool     `json:"officeFormats"`
}

// Tool handlers

func (s *Server) handleScan(ctx context.Context, req *mcp.CallToolRequest, input ScanInput) (*mcp.CallToolResult, ScanOutput, error) {
	exts, err := s.resolveAllowlist(ctx, input.Extensions)
	if err != nil {
		return nil, ScanOutput{}, toolError(err)
	}

	recursive := s.opts.Recursive
	if input.Recursive != nil {
		recursive = *input.Recursive
	}

	result, err := s.session.Scan(ctx, session.Config{
		Dir:       input.Dir,
		Recursive: recursive,
		Allowlist: exts,
	})
	if err != nil {
		return nil, ScanOutput{}, toolError(err)
	}
	return nil, scanOutput(result), nil
}

func (s *Server) handleUnblock(ctx context.Context, req *mcp.CallToolRequest, input UnblockInput) (*mcp.CallToolResult, UnblockOutput, error) {
	if !input.DryRun && !input.Confirm {
		return nil, UnblockOutput{}, errors.New("set confirm to true to remove the mark, or use dryRun to preview")
	}

	exts, err := s.resolveAllowlist(ctx, input.Extensions)
	if err != nil {
		return nil, UnblockOutput{}, toolError(err)
	}

	paths := input.Paths
	if len(paths) == 0 {
		paths = s.session.SelectedPaths()
	}

	confirm := func(int) (bool, error) { return input.Confirm, nil }
	report, err := s.session.Unblock(ctx, session.Config{DryRun: input.DryRun, Allowlist: exts}, paths, confirm)
	if err != nil {
		return nil, UnblockOutput{}, toolError(err)
	}

	out := UnblockOutput{DryRun: input.DryRun, Cancelled: report.Declined, Results: []PathResult{}}
	if report.Result != nil {
		for _, p := range report.Result.Paths {
			out.Results = append(out.Results, PathResult{Path: p.Path, Status: string(p.Status), Message: p.Message})
		}
		if report.Result.ReportErr != nil {
			out.Warnings = append(out.Warnings, "unblock finished but the per-file report was unreadable: "+report.Result.ReportErr.Error())
		}
	}
	if report.Refresh != nil {
		refreshed := scanOutput(report.Refresh)
		out.Refreshed = &refreshed
	}
	if report.RefreshErr != nil {
		out.Warnings = append(out.Warnings, session.Describe(report.RefreshErr))
	}
	return nil, out, nil
}

func (s *Server) handleAllowlistList(ctx context.Context, req *mcp.CallToolRequest, input AllowlistInput) (*mcp.CallToolResult, AllowlistOutput, error) {
	set, err := s.allowlist.Load(ctx)
	if err != nil {
		return nil, AllowlistOutput{}, err
	}
	return nil, allowlistOutput(set), nil
}

func (s *Server) handleAllowlistOffice(ctx context.Context, req *mcp.CallToolRequest, input OfficeInput) (*mcp.CallToolResult, AllowlistOutput, error) {
	set, err := s.allowlist.SetOfficeFormats(ctx, input.Enabled)
	if err != nil {
		return nil, AllowlistOutput{}, err
	}
	s.logger.Info("office formats toggled", "enabled", input.Enabled)
	return nil, allowlistOutput(set), nil
}

func (s *Server) resolveAllowlist(ctx context.Context, override []string) (allowlist.Set, error) {
	if len(override) > 0 {
		return allowlist.New(override...)
	}
	return s.allowlist.Load(ctx)
}

// toolError keeps the user-facing status line as the tool error text.
func toolError(err error) error {
	return errors.New(session.Describe(err))
}

func scanOutput(result *motw.ScanResult) ScanOutput {
	files := make([]FileInfo, 0, len(result.Records))
	for _, rec := range result.Records {
		files = append(files, FileInfo{
			Path:          rec.FullName,
			Name:          rec.Name,
			Ext:           rec.Ext,
			Size:          rec.Length,
			SizeHuman:     humanize.IBytes(uint64(rec.Length)),
			LastWriteTime: rec.LastWriteTime,
		})
	}
	return ScanOutput{
		Dir:       result.Dir,
		Recursive: result.Recursive,
		Count:     len(files),
		Files:     files,
	}
}

func allowlistOutput(set allowlist.Set) AllowlistOutput {
	exts := set.Slice()
	if exts == nil {
		exts = []string{}
	}
	return AllowlistOutput{
		Extensions:    exts,
		OfficeFormats: allowlist.HasOfficeFormats(set),
	}
}
