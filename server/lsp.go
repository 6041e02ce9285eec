package server

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/chazu/bluejay/compiler"
	"github.com/chazu/bluejay/vm"

	_ "github.com/tliron/commonlog/simple"
)

const lspName = "bluejay-lsp"

// LspServer provides editor features for Bluejay documents. Diagnostics
// and document symbols come from the compiler front end; builtin names
// come from a runtime owned by a RuntimeWorker.
type LspServer struct {
	worker *RuntimeWorker

	mu   sync.Mutex
	docs map[string]string // URI → full document content

	handler protocol.Handler
	server  *glspserver.Server
	version string
	log     commonlog.Logger
}

// NewLSP creates a new LSP server.
func NewLSP(opts ...vm.Option) *LspServer {
	s := &LspServer{
		worker:  NewRuntimeWorker(opts...),
		docs:    make(map[string]string),
		version: "0.1.0",
		log:     commonlog.GetLogger("bluejay.lsp"),
	}

	s.handler = protocol.Handler{
		Initialize:  s.initialize,
		Initialized: s.initialized,
		Shutdown:    s.shutdown,
		SetTrace:    s.setTrace,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidClose:  s.textDocumentDidClose,

		TextDocumentCompletion: s.textDocumentCompletion,
		TextDocumentHover:      s.textDocumentHover,
		TextDocumentDefinition: s.textDocumentDefinition,
		TextDocumentReferences: s.textDocumentReferences,
	}

	s.server = glspserver.NewServer(&s.handler, lspName, false)

	return s
}

// Run starts the LSP server on stdio. Blocks until the client disconnects.
func (s *LspServer) Run() error {
	return s.server.RunStdio()
}

// --- LSP lifecycle handlers ---

func (s *LspServer) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	s.log.Info("Bluejay LSP initializing")

	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
	}

	capabilities.CompletionProvider = &protocol.CompletionOptions{
		TriggerCharacters: []string{"."},
	}

	capabilities.HoverProvider = true
	capabilities.DefinitionProvider = true
	capabilities.ReferencesProvider = true

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lspName,
			Version: &s.version,
		},
	}, nil
}

func (s *LspServer) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *LspServer) shutdown(ctx *glsp.Context) error {
	s.worker.Stop()
	return nil
}

func (s *LspServer) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

// --- Document synchronization ---

func (s *LspServer) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := params.TextDocument.URI
	text := params.TextDocument.Text

	s.setDocument(uri, text)
	s.publishDiagnostics(ctx, uri, text)
	return nil
}

func (s *LspServer) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI

	// With Full sync, the last change event contains the full text
	if len(params.ContentChanges) > 0 {
		last := params.ContentChanges[len(params.ContentChanges)-1]
		if whole, ok := last.(protocol.TextDocumentContentChangeEventWhole); ok {
			s.setDocument(uri, whole.Text)
			s.publishDiagnostics(ctx, uri, whole.Text)
		}
	}
	return nil
}

func (s *LspServer) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI

	s.mu.Lock()
	delete(s.docs, string(uri))
	s.mu.Unlock()

	// Clear diagnostics for the closed document
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

func (s *LspServer) setDocument(uri protocol.DocumentUri, text string) {
	s.mu.Lock()
	s.docs[string(uri)] = text
	s.mu.Unlock()
}

func (s *LspServer) document(uri protocol.DocumentUri) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	text, ok := s.docs[string(uri)]
	return text, ok
}

// --- Language features ---

func (s *LspServer) textDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	text, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	prefix := extractPrefix(text, params.Position)
	if prefix == "" {
		return nil, nil
	}
	return s.complete(text, prefix)
}

func (s *LspServer) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	text, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	word := extractWord(text, params.Position)
	if word == "" {
		return nil, nil
	}
	return s.hover(text, word), nil
}

func (s *LspServer) textDocumentDefinition(ctx *glsp.Context, params *protocol.DefinitionParams) (any, error) {
	uri := params.TextDocument.URI
	text, ok := s.document(uri)
	if !ok {
		return nil, nil
	}
	word := extractWord(text, params.Position)
	if word == "" {
		return nil, nil
	}
	loc := definition(uri, text, word, offsetOf(text, params.Position))
	if loc == nil {
		return nil, nil
	}
	return loc, nil
}

func (s *LspServer) textDocumentReferences(ctx *glsp.Context, params *protocol.ReferenceParams) ([]protocol.Location, error) {
	uri := params.TextDocument.URI
	text, ok := s.document(uri)
	if !ok {
		return nil, nil
	}
	word := extractWord(text, params.Position)
	if word == "" {
		return nil, nil
	}
	return references(uri, text, word), nil
}

// ---------------------------------------------------------------------------
// Completion and hover
// ---------------------------------------------------------------------------

// globalInfo describes one builtin global for completion and hover.
type globalInfo struct {
	name  string
	class *ClassInfo
	arity int
}

// globals lists the runtime's builtin classes and functions.
func (s *LspServer) globals() ([]globalInfo, error) {
	result, err := s.worker.Do(func(rt *vm.Runtime) any {
		var out []globalInfo
		for _, name := range rt.Globals() {
			v, _ := rt.Lookup(name)
			switch x := v.(type) {
			case *vm.Class:
				info := classToInfo(x)
				out = append(out, globalInfo{name: name, class: &info})
			case vm.Callable:
				out = append(out, globalInfo{name: name, arity: x.Arity()})
			}
		}
		return out
	})
	if err != nil {
		return nil, err
	}
	return result.([]globalInfo), nil
}

func (s *LspServer) complete(text, prefix string) ([]protocol.CompletionItem, error) {
	var items []protocol.CompletionItem
	lowerPrefix := strings.ToLower(prefix)
	seen := make(map[string]bool)

	add := func(label string, kind protocol.CompletionItemKind, detail string) {
		if seen[label] || !strings.HasPrefix(strings.ToLower(label), lowerPrefix) {
			return
		}
		seen[label] = true
		labelCopy := label
		items = append(items, protocol.CompletionItem{
			Label:      label,
			Kind:       &kind,
			Detail:     &detail,
			InsertText: &labelCopy,
		})
	}

	// Document declarations first: they are the most specific
	for _, d := range collectDecls(text) {
		add(d.name, d.completionKind(), d.detail())
	}

	globals, err := s.globals()
	if err != nil {
		return nil, err
	}
	for _, g := range globals {
		if g.class != nil {
			add(g.name, protocol.CompletionItemKindClass, "native class")
			for _, m := range g.class.Members {
				if m.Inherited == "" && m.Name != g.name {
					add(m.Name, protocol.CompletionItemKindMethod, fmt.Sprintf("%s method", g.name))
				}
			}
			continue
		}
		add(g.name, protocol.CompletionItemKindFunction, fmt.Sprintf("builtin (%s)", arityText(g.arity)))
	}

	keywords := compiler.Keywords()
	sort.Strings(keywords)
	for _, kw := range keywords {
		add(kw, protocol.CompletionItemKindKeyword, "keyword")
	}

	// Limit results
	const maxItems = 100
	if len(items) > maxItems {
		items = items[:maxItems]
	}

	return items, nil
}

func (s *LspServer) hover(text, word string) *protocol.Hover {
	var b strings.Builder

	decls := collectDecls(text)
	for _, d := range decls {
		if d.name != word {
			continue
		}
		fmt.Fprintf(&b, "```bluejay\n%s\n```", d.signature())
		if d.kind == declClass {
			var methods []string
			for _, m := range decls {
				if m.kind == declMethod && m.owner == d.name {
					methods = append(methods, "- `"+m.signature()+"`")
				}
			}
			if len(methods) > 0 {
				b.WriteString("\n\n" + strings.Join(methods, "\n"))
			}
		}
		return markdown(b.String())
	}

	globals, err := s.globals()
	if err != nil {
		return nil
	}
	for _, g := range globals {
		if g.name != word {
			continue
		}
		if g.class == nil {
			fmt.Fprintf(&b, "**%s** builtin function, %s", g.name, arityText(g.arity))
			return markdown(b.String())
		}
		fmt.Fprintf(&b, "**%s**", g.class.Name)
		if g.class.Superclass != "" {
			fmt.Fprintf(&b, " : %s", g.class.Superclass)
		}
		if g.class.Native {
			b.WriteString(" (native)")
		}
		b.WriteString("\n\n")
		for _, m := range g.class.Members {
			fmt.Fprintf(&b, "- `%s` %s\n", m.Name, arityText(m.Arity))
		}
		return markdown(b.String())
	}
	return nil
}

func markdown(s string) *protocol.Hover {
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: s,
		},
	}
}

func arityText(n int) string {
	switch n {
	case -1:
		return "any arguments"
	case 1:
		return "1 argument"
	}
	return fmt.Sprintf("%d arguments", n)
}

// ---------------------------------------------------------------------------
// Document declarations
// ---------------------------------------------------------------------------

type declKind int

const (
	declVariable declKind = iota
	declFunction
	declClass
	declMethod
	declParam
)

// decl is a name introduced by a document: a var, function, class,
// method or parameter.
type decl struct {
	name   string
	kind   declKind
	token  compiler.Token
	params []string
	owner  string // class of a method, superclass of a class
}

func (d decl) completionKind() protocol.CompletionItemKind {
	switch d.kind {
	case declFunction:
		return protocol.CompletionItemKindFunction
	case declClass:
		return protocol.CompletionItemKindClass
	case declMethod:
		return protocol.CompletionItemKindMethod
	}
	return protocol.CompletionItemKindVariable
}

func (d decl) detail() string {
	switch d.kind {
	case declFunction:
		return "function"
	case declClass:
		return "class"
	case declMethod:
		return d.owner + " method"
	case declParam:
		return "parameter"
	}
	return "variable"
}

func (d decl) signature() string {
	switch d.kind {
	case declFunction:
		return fmt.Sprintf("func %s(%s)", d.name, strings.Join(d.params, ", "))
	case declMethod:
		return fmt.Sprintf("%s(%s)", d.name, strings.Join(d.params, ", "))
	case declClass:
		if d.owner != "" {
			return fmt.Sprintf("class %s : %s", d.name, d.owner)
		}
		return "class " + d.name
	case declParam:
		return "parameter " + d.name
	}
	return "var " + d.name
}

// collectDecls parses text, tolerating errors, and returns its
// declarations in source order.
func collectDecls(text string) []decl {
	stmts, _ := compiler.ParseSource(text)
	var out []decl
	var walk func(stmt compiler.Stmt)
	walkBody := func(body []compiler.Stmt) {
		for _, st := range body {
			walk(st)
		}
	}
	params := func(toks []compiler.Token, defaults []compiler.Expr) []string {
		names := make([]string, len(toks))
		for i, p := range toks {
			names[i] = p.Lexeme
			if i < len(defaults) && defaults[i] != nil {
				names[i] += " = " + compiler.PrintExpr(defaults[i])
			}
			out = append(out, decl{name: p.Lexeme, kind: declParam, token: p})
		}
		return names
	}
	walk = func(stmt compiler.Stmt) {
		switch n := stmt.(type) {
		case *compiler.VarDecl:
			out = append(out, decl{name: n.Name.Lexeme, kind: declVariable, token: n.Name})
		case *compiler.FunctionDecl:
			d := decl{name: n.Name.Lexeme, kind: declFunction, token: n.Name}
			i := len(out)
			out = append(out, d)
			out[i].params = params(n.Params, n.Defaults)
			walkBody(n.Body)
		case *compiler.Class:
			d := decl{name: n.Name.Lexeme, kind: declClass, token: n.Name}
			if n.Superclass != nil {
				d.owner = n.Superclass.Name.Lexeme
			}
			out = append(out, d)
			for _, m := range n.Methods {
				i := len(out)
				out = append(out, decl{name: m.Name.Lexeme, kind: declMethod, token: m.Name, owner: n.Name.Lexeme})
				out[i].params = params(m.Params, m.Defaults)
				walkBody(m.Body)
			}
		case *compiler.Block:
			walkBody(n.Stmts)
		case *compiler.If:
			walk(n.Then)
			if n.Else != nil {
				walk(n.Else)
			}
		case *compiler.While:
			walk(n.Body)
		case *compiler.Repeat:
			walk(n.Body)
		case *compiler.Foreach:
			out = append(out, decl{name: n.Var.Lexeme, kind: declVariable, token: n.Var})
			walk(n.Body)
		}
	}
	walkBody(stmts)
	return out
}

// definition finds the declaration of word nearest before offset, or the
// first one when none precedes it.
func definition(uri protocol.DocumentUri, text, word string, offset int) *protocol.Location {
	var best *decl
	decls := collectDecls(text)
	for i := range decls {
		d := &decls[i]
		if d.name != word {
			continue
		}
		if best == nil || (d.token.Offset <= offset && d.token.Offset > best.token.Offset) {
			best = d
		}
	}
	if best == nil {
		return nil
	}
	return &protocol.Location{URI: uri, Range: tokenRange(text, best.token)}
}

// references lists every identifier token spelled word.
func references(uri protocol.DocumentUri, text, word string) []protocol.Location {
	tokens, _ := compiler.Scan(text)
	var locations []protocol.Location
	for _, tok := range tokens {
		if tok.Type == compiler.TokenIdentifier && tok.Lexeme == word {
			locations = append(locations, protocol.Location{URI: uri, Range: tokenRange(text, tok)})
		}
	}
	return locations
}

// --- Diagnostics ---

func (s *LspServer) publishDiagnostics(ctx *glsp.Context, uri protocol.DocumentUri, text string) {
	diagnostics := diagnosticsFor(text)
	s.log.Debugf("%s: %d diagnostics", uri, len(diagnostics))

	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

// diagnosticsFor converts front-end diagnostics into LSP diagnostics.
func diagnosticsFor(text string) []protocol.Diagnostic {
	diagnostics := []protocol.Diagnostic{}
	for _, d := range checkSource(text) {
		severity := protocol.DiagnosticSeverityError
		source := lspName
		diagnostics = append(diagnostics, protocol.Diagnostic{
			Range:    tokenRange(text, d.Token),
			Severity: &severity,
			Source:   &source,
			Message:  d.Message,
		})
	}
	return diagnostics
}

// --- Position helpers ---

// tokenRange covers tok's lexeme, at least one character wide.
func tokenRange(text string, tok compiler.Token) protocol.Range {
	line, col := compiler.LineCol(text, tok.Offset)
	width := utf8.RuneCountInString(tok.Lexeme)
	if width == 0 {
		width = 1
	}
	start := protocol.Position{Line: protocol.UInteger(line - 1), Character: protocol.UInteger(col - 1)}
	end := start
	end.Character += protocol.UInteger(width)
	return protocol.Range{Start: start, End: end}
}

// offsetOf converts an LSP position into a byte offset in text.
func offsetOf(text string, pos protocol.Position) int {
	offset := 0
	for line := 0; line < int(pos.Line); line++ {
		i := strings.IndexByte(text[offset:], '\n')
		if i < 0 {
			return len(text)
		}
		offset += i + 1
	}
	for col := 0; col < int(pos.Character) && offset < len(text) && text[offset] != '\n'; col++ {
		_, size := utf8.DecodeRuneInString(text[offset:])
		offset += size
	}
	return offset
}

// lineRunes returns the runes of line pos.Line and the cursor column
// clamped to it.
func lineRunes(text string, pos protocol.Position) ([]rune, int, bool) {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return nil, 0, false
	}
	line := []rune(lines[pos.Line])
	col := int(pos.Character)
	if col > len(line) {
		col = len(line)
	}
	return line, col, true
}

// extractPrefix returns the identifier fragment before the cursor for completion.
func extractPrefix(text string, pos protocol.Position) string {
	line, col, ok := lineRunes(text, pos)
	if !ok {
		return ""
	}

	// Walk backwards from cursor to find the start of the identifier
	start := col
	for start > 0 && compiler.IsIdentChar(line[start-1]) {
		start--
	}
	return string(line[start:col])
}

// extractWord returns the full identifier under the cursor.
func extractWord(text string, pos protocol.Position) string {
	line, col, ok := lineRunes(text, pos)
	if !ok {
		return ""
	}

	start := col
	for start > 0 && compiler.IsIdentChar(line[start-1]) {
		start--
	}
	end := col
	for end < len(line) && compiler.IsIdentChar(line[end]) {
		end++
	}
	return string(line[start:end])
}

func boolPtr(b bool) *bool {
	return &b
}
