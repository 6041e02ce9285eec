package server

// ---------------------------------------------------------------------------
// Wire messages for the bluejay.v1 services. They travel as JSON through
// the Connect protocol; field names follow proto3 JSON conventions.
// ---------------------------------------------------------------------------

// Procedure paths.
const (
	EvalServiceName    = "bluejay.v1.EvalService"
	BrowseServiceName  = "bluejay.v1.BrowseService"
	EvaluateProcedure  = "/" + EvalServiceName + "/Evaluate"
	CheckSyntaxProc    = "/" + EvalServiceName + "/CheckSyntax"
	CreateSessionProc  = "/" + EvalServiceName + "/CreateSession"
	DestroySessionProc = "/" + EvalServiceName + "/DestroySession"
	ListClassesProc    = "/" + BrowseServiceName + "/ListClasses"
	DescribeClassProc  = "/" + BrowseServiceName + "/DescribeClass"
)

// Diagnostic is a compile or runtime error with a 1-based source position.
// Line and Column are zero when the position is unknown.
type Diagnostic struct {
	Kind    string `json:"kind"`
	Line    int    `json:"line"`
	Column  int    `json:"column"`
	Message string `json:"message"`
}

type EvaluateRequest struct {
	SessionID string `json:"sessionId,omitempty"`
	Source    string `json:"source"`
}

type EvaluateResponse struct {
	Success     bool         `json:"success"`
	Output      string       `json:"output,omitempty"`
	Result      string       `json:"result,omitempty"`
	ResultType  string       `json:"resultType,omitempty"`
	Error       string       `json:"error,omitempty"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}

type CheckSyntaxRequest struct {
	Source string `json:"source"`
}

type CheckSyntaxResponse struct {
	Valid       bool         `json:"valid"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}

type CreateSessionRequest struct {
	Name string `json:"name,omitempty"`
}

type CreateSessionResponse struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

type DestroySessionRequest struct {
	ID string `json:"id"`
}

type DestroySessionResponse struct{}

type ListClassesRequest struct {
	SessionID string `json:"sessionId,omitempty"`
}

type ListClassesResponse struct {
	Classes []ClassInfo `json:"classes"`
}

type DescribeClassRequest struct {
	SessionID string `json:"sessionId,omitempty"`
	Name      string `json:"name"`
}

type DescribeClassResponse struct {
	Class      ClassInfo `json:"class"`
	Ancestors  []string  `json:"ancestors,omitempty"`
	Subclasses []string  `json:"subclasses,omitempty"`
}

// ClassInfo summarises a class for browsing.
type ClassInfo struct {
	Name       string       `json:"name"`
	Superclass string       `json:"superclass,omitempty"`
	Native     bool         `json:"native"`
	Members    []MemberInfo `json:"members,omitempty"`
}

// MemberInfo describes one static of a class. Arity is -1 for members
// that are not methods or accept any argument count.
type MemberInfo struct {
	Name      string `json:"name"`
	Arity     int    `json:"arity"`
	Native    bool   `json:"native"`
	Inherited string `json:"inherited,omitempty"`
}
