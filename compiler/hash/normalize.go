package hash

import (
	"github.com/chazu/bluejay/compiler"
)

// ---------------------------------------------------------------------------
// Normalization: compiler AST -> frozen hashing AST
//
// Source offsets and punctuation tokens are dropped. Names, operators and
// raw literal text are kept, so renaming a variable changes the fingerprint
// while reformatting does not.
// ---------------------------------------------------------------------------

// Normalize converts a parsed program into its hashing tree.
func Normalize(stmts []compiler.Stmt) *HNode {
	return &HNode{Tag: TagProgram, Kids: normalizeStmts(stmts)}
}

// NormalizeExpr converts a single expression into its hashing tree.
func NormalizeExpr(e compiler.Expr) *HNode {
	return normalizeExpr(e)
}

func normalizeStmts(stmts []compiler.Stmt) []*HNode {
	out := make([]*HNode, 0, len(stmts))
	for _, s := range stmts {
		if s == nil {
			continue
		}
		out = append(out, normalizeStmt(s))
	}
	return out
}

// params lists parameter names; a default value hangs under its parameter.
func params(tokens []compiler.Token, defaults []compiler.Expr) *HNode {
	n := &HNode{Tag: TagParams}
	for i, p := range tokens {
		param := &HNode{Tag: TagVariable, Text: p.Lexeme}
		if i < len(defaults) && defaults[i] != nil {
			param.Kids = []*HNode{normalizeExpr(defaults[i])}
		}
		n.Kids = append(n.Kids, param)
	}
	return n
}

func optExpr(e compiler.Expr) *HNode {
	if e == nil {
		return absent
	}
	return normalizeExpr(e)
}

func optStmt(s compiler.Stmt) *HNode {
	if s == nil {
		return absent
	}
	return normalizeStmt(s)
}

func normalizeStmt(s compiler.Stmt) *HNode {
	switch n := s.(type) {
	case *compiler.Block:
		return &HNode{Tag: TagBlock, Kids: normalizeStmts(n.Stmts)}
	case *compiler.Break:
		return &HNode{Tag: TagBreak, Kids: []*HNode{optExpr(n.Amount)}}
	case *compiler.Class:
		super := absent
		if n.Superclass != nil {
			super = normalizeExpr(n.Superclass)
		}
		kids := []*HNode{super}
		for _, m := range n.Methods {
			kids = append(kids, &HNode{
				Tag:  TagMethod,
				Text: m.Name.Lexeme,
				Kids: append([]*HNode{params(m.Params, m.Defaults)}, normalizeStmts(m.Body)...),
			})
		}
		return &HNode{Tag: TagClass, Text: n.Name.Lexeme, Kids: kids}
	case *compiler.ExprStmt:
		return &HNode{Tag: TagExprStmt, Kids: []*HNode{normalizeExpr(n.Expr)}}
	case *compiler.Foreach:
		return &HNode{Tag: TagForeach, Text: n.Var.Lexeme, Kids: []*HNode{
			normalizeExpr(n.Iterable), normalizeStmt(n.Body),
		}}
	case *compiler.FunctionDecl:
		return &HNode{
			Tag:  TagFunction,
			Text: n.Name.Lexeme,
			Kids: append([]*HNode{params(n.Params, n.Defaults)}, normalizeStmts(n.Body)...),
		}
	case *compiler.If:
		return &HNode{Tag: TagIf, Kids: []*HNode{
			normalizeExpr(n.Cond), normalizeStmt(n.Then), optStmt(n.Else),
		}}
	case *compiler.Import:
		from := absent
		if n.From != nil {
			from = &HNode{Tag: TagLiteralString, Text: n.From.Literal.(string)}
		}
		return &HNode{Tag: TagImport, Text: n.Name.Lexeme, Kids: []*HNode{from}}
	case *compiler.Repeat:
		return &HNode{Tag: TagRepeat, Kids: []*HNode{normalizeExpr(n.Count), normalizeStmt(n.Body)}}
	case *compiler.Return:
		return &HNode{Tag: TagReturn, Kids: []*HNode{optExpr(n.Value)}}
	case *compiler.VarDecl:
		return &HNode{Tag: TagVarDecl, Text: n.Name.Lexeme, Kids: []*HNode{optExpr(n.Init)}}
	case *compiler.While:
		return &HNode{Tag: TagWhile, Kids: []*HNode{normalizeExpr(n.Cond), normalizeStmt(n.Body)}}
	}
	panic("hash: unknown statement node")
}

func normalizeExpr(e compiler.Expr) *HNode {
	switch n := e.(type) {
	case *compiler.Literal:
		switch n.Kind {
		case compiler.LiteralNumber:
			return &HNode{Tag: TagLiteralNumber, Num: n.Value.(float64)}
		case compiler.LiteralString:
			return &HNode{Tag: TagLiteralString, Text: n.Value.(string)}
		case compiler.LiteralBool:
			if n.Value.(bool) {
				return &HNode{Tag: TagLiteralBool, Num: 1}
			}
			return &HNode{Tag: TagLiteralBool}
		default:
			return &HNode{Tag: TagLiteralNull}
		}
	case *compiler.Variable:
		if n.Name.Type == compiler.TokenThis {
			return &HNode{Tag: TagThis}
		}
		return &HNode{Tag: TagVariable, Text: n.Name.Lexeme}
	case *compiler.Assign:
		return &HNode{Tag: TagAssign, Text: n.Name.Lexeme, Num: float64(n.Op), Kids: []*HNode{optExpr(n.Value)}}
	case *compiler.Get:
		return &HNode{Tag: TagGet, Text: n.Name.Lexeme, Kids: []*HNode{normalizeExpr(n.Object)}}
	case *compiler.Set:
		return &HNode{Tag: TagSet, Text: n.Name.Lexeme, Num: float64(n.Op), Kids: []*HNode{
			normalizeExpr(n.Object), optExpr(n.Value),
		}}
	case *compiler.Binary:
		return &HNode{Tag: TagBinary, Text: n.Operator.Lexeme, Kids: []*HNode{
			normalizeExpr(n.Left), normalizeExpr(n.Right),
		}}
	case *compiler.Logical:
		return &HNode{Tag: TagLogical, Text: n.Operator.Lexeme, Kids: []*HNode{
			normalizeExpr(n.Left), normalizeExpr(n.Right),
		}}
	case *compiler.Unary:
		return &HNode{Tag: TagUnary, Text: n.Operator.Lexeme, Kids: []*HNode{normalizeExpr(n.Right)}}
	case *compiler.Call:
		kids := []*HNode{normalizeExpr(n.Callee)}
		for _, a := range n.Args {
			kids = append(kids, normalizeExpr(a))
		}
		return &HNode{Tag: TagCall, Kids: kids}
	case *compiler.Grouping:
		return &HNode{Tag: TagGrouping, Kids: []*HNode{normalizeExpr(n.Inner)}}
	case *compiler.Index:
		return &HNode{Tag: TagIndex, Kids: []*HNode{normalizeExpr(n.Object), normalizeExpr(n.Index)}}
	case *compiler.SetIndex:
		return &HNode{Tag: TagSetIndex, Num: float64(n.Op), Kids: []*HNode{
			normalizeExpr(n.Object), normalizeExpr(n.Index), optExpr(n.Value),
		}}
	case *compiler.ListLiteral:
		kids := make([]*HNode, 0, len(n.Elements))
		for _, el := range n.Elements {
			kids = append(kids, normalizeExpr(el))
		}
		return &HNode{Tag: TagList, Kids: kids}
	case *compiler.Dict:
		kids := make([]*HNode, 0, 2*len(n.Keys))
		for i := range n.Keys {
			kids = append(kids, normalizeExpr(n.Keys[i]), normalizeExpr(n.Values[i]))
		}
		return &HNode{Tag: TagDict, Kids: kids}
	}
	panic("hash: unknown expression node")
}
