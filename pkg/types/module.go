package types

// StmtKind tags the statements of a lowered module
type StmtKind int

const (
	StmtOther       StmtKind = iota
	StmtAssign               // a = ..., a = b = ..., a: T = ...
	StmtAugAssign            // a += ...
	StmtLoop                 // for, while
	StmtConditional          // if, match
	StmtBlock                // try, with
	StmtDefinition           // def, class (bodies are not lowered)
)

var stmtKindNames = map[StmtKind]string{
	StmtOther:       "other",
	StmtAssign:      "assign",
	StmtAugAssign:   "aug_assign",
	StmtLoop:        "loop",
	StmtConditional: "conditional",
	StmtBlock:       "block",
	StmtDefinition:  "definition",
}

func (k StmtKind) String() string {
	if name, ok := stmtKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ExprKind tags the values the pipeline can read statically
type ExprKind int

const (
	ExprOther ExprKind = iota
	ExprString
	ExprList
	ExprTuple
)

// Expr is a lowered right-hand side
type Expr struct {
	Kind  ExprKind
	Value string // Decoded literal for ExprString
	Elts  []Expr // Elements for ExprList and ExprTuple
}

// IsSequence reports whether e is a list or tuple literal
func (e Expr) IsSequence() bool {
	return e.Kind == ExprList || e.Kind == ExprTuple
}

// Strings returns the string elements of a sequence literal in source order.
// Elements that are not plain string literals are skipped.
func (e Expr) Strings() []string {
	if !e.IsSequence() {
		return nil
	}
	out := make([]string, 0, len(e.Elts))
	for _, elt := range e.Elts {
		if elt.Kind == ExprString {
			out = append(out, elt.Value)
		}
	}
	return out
}

// Stmt is one lowered statement
type Stmt struct {
	Kind      StmtKind
	Line      int      // 1-based
	Targets   []string // Simple name targets, outermost first
	Annotated bool     // Assignment carries a type annotation
	Op        string   // Operator of an augmented assignment, e.g. "+="
	Value     Expr
	Body      []Stmt // Nested statements of loops, conditionals and blocks, all branches
}

// Binds reports whether the statement assigns to name
func (s Stmt) Binds(name string) bool {
	if s.Kind != StmtAssign && s.Kind != StmtAugAssign {
		return false
	}
	for _, t := range s.Targets {
		if t == name {
			return true
		}
	}
	return false
}

// Module is a parsed and lowered source file
type Module struct {
	Path string
	Body []Stmt
}

// Walk visits statements breadth-first: all top-level statements, then the
// statements nested in loops, conditionals and blocks, level by level.
// Definition bodies are never visited. Returning false stops the walk.
func (m *Module) Walk(fn func(Stmt) bool) {
	level := m.Body
	for len(level) > 0 {
		var next []Stmt
		for _, st := range level {
			if !fn(st) {
				return
			}
			next = append(next, st.Body...)
		}
		level = next
	}
}
