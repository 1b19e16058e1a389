package parser

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/dshills/gatestub/pkg/types"
)

// lowerBlock lowers the statements directly under a module or block node
func lowerBlock(n *sitter.Node, src []byte) []types.Stmt {
	stmts := make([]types.Stmt, 0, n.NamedChildCount())
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		switch child.Type() {
		case "comment":
			continue
		case "case_clause":
			// match arms sit directly in the match body
			stmts = append(stmts, nestedStmts(child, src)...)
			continue
		}
		stmts = append(stmts, lowerStmt(child, src))
	}
	return stmts
}

func lowerStmt(n *sitter.Node, src []byte) types.Stmt {
	line := int(n.StartPoint().Row) + 1

	switch n.Type() {
	case "expression_statement":
		if n.NamedChildCount() == 1 {
			expr := n.NamedChild(0)
			switch expr.Type() {
			case "assignment":
				return lowerAssign(expr, src, line)
			case "augmented_assignment":
				return lowerAugAssign(expr, src, line)
			}
		}
	case "for_statement", "while_statement":
		return types.Stmt{Kind: types.StmtLoop, Line: line, Body: nestedStmts(n, src)}
	case "if_statement", "match_statement":
		return types.Stmt{Kind: types.StmtConditional, Line: line, Body: nestedStmts(n, src)}
	case "try_statement", "with_statement":
		return types.Stmt{Kind: types.StmtBlock, Line: line, Body: nestedStmts(n, src)}
	case "function_definition", "class_definition", "decorated_definition":
		return types.Stmt{Kind: types.StmtDefinition, Line: line}
	}
	return types.Stmt{Kind: types.StmtOther, Line: line}
}

// nestedStmts collects the statements of every block of a compound
// statement, including elif/else/except/finally/case branches, in source order.
func nestedStmts(n *sitter.Node, src []byte) []types.Stmt {
	var out []types.Stmt
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		switch {
		case child.Type() == "block":
			out = append(out, lowerBlock(child, src)...)
		case strings.HasSuffix(child.Type(), "_clause"):
			out = append(out, nestedStmts(child, src)...)
		}
	}
	return out
}

func lowerAssign(n *sitter.Node, src []byte, line int) types.Stmt {
	st := types.Stmt{Kind: types.StmtAssign, Line: line}

	// a = b = value nests the second assignment in "right"
	for cur := n; cur != nil; {
		if left := cur.ChildByFieldName("left"); left != nil && left.Type() == "identifier" {
			st.Targets = append(st.Targets, left.Content(src))
		}
		if cur.ChildByFieldName("type") != nil {
			st.Annotated = true
		}

		right := cur.ChildByFieldName("right")
		if right == nil {
			break
		}
		if right.Type() == "assignment" {
			cur = right
			continue
		}
		st.Value = lowerExpr(right, src)
		break
	}
	return st
}

func lowerAugAssign(n *sitter.Node, src []byte, line int) types.Stmt {
	st := types.Stmt{Kind: types.StmtAugAssign, Line: line}
	if left := n.ChildByFieldName("left"); left != nil && left.Type() == "identifier" {
		st.Targets = []string{left.Content(src)}
	}
	if op := n.ChildByFieldName("operator"); op != nil {
		st.Op = op.Content(src)
	}
	if right := n.ChildByFieldName("right"); right != nil {
		st.Value = lowerExpr(right, src)
	}
	return st
}

func lowerExpr(n *sitter.Node, src []byte) types.Expr {
	switch n.Type() {
	case "string":
		if s, ok := stringNodeValue(n, src); ok {
			return types.Expr{Kind: types.ExprString, Value: s}
		}
	case "concatenated_string":
		var b strings.Builder
		for i := 0; i < int(n.NamedChildCount()); i++ {
			part := n.NamedChild(i)
			if part.Type() == "comment" {
				continue
			}
			s, ok := stringNodeValue(part, src)
			if !ok {
				return types.Expr{Kind: types.ExprOther}
			}
			b.WriteString(s)
		}
		return types.Expr{Kind: types.ExprString, Value: b.String()}
	case "list":
		return types.Expr{Kind: types.ExprList, Elts: lowerElements(n, src)}
	case "tuple", "expression_list":
		return types.Expr{Kind: types.ExprTuple, Elts: lowerElements(n, src)}
	case "parenthesized_expression":
		if inner := firstNamed(n); inner != nil {
			return lowerExpr(inner, src)
		}
	}
	return types.Expr{Kind: types.ExprOther}
}

func lowerElements(n *sitter.Node, src []byte) []types.Expr {
	elts := make([]types.Expr, 0, n.NamedChildCount())
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child.Type() == "comment" {
			continue
		}
		elts = append(elts, lowerExpr(child, src))
	}
	return elts
}

func firstNamed(n *sitter.Node) *sitter.Node {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if child := n.NamedChild(i); child.Type() != "comment" {
			return child
		}
	}
	return nil
}

// stringNodeValue decodes a string literal node. f-strings and bytes are
// not static text and report false.
func stringNodeValue(n *sitter.Node, src []byte) (string, bool) {
	if n.Type() != "string" {
		return "", false
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if n.NamedChild(i).Type() == "interpolation" {
			return "", false
		}
	}
	return DecodeStringLiteral(n.Content(src))
}
