package cpu

import (
	"fmt"
	"regexp"
	"slices"
)

// ExprKind is the type of an expression node.
//
//go:generate go tool stringer -linecomment -type=ExprKind
type ExprKind int

const (
	EXPR_CONSTANT   = ExprKind(0) // constant
	EXPR_IDENTIFIER = ExprKind(1) // identifier
	EXPR_ADD        = ExprKind(2) // +
	EXPR_SUB        = ExprKind(3) // -
	EXPR_MUL        = ExprKind(4) // *
	EXPR_DIV        = ExprKind(5) // /
)

// priority of each operator. Leaves have none.
var exprPriority = map[ExprKind]int{
	EXPR_ADD: 1,
	EXPR_SUB: 1,
	EXPR_MUL: 2,
	EXPR_DIV: 2,
}

var exprOperator = map[string]ExprKind{
	"+": EXPR_ADD,
	"-": EXPR_SUB,
	"*": EXPR_MUL,
	"/": EXPR_DIV,
}

// IsOperator returns true for the binary operators.
func (kind ExprKind) IsOperator() bool {
	return kind >= EXPR_ADD && kind <= EXPR_DIV
}

// ExprNode is a single node of an expression arena.
type ExprNode struct {
	Kind  ExprKind
	Value uint16 // Value of an EXPR_CONSTANT.
	Name  string // Name of an EXPR_IDENTIFIER.
	Left  int    // Index of the left operand, or -1.
	Right int    // Index of the right operand, or -1.

	bound bool // Node has been attached to an operator.
}

// Expression is a constant expression tree, stored as an arena of nodes.
type Expression struct {
	Nodes []ExprNode
	Root  int
}

// SymbolLookup resolves an identifier to its current address.
type SymbolLookup func(name string) (address uint16, ok bool)

var reIdentifier = regexp.MustCompile(`^[a-zA-Z_]\w*$`)

// exprLeaf converts a token into a leaf node.
func exprLeaf(tok Token) (node ExprNode, ok bool) {
	switch {
	case tok.Kind == TOKEN_NUMBER:
		node = ExprNode{Kind: EXPR_CONSTANT, Value: uint16(tok.Value), Left: -1, Right: -1}
		ok = true
	case tok.Kind == TOKEN_WORD && reIdentifier.MatchString(tok.Text):
		node = ExprNode{Kind: EXPR_IDENTIFIER, Name: tok.Text, Left: -1, Right: -1}
		ok = true
	}
	return
}

// exprOp converts a token into an operator node.
func exprOp(tok Token) (node ExprNode, ok bool) {
	if tok.Kind != TOKEN_PUNCT && tok.Kind != TOKEN_WORD {
		return
	}
	kind, ok := exprOperator[tok.Text]
	if ok {
		node = ExprNode{Kind: kind, Left: -1, Right: -1}
	}
	return
}

// ParseExpression parses the longest alternating run of leaves and
// operators starting at tokens[t], on the same line as tokens[t].
//
// Returns the expression, and the index of the first unconsumed token.
func ParseExpression(tokens []Token, t int) (expr *Expression, next int, err error) {
	next = t
	if t >= len(tokens) {
		err = ErrExpressionMissing
		return
	}

	lineno := tokens[t].LineNo
	expr = &Expression{}

	for ; next < len(tokens) && tokens[next].LineNo == lineno; next++ {
		var node ExprNode
		var ok bool
		if len(expr.Nodes)%2 == 0 {
			node, ok = exprLeaf(tokens[next])
		} else {
			node, ok = exprOp(tokens[next])
		}
		if !ok {
			break
		}
		expr.Nodes = append(expr.Nodes, node)
	}

	// A trailing operator has no right operand, leave it unconsumed.
	if len(expr.Nodes)%2 == 0 && len(expr.Nodes) > 0 {
		expr.Nodes = expr.Nodes[:len(expr.Nodes)-1]
		next--
	}

	if len(expr.Nodes) == 0 {
		expr = nil
		err = ErrExpressionMissing
		return
	}

	err = expr.reduce()
	if err != nil {
		expr = nil
		return
	}

	return
}

// complete returns true if the node can be attached to a parent.
func (expr *Expression) complete(n int) bool {
	node := &expr.Nodes[n]
	return !node.Kind.IsOperator() || (node.Left >= 0 && node.Right >= 0)
}

// lastParent finds the nearest incomplete operator before n.
func (expr *Expression) lastParent(n int) int {
	for o := n - 1; o >= 0; o-- {
		if !expr.complete(o) {
			return o
		}
	}
	return -1
}

// nextParent finds the nearest incomplete operator after n.
func (expr *Expression) nextParent(n int) int {
	for o := n + 1; o < len(expr.Nodes); o++ {
		if !expr.complete(o) {
			return o
		}
	}
	return -1
}

// reduce attaches every node to its parent operator.
//
// Each pass attaches every unattached leaf and every unattached completed
// operator to the neighbouring incomplete operator of higher priority. On equal
// priority the left neighbour wins, so chains of equal priority associate
// to the left.
func (expr *Expression) reduce() (err error) {
	expr.Root = 0

	limit := len(expr.Nodes)*len(expr.Nodes) + 1
	for changed := true; changed; limit-- {
		if limit == 0 {
			err = ErrExpressionInvalid
			return
		}

		changed = false
		for o := range expr.Nodes {
			node := &expr.Nodes[o]
			if !expr.complete(o) || node.bound {
				continue
			}

			left := expr.lastParent(o)
			right := expr.nextParent(o)

			var leftPriority, rightPriority int
			if left >= 0 {
				leftPriority = exprPriority[expr.Nodes[left].Kind]
			}
			if right >= 0 {
				rightPriority = exprPriority[expr.Nodes[right].Kind]
			}

			if leftPriority == 0 && rightPriority == 0 {
				continue
			}

			if leftPriority == rightPriority {
				leftPriority++
			}

			parent := right
			if leftPriority > rightPriority {
				parent = left
				expr.Nodes[left].Right = o
			} else {
				expr.Nodes[right].Left = o
			}

			node.bound = true

			if expr.Root == o {
				expr.Root = parent
			}

			changed = true
		}
	}

	return
}

// IsTrivial returns true if the expression has no identifiers.
func (expr *Expression) IsTrivial() bool {
	return !slices.ContainsFunc(expr.Nodes, func(node ExprNode) bool {
		return node.Kind == EXPR_IDENTIFIER
	})
}

// Identifiers returns the identifier names in the expression.
func (expr *Expression) Identifiers() (names []string) {
	for _, node := range expr.Nodes {
		if node.Kind == EXPR_IDENTIFIER && !slices.Contains(names, node.Name) {
			names = append(names, node.Name)
		}
	}
	return
}

// Negate replaces the expression with its negation.
func (expr *Expression) Negate() {
	zero := len(expr.Nodes)
	expr.Nodes = append(expr.Nodes,
		ExprNode{Kind: EXPR_CONSTANT, Left: -1, Right: -1, bound: true},
		ExprNode{Kind: EXPR_SUB, Left: zero, Right: expr.Root},
	)
	expr.Root = zero + 1
}

// Evaluate computes the 16-bit value of the expression.
//
// Identifiers not known to lookup evaluate to 0, and are returned in
// undefined.
func (expr *Expression) Evaluate(lookup SymbolLookup) (value uint16, undefined []string) {
	var eval func(n int) uint16
	eval = func(n int) uint16 {
		if n < 0 || n >= len(expr.Nodes) {
			return 0
		}
		node := &expr.Nodes[n]
		switch node.Kind {
		case EXPR_CONSTANT:
			return node.Value
		case EXPR_IDENTIFIER:
			if lookup != nil {
				if address, ok := lookup(node.Name); ok {
					return address
				}
			}
			if !slices.Contains(undefined, node.Name) {
				undefined = append(undefined, node.Name)
			}
			return 0
		}

		left := eval(node.Left)
		right := eval(node.Right)
		switch node.Kind {
		case EXPR_ADD:
			return left + right
		case EXPR_SUB:
			return left - right
		case EXPR_MUL:
			return left * right
		case EXPR_DIV:
			if right == 0 {
				return 0
			}
			return left / right
		}
		return 0
	}

	value = eval(expr.Root)

	return
}

// String returns the expression in infix form, with inner operations
// parenthesized.
func (expr *Expression) String() string {
	var str func(n int, inner bool) string
	str = func(n int, inner bool) string {
		if n < 0 || n >= len(expr.Nodes) {
			return "?"
		}
		node := &expr.Nodes[n]
		switch node.Kind {
		case EXPR_CONSTANT:
			return fmt.Sprintf("%d", node.Value)
		case EXPR_IDENTIFIER:
			return node.Name
		}
		out := fmt.Sprintf("%v %v %v", str(node.Left, true), node.Kind, str(node.Right, true))
		if inner {
			out = "(" + out + ")"
		}
		return out
	}

	return str(expr.Root, false)
}
