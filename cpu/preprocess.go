package cpu

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// StripComments removes block comments, from '>' up to and including the
// next '<', and line comments, from '~' to the end of the line.
//
// Newlines inside block comments are kept, so line numbers are unchanged.
func StripComments(text string) string {
	var out strings.Builder
	out.Grow(len(text))

	for n := 0; n < len(text); n++ {
		switch text[n] {
		case '>':
			end := strings.IndexByte(text[n:], '<')
			if end < 0 {
				end = len(text)
			} else {
				end += n
			}
			out.WriteString(strings.Repeat("\n", strings.Count(text[n:end], "\n")))
			n = end
		case '~':
			end := strings.IndexByte(text[n:], '\n')
			if end < 0 {
				n = len(text)
			} else {
				n += end - 1
			}
		default:
			out.WriteByte(text[n])
		}
	}

	return out.String()
}

// reParenEval matches $(...), with one level of nested parenthesis.
var reParenEval = regexp.MustCompile(`\$\(([^()]|\([^()]*\))*\)`)

// predeclared returns the integer predefines as Starlark values.
func (asm *Assembler) predeclared() (pred starlark.StringDict) {
	pred = starlark.StringDict{}
	for key, str := range asm.predefine {
		value, err := strconv.ParseInt(str, 0, 64)
		if err != nil {
			// Ignore non-integer predefines.
			continue
		}
		pred[key] = starlark.MakeInt64(value)
	}
	return
}

// parenEval does compile-time $(...) evaluations
func (asm *Assembler) parenEval(expr string, pred starlark.StringDict) (value int64, err error) {
	thread := starlark.Thread{Name: "mc3"}
	opts := syntax.FileOptions{}
	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrParseExpression(expr), err)
		return
	}
	st_int, ok := dict["rc"].(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	value, ok = st_int.Int64()
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	return
}

// Preprocess strips comments from assembly text, and replaces every $(...)
// with the decimal value of its Starlark expression.
//
// The expressions may use the integer predefines, and LINENO.
func (asm *Assembler) Preprocess(text string) (out string, err error) {
	lines := strings.Split(StripComments(text), "\n")

	pred := asm.predeclared()
	for n, line := range lines {
		if !strings.Contains(line, "$(") {
			continue
		}

		pred["LINENO"] = starlark.MakeInt(n + 1)
		lines[n] = reParenEval.ReplaceAllStringFunc(line, func(str string) string {
			value, _err := asm.parenEval(str[2:len(str)-1], pred)
			if _err != nil {
				if err == nil {
					err = &ErrSyntax{LineNo: n + 1, Token: str, Err: _err}
				}
				return str
			}
			// Negative values become an explicit subtraction from zero.
			if value < 0 {
				return fmt.Sprintf("0 - %d", -value)
			}
			return fmt.Sprintf("%d", value)
		})
		if err != nil {
			return
		}
	}

	out = strings.Join(lines, "\n")

	return
}
