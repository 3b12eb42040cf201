package cpu

import (
	"errors"

	"github.com/ezrec/mc3/translate"
)

var f = translate.From

var (
	// Syntax errors
	ErrRegisterInvalid   = errors.New(f("register invalid"))
	ErrRegisterMissing   = errors.New(f("register missing"))
	ErrVarSize           = errors.New(f("var size syntax"))
	ErrVarName           = errors.New(f("var name missing"))
	ErrOperandUnexpected = errors.New(f("unexpected operand"))
	ErrOperandMissing    = errors.New(f("operand missing"))
	ErrExpressionMissing = errors.New(f("expression missing"))
	ErrExpressionInvalid = errors.New(f("expression invalid"))
	ErrMemoryOperand     = errors.New(f("memory operand invalid"))
	ErrSymbolDuplicate   = errors.New(f("symbol duplicated"))

	// Encoding errors
	ErrUnsupportedEncoding = errors.New(f("unsupported multi-word encoding"))
	ErrRelaxationDiverged  = errors.New(f("relaxation did not converge"))
	ErrImageOverflow       = errors.New(f("program image exceeds 64KiB"))

	// Degradations, reported as warnings
	ErrValueTruncated   = errors.New(f("value truncated"))
	ErrCursorAligned    = errors.New(f("cursor aligned"))
	ErrForwardDirective = errors.New(f("directive uses an unresolved symbol"))
)

// ErrSymbolUndefined is reported when an identifier has no symbol.
type ErrSymbolUndefined string

func (err ErrSymbolUndefined) Error() string {
	return f("symbol %v undefined", string(err))
}

// Is matches any undefined symbol.
func (err ErrSymbolUndefined) Is(target error) (ok bool) {
	_, ok = target.(ErrSymbolUndefined)
	return
}

// ErrSymbolRedefined is reported when a symbol replaces an earlier definition.
type ErrSymbolRedefined string

func (err ErrSymbolRedefined) Error() string {
	return f("symbol %v redefined", string(err))
}

// ErrTokenUnrecognized is reported for a skipped token.
type ErrTokenUnrecognized string

func (err ErrTokenUnrecognized) Error() string {
	return f("token '%v' unrecognized", string(err))
}

// ErrEncoding reports a value the materializer can not express.
type ErrEncoding struct {
	Opcode Opcode
	Value  uint16
}

func (err ErrEncoding) Error() string {
	return f("%v value 0x%04x needs %v", err.Opcode.String(), err.Value, ErrUnsupportedEncoding)
}

func (err ErrEncoding) Unwrap() error {
	return ErrUnsupportedEncoding
}

// ErrSyntax locates an error in the assembly source.
type ErrSyntax struct {
	LineNo int
	Token  string
	Err    error
}

func (err ErrSyntax) Error() string {
	return f("line %d '%v' %v", err.LineNo, err.Token, err.Err)
}

func (err ErrSyntax) Unwrap() error {
	return err.Err
}

// ErrParseNumber is returned for a malformed numeric literal.
type ErrParseNumber string

func (err ErrParseNumber) Error() string {
	return f("'%v' is not a number", string(err))
}

// ErrParseExpression is returned when a $() evaluation fails.
type ErrParseExpression string

func (err ErrParseExpression) Error() string {
	return f("$(%v) is not a valid expression", string(err))
}

// Warning is a non-fatal diagnostic recorded during assembly.
type Warning struct {
	LineNo int
	Err    error
}

func (w Warning) Error() string {
	return f("line %d: warning: %v", w.LineNo, w.Err)
}

func (w Warning) Unwrap() error {
	return w.Err
}
