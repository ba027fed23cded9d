package transform

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/verte-zerg/tabwise/internal/model"
)

// ErrInvalidFormula is returned when a formula does not compile.
var ErrInvalidFormula = errors.New("invalid formula")

// Op is a two-column calculation.
type Op uint8

const (
	Sum Op = iota
	Subtract
	Multiply
	Divide
	Concat
)

var opNames = []string{"sum", "subtract", "multiply", "divide", "concat"}

func (op Op) String() string {
	if int(op) < len(opNames) {
		return opNames[op]
	}
	return fmt.Sprintf("Op(%d)", op)
}

// ParseOp accepts sum, subtract, multiply, divide or concat, or the
// symbols + - * / and &.
func ParseOp(s string) (Op, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sum", "add", "+":
		return Sum, nil
	case "subtract", "sub", "-":
		return Subtract, nil
	case "multiply", "mul", "*":
		return Multiply, nil
	case "divide", "div", "/":
		return Divide, nil
	case "concat", "cat", "&":
		return Concat, nil
	default:
		return 0, fmt.Errorf("unknown calculation %q", s)
	}
}

// AddCalculated appends column name computed row by row from columns a and b.
// Arithmetic needs numeric inputs; a null operand or a zero divisor yields
// null. Concat joins the rendered values with sep, nulls rendering empty.
func AddCalculated(t *model.Table, name string, op Op, a, b, sep string) (*model.Table, error) {
	if t.Index(name) >= 0 {
		return nil, fmt.Errorf("%w: %q", ErrColumnExists, name)
	}
	colA, err := column(t, a)
	if err != nil {
		return nil, err
	}
	colB, err := column(t, b)
	if err != nil {
		return nil, err
	}

	cells := make([]model.Cell, t.Len())
	typ := model.NumericType
	if op == Concat {
		typ = model.TextType
		for i := range cells {
			cells[i] = model.Text(colA.Cells[i].String() + sep + colB.Cells[i].String())
		}
	} else {
		for _, col := range []*model.Column{colA, colB} {
			if col.Type != model.NumericType {
				return nil, fmt.Errorf("%w: %q", ErrNotNumeric, col.Name)
			}
		}
		for i := range cells {
			cells[i] = arithmetic(op, colA.Cells[i], colB.Cells[i])
		}
	}

	out := t.Clone()
	if err := out.AddColumn(&model.Column{Name: name, Type: typ, Cells: cells}); err != nil {
		return nil, err
	}
	return out, nil
}

func arithmetic(op Op, a, b model.Cell) model.Cell {
	x, okA := a.Float()
	y, okB := b.Float()
	if !okA || !okB {
		return model.Null()
	}
	var v float64
	switch op {
	case Sum:
		v = x + y
	case Subtract:
		v = x - y
	case Multiply:
		v = x * y
	case Divide:
		if y == 0 {
			return model.Null()
		}
		v = x / y
	}
	return model.Number(v)
}

// Formula is a compiled expression over the columns of one row.
//
// Columns whose names are identifiers are referenced directly (price * qty);
// any column is reachable as col("unit price"). A column named col is only
// reachable through the helper. Null cells are nil, so
// arithmetic on them fails and the row's result is null.
type Formula struct {
	source  string
	program *vm.Program
}

// CompileFormula checks source against the column names of t.
func CompileFormula(t *model.Table, source string) (*Formula, error) {
	if strings.TrimSpace(source) == "" {
		return nil, fmt.Errorf("%w: empty formula", ErrInvalidFormula)
	}
	env := map[string]interface{}{
		"col": func(string) interface{} { return nil },
	}
	for _, name := range t.Names() {
		if name != "col" {
			env[name] = nil
		}
	}
	program, err := expr.Compile(source, expr.Env(env))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormula, err)
	}
	return &Formula{source: source, program: program}, nil
}

func (f *Formula) String() string {
	return f.source
}

// Eval runs the formula over every row of t. Rows that fail at run time
// produce null and are counted.
func (f *Formula) Eval(t *model.Table, name string) (*model.Column, int, error) {
	cells := make([]model.Cell, t.Len())
	failed := 0
	for r := range cells {
		values := make(map[string]interface{}, t.Width())
		for _, col := range t.Columns {
			values[col.Name] = cellValue(col.Cells[r])
		}
		env := make(map[string]interface{}, len(values)+1)
		for k, v := range values {
			env[k] = v
		}
		env["col"] = func(key string) interface{} { return values[key] }

		out, err := expr.Run(f.program, env)
		if err != nil {
			failed++
			continue
		}
		cell, ok := resultCell(out)
		if !ok {
			failed++
			continue
		}
		cells[r] = cell
	}
	return typedColumn(name, cells), failed, nil
}

// AddFormula appends column name computed by the formula source. It returns
// the number of rows whose evaluation failed.
func AddFormula(t *model.Table, name, source string) (*model.Table, int, error) {
	if t.Index(name) >= 0 {
		return nil, 0, fmt.Errorf("%w: %q", ErrColumnExists, name)
	}
	f, err := CompileFormula(t, source)
	if err != nil {
		return nil, 0, err
	}
	col, failed, err := f.Eval(t, name)
	if err != nil {
		return nil, 0, err
	}
	out := t.Clone()
	if err := out.AddColumn(col); err != nil {
		return nil, 0, err
	}
	return out, failed, nil
}

func cellValue(c model.Cell) interface{} {
	switch c.Kind {
	case model.CellNumber:
		return c.Num
	case model.CellText:
		return c.Text
	default:
		return nil
	}
}

func resultCell(v interface{}) (model.Cell, bool) {
	switch val := v.(type) {
	case nil:
		return model.Null(), true
	case float64:
		if math.IsInf(val, 0) || math.IsNaN(val) {
			return model.Null(), true
		}
		return model.Number(val), true
	case float32:
		return resultCell(float64(val))
	case int:
		return model.Number(float64(val)), true
	case int64:
		return model.Number(float64(val)), true
	case string:
		return model.Text(val), true
	case bool:
		return model.Text(strconv.FormatBool(val)), true
	default:
		return model.Cell{}, false
	}
}

// typedColumn tags the column numeric when every non-null cell is a number.
func typedColumn(name string, cells []model.Cell) *model.Column {
	numeric := true
	for _, cell := range cells {
		if cell.Kind == model.CellText {
			numeric = false
			break
		}
	}
	col := &model.Column{Name: name, Type: model.NumericType, Cells: cells}
	if !numeric {
		toText(col)
	}
	return col
}
