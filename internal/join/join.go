// Package join combines two tables on a key column.
package join

import (
	"errors"
	"fmt"
	"strings"

	"github.com/verte-zerg/tabwise/internal/model"
)

// Kind selects which unmatched rows survive a join.
type Kind uint8

const (
	Inner Kind = iota
	Left
	Right
	Outer
)

var kindNames = map[Kind]string{Inner: "inner", Left: "left", Right: "right", Outer: "outer"}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// ParseKind accepts inner, left, right or outer.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return Inner, fmt.Errorf("unknown join kind %q", s)
}

// ErrNoSuchKey is returned when a key column is missing from its table.
var ErrNoSuchKey = errors.New("join key not found")

const (
	leftSuffix  = "_x"
	rightSuffix = "_y"
)

// Join matches rows whose key cells render to the same text. Null keys never
// match. Rows follow left order; with Right, right order; with Outer,
// unmatched right rows are appended after the left rows. When both keys share
// a name the output has a single key column. Other clashing names get the
// _x and _y suffixes.
func Join(left *model.Table, leftKey string, right *model.Table, rightKey string, kind Kind) (*model.Table, error) {
	lk, ok := left.Column(leftKey)
	if !ok {
		return nil, fmt.Errorf("%w: %q in left table", ErrNoSuchKey, leftKey)
	}
	rk, ok := right.Column(rightKey)
	if !ok {
		return nil, fmt.Errorf("%w: %q in right table", ErrNoSuchKey, rightKey)
	}

	rightIndex := map[string][]int{}
	for i, cell := range rk.Cells {
		if cell.IsNull() {
			continue
		}
		key := cell.String()
		rightIndex[key] = append(rightIndex[key], i)
	}

	// Row pairs; -1 marks the missing side.
	var pairs [][2]int
	matchedRight := make([]bool, right.Len())
	if kind == Right {
		leftIndex := map[string][]int{}
		for i, cell := range lk.Cells {
			if !cell.IsNull() {
				leftIndex[cell.String()] = append(leftIndex[cell.String()], i)
			}
		}
		for r, cell := range rk.Cells {
			var matches []int
			if !cell.IsNull() {
				matches = leftIndex[cell.String()]
			}
			if len(matches) == 0 {
				pairs = append(pairs, [2]int{-1, r})
				continue
			}
			for _, l := range matches {
				pairs = append(pairs, [2]int{l, r})
			}
		}
	} else {
		for l, cell := range lk.Cells {
			var matches []int
			if !cell.IsNull() {
				matches = rightIndex[cell.String()]
			}
			if len(matches) == 0 {
				if kind == Left || kind == Outer {
					pairs = append(pairs, [2]int{l, -1})
				}
				continue
			}
			for _, r := range matches {
				pairs = append(pairs, [2]int{l, r})
				matchedRight[r] = true
			}
		}
		if kind == Outer {
			for r, matched := range matchedRight {
				if !matched {
					pairs = append(pairs, [2]int{-1, r})
				}
			}
		}
	}

	sharedKey := leftKey == rightKey
	leftNames := map[string]bool{}
	for _, name := range left.Names() {
		leftNames[name] = true
	}
	rightNames := map[string]bool{}
	for _, name := range right.Names() {
		rightNames[name] = true
	}

	out := &model.Table{}
	for _, col := range left.Columns {
		name := col.Name
		if sharedKey && name == leftKey {
			if err := out.AddColumn(mergedKey(lk, rk, pairs)); err != nil {
				return nil, err
			}
			continue
		}
		if rightNames[name] {
			name += leftSuffix
		}
		if err := out.AddColumn(pick(col, name, pairs, 0)); err != nil {
			return nil, err
		}
	}
	for _, col := range right.Columns {
		name := col.Name
		if sharedKey && name == rightKey {
			continue
		}
		if leftNames[name] {
			name += rightSuffix
		}
		if err := out.AddColumn(pick(col, name, pairs, 1)); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func pick(col *model.Column, name string, pairs [][2]int, side int) *model.Column {
	cells := make([]model.Cell, len(pairs))
	for i, p := range pairs {
		if idx := p[side]; idx >= 0 {
			cells[i] = col.Cells[idx]
		}
	}
	return &model.Column{Name: name, Type: col.Type, Cells: cells}
}

func mergedKey(lk, rk *model.Column, pairs [][2]int) *model.Column {
	typ := lk.Type
	if lk.Type != rk.Type {
		typ = model.TextType
	}
	cells := make([]model.Cell, len(pairs))
	for i, p := range pairs {
		var cell model.Cell
		if p[0] >= 0 {
			cell = lk.Cells[p[0]]
		} else {
			cell = rk.Cells[p[1]]
		}
		if typ == model.TextType && cell.Kind == model.CellNumber {
			cell = model.Text(cell.String())
		}
		cells[i] = cell
	}
	return &model.Column{Name: lk.Name, Type: typ, Cells: cells}
}
