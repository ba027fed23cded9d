// Package codec serializes projects and session state as msgpack.
package codec

import (
	"errors"
	"fmt"
	"time"

	"github.com/verte-zerg/tabwise/internal/model"
)

// ErrCorrupt is returned when a payload cannot be decoded.
var ErrCorrupt = errors.New("corrupt payload")

const formatVersion = 1

// State is the persisted session: working set, backups and project binding.
type State struct {
	Tables        []model.NamedTable
	Backups       []model.NamedTable
	ActiveProject string
	AutoSave      bool
}

// EncodeProject serializes p.
func EncodeProject(p model.Project) ([]byte, error) {
	doc := map[string]interface{}{
		"v":           formatVersion,
		"id":          p.ID,
		"name":        p.Name,
		"description": p.Description,
		"created_at":  p.CreatedAt.UnixNano(),
		"modified_at": p.ModifiedAt.UnixNano(),
		"datasets":    encodeTables(p.Datasets),
	}
	return encode(doc)
}

// DecodeProject parses a payload produced by EncodeProject.
func DecodeProject(data []byte) (model.Project, error) {
	doc, err := decodeDoc(data)
	if err != nil {
		return model.Project{}, err
	}
	var p model.Project
	r := reader{doc: doc}
	p.ID = r.str("id")
	p.Name = r.str("name")
	p.Description = r.str("description")
	p.CreatedAt = r.timestamp("created_at")
	p.ModifiedAt = r.timestamp("modified_at")
	p.Datasets = r.tables("datasets")
	if r.err != nil {
		return model.Project{}, r.err
	}
	return p, nil
}

// EncodeState serializes s.
func EncodeState(s State) ([]byte, error) {
	doc := map[string]interface{}{
		"v":              formatVersion,
		"tables":         encodeTables(s.Tables),
		"backups":        encodeTables(s.Backups),
		"active_project": s.ActiveProject,
		"auto_save":      s.AutoSave,
	}
	return encode(doc)
}

// DecodeState parses a payload produced by EncodeState.
func DecodeState(data []byte) (State, error) {
	doc, err := decodeDoc(data)
	if err != nil {
		return State{}, err
	}
	var s State
	r := reader{doc: doc}
	s.Tables = r.tables("tables")
	s.Backups = r.tables("backups")
	s.ActiveProject = r.str("active_project")
	s.AutoSave = r.boolean("auto_save")
	if r.err != nil {
		return State{}, r.err
	}
	return s, nil
}

func encode(doc map[string]interface{}) ([]byte, error) {
	var enc msgpackEncoder
	if err := enc.encodeValue(doc); err != nil {
		return nil, err
	}
	return enc.buf.Bytes(), nil
}

func decodeDoc(data []byte) (map[string]interface{}, error) {
	raw, err := decodeMsgpack(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	doc, ok := raw.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: top level is %T", ErrCorrupt, raw)
	}
	if v, _ := doc["v"].(int64); v != formatVersion {
		return nil, fmt.Errorf("%w: unsupported format version %v", ErrCorrupt, doc["v"])
	}
	return doc, nil
}

func encodeTables(tables []model.NamedTable) []interface{} {
	out := make([]interface{}, len(tables))
	for i, nt := range tables {
		var cols []interface{}
		if nt.Table != nil {
			cols = make([]interface{}, len(nt.Table.Columns))
			for c, col := range nt.Table.Columns {
				cols[c] = encodeColumn(col)
			}
		}
		out[i] = map[string]interface{}{
			"name":    nt.Name,
			"columns": cols,
		}
	}
	return out
}

func encodeColumn(col *model.Column) map[string]interface{} {
	cells := make([]interface{}, len(col.Cells))
	for i, cell := range col.Cells {
		switch cell.Kind {
		case model.CellNumber:
			cells[i] = cell.Num
		case model.CellText:
			cells[i] = cell.Text
		default:
			cells[i] = nil
		}
	}
	return map[string]interface{}{
		"name":  col.Name,
		"type":  int64(col.Type),
		"cells": cells,
	}
}

// reader extracts typed fields from a decoded map, keeping the first error.
type reader struct {
	doc map[string]interface{}
	err error
}

func (r *reader) fail(format string, args ...interface{}) {
	if r.err == nil {
		r.err = fmt.Errorf("%w: "+format, append([]interface{}{ErrCorrupt}, args...)...)
	}
}

func (r *reader) str(key string) string {
	v, ok := r.doc[key].(string)
	if !ok {
		r.fail("field %q is %T, want string", key, r.doc[key])
	}
	return v
}

func (r *reader) integer(key string) int64 {
	v, ok := r.doc[key].(int64)
	if !ok {
		r.fail("field %q is %T, want integer", key, r.doc[key])
	}
	return v
}

func (r *reader) boolean(key string) bool {
	v, ok := r.doc[key].(bool)
	if !ok {
		r.fail("field %q is %T, want bool", key, r.doc[key])
	}
	return v
}

func (r *reader) timestamp(key string) time.Time {
	return time.Unix(0, r.integer(key)).UTC()
}

func (r *reader) array(key string) []interface{} {
	switch v := r.doc[key].(type) {
	case []interface{}:
		return v
	case nil:
		return nil
	default:
		r.fail("field %q is %T, want array", key, v)
		return nil
	}
}

func (r *reader) tables(key string) []model.NamedTable {
	items := r.array(key)
	out := make([]model.NamedTable, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]interface{})
		if !ok {
			r.fail("table entry is %T", item)
			return nil
		}
		sub := reader{doc: m}
		name := sub.str("name")
		tbl := &model.Table{}
		for _, rawCol := range sub.array("columns") {
			col := sub.column(rawCol)
			if sub.err != nil {
				break
			}
			if err := tbl.AddColumn(col); err != nil {
				sub.fail("table %q: %v", name, err)
				break
			}
		}
		if sub.err != nil {
			if r.err == nil {
				r.err = sub.err
			}
			return nil
		}
		out = append(out, model.NamedTable{Name: name, Table: tbl})
	}
	return out
}

func (r *reader) column(raw interface{}) *model.Column {
	m, ok := raw.(map[string]interface{})
	if !ok {
		r.fail("column entry is %T", raw)
		return nil
	}
	sub := reader{doc: m}
	col := &model.Column{Name: sub.str("name")}
	switch typ := sub.integer("type"); typ {
	case int64(model.TextType), int64(model.NumericType):
		col.Type = model.ColumnType(typ)
	default:
		sub.fail("column %q has unknown type %d", col.Name, typ)
	}
	rawCells := sub.array("cells")
	col.Cells = make([]model.Cell, len(rawCells))
	for i, v := range rawCells {
		switch val := v.(type) {
		case nil:
			col.Cells[i] = model.Null()
		case float64:
			col.Cells[i] = model.Number(val)
		case int64:
			col.Cells[i] = model.Number(float64(val))
		case string:
			col.Cells[i] = model.Text(val)
		default:
			sub.fail("column %q cell %d is %T", col.Name, i, v)
		}
	}
	if sub.err != nil {
		r.err = sub.err
		return nil
	}
	return col
}
