package codec

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/tabwise/internal/model"
)

func sampleTable() *model.Table {
	long := strings.Repeat("é", 200)
	return model.MustTable(
		model.NewNumericColumn("n", 1, -2.5, math.MaxInt64, 0),
		&model.Column{Name: "t", Type: model.TextType, Cells: []model.Cell{
			model.Text("a"), model.Null(), model.Text(long), model.Text(""),
		}},
	)
}

func TestProjectRoundTrip(t *testing.T) {
	created := time.Date(2024, 3, 1, 10, 0, 0, 123, time.UTC)
	p := model.Project{
		ID:          "7d1c1c59-4b7e-4c9f-a1de-9c1c2c1f0a11",
		Name:        "sales",
		Description: "quarterly",
		Datasets: []model.NamedTable{
			{Name: "q1", Table: sampleTable()},
			{Name: "empty", Table: &model.Table{}},
		},
		CreatedAt:  created,
		ModifiedAt: created.Add(time.Hour),
	}
	data, err := EncodeProject(p)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeProject(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ID != p.ID || got.Name != p.Name || got.Description != p.Description {
		t.Fatalf("unexpected header: %+v", got)
	}
	if !got.CreatedAt.Equal(p.CreatedAt) || !got.ModifiedAt.Equal(p.ModifiedAt) {
		t.Fatalf("unexpected timestamps: %v %v", got.CreatedAt, got.ModifiedAt)
	}
	if len(got.Datasets) != 2 || got.Datasets[0].Name != "q1" || got.Datasets[1].Name != "empty" {
		t.Fatalf("unexpected datasets: %+v", got.Datasets)
	}
	if !got.Datasets[0].Table.Equal(p.Datasets[0].Table) {
		t.Fatalf("table did not round-trip")
	}
	if got.Datasets[1].Table.Width() != 0 {
		t.Fatalf("expected empty table")
	}
}

func TestStateRoundTrip(t *testing.T) {
	s := State{
		Tables:        []model.NamedTable{{Name: "a", Table: sampleTable()}},
		Backups:       []model.NamedTable{{Name: "a", Table: sampleTable().Empty()}},
		ActiveProject: "sales",
		AutoSave:      true,
	}
	data, err := EncodeState(s)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeState(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ActiveProject != "sales" || !got.AutoSave {
		t.Fatalf("unexpected state header: %+v", got)
	}
	if len(got.Tables) != 1 || !got.Tables[0].Table.Equal(s.Tables[0].Table) {
		t.Fatalf("tables did not round-trip")
	}
	if len(got.Backups) != 1 || !got.Backups[0].Table.Equal(s.Backups[0].Table) {
		t.Fatalf("backups did not round-trip")
	}
}

func TestEncodingIsDeterministic(t *testing.T) {
	p := model.Project{Name: "x", Datasets: []model.NamedTable{{Name: "t", Table: sampleTable()}}, CreatedAt: time.Unix(1, 0), ModifiedAt: time.Unix(2, 0)}
	a, _ := EncodeProject(p)
	b, _ := EncodeProject(p)
	if string(a) != string(b) {
		t.Fatalf("encoding is not deterministic")
	}
}

func TestDecodeRejectsCorruptInput(t *testing.T) {
	valid, err := EncodeProject(model.Project{Name: "x", CreatedAt: time.Unix(1, 0), ModifiedAt: time.Unix(1, 0)})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	cases := map[string][]byte{
		"empty":     nil,
		"truncated": valid[:len(valid)-3],
		"trailing":  append(append([]byte{}, valid...), 0x01),
		"not a map": {0x93, 0x01, 0x02, 0x03},
		"huge str":  {0xdb, 0xff, 0xff, 0xff, 0xff},
		"garbage":   []byte("definitely not msgpack"),
	}
	for name, data := range cases {
		if _, err := DecodeProject(data); !errors.Is(err, ErrCorrupt) {
			t.Fatalf("%s: expected ErrCorrupt, got %v", name, err)
		}
	}
	// A project payload is not a valid state payload.
	if _, err := DecodeState(valid); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt decoding a project as state, got %v", err)
	}
}

func TestMsgpackScalars(t *testing.T) {
	values := []interface{}{int64(0), int64(127), int64(-32), int64(-33), int64(1 << 40), 3.25, "", true, false, nil, []byte{1, 2}}
	for _, v := range values {
		var enc msgpackEncoder
		if err := enc.encodeValue(v); err != nil {
			t.Fatalf("encode %v: %v", v, err)
		}
		got, err := decodeMsgpack(enc.buf.Bytes())
		if err != nil {
			t.Fatalf("decode %v: %v", v, err)
		}
		if b, ok := v.([]byte); ok {
			if string(got.([]byte)) != string(b) {
				t.Fatalf("bytes mismatch: %v", got)
			}
			continue
		}
		if got != v {
			t.Fatalf("expected %#v, got %#v", v, got)
		}
	}
}
