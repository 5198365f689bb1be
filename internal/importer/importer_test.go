package importer

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"Strata/internal/export"
	"Strata/internal/soil"
)

const labCSV = `borehole_id,sample_id,depth_top,depth_bottom,uscs_classification,field_description,spt_n_value,fines_percent,liquid_limit
B-1,S-2,5,7,cl,Lean clay,,62,38
B-1,S-1,1,3,SP,Sand,18,3,
B-2,S-1,2,4,QQ,Bad code,,,
B-2,S-2,x,4,ML,Bad depth,,,
,,,,,,,,
B-2,S-3,4,6,ML,Silt,,,
`

func TestReadCSV(t *testing.T) {
	res, err := ReadCSV(strings.NewReader(labCSV), CSVOptions{})
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if res.Imported != 3 {
		t.Fatalf("imported %d, want 3", res.Imported)
	}
	if len(res.Skipped) != 2 || res.Skipped[0].Row != 4 || res.Skipped[1].Row != 5 {
		t.Fatalf("unexpected skipped rows %+v", res.Skipped)
	}
	if len(res.Boreholes) != 2 || res.Boreholes[0].BoreholeID != "B-1" {
		t.Fatalf("unexpected boreholes %+v", res.Boreholes)
	}
	b1 := res.Boreholes[0]
	if b1.Samples[0].SampleID != "S-1" || *b1.Samples[0].Tests.FieldTests.SPTN != 18 {
		t.Errorf("samples not sorted or SPT lost: %+v", b1.Samples)
	}
	clay := b1.Samples[1]
	if clay.Classification != soil.CL || *clay.Tests.Atterberg.LiquidLimit != 38 || clay.Tests.FieldTests.SPTN != nil {
		t.Errorf("unexpected clay sample %+v", clay)
	}
}

func TestReadCSVLegacyCodePage(t *testing.T) {
	// "très" in Windows-1252
	raw := []byte("borehole_id;sample_id;depth_top;depth_bottom;field_description\nB-1;S-1;0;2;Sable tr\xe8s dense\n")
	for _, opts := range []CSVOptions{{Comma: ';'}, {Comma: ';', Charset: "windows-1252"}} {
		res, err := ReadCSV(bytes.NewReader(raw), opts)
		if err != nil {
			t.Fatalf("ReadCSV(%+v): %v", opts, err)
		}
		if got := res.Boreholes[0].Samples[0].Description; got != "Sable très dense" {
			t.Errorf("charset %q: description %q", opts.Charset, got)
		}
	}
	if _, err := ReadCSV(bytes.NewReader(raw), CSVOptions{Charset: "no-such-charset"}); err == nil {
		t.Fatal("unknown charset should fail")
	}
}

func TestReadCSVMissingColumn(t *testing.T) {
	if _, err := ReadCSV(strings.NewReader("borehole_id,sample_id\nB-1,S-1\n"), CSVOptions{}); err == nil {
		t.Fatal("expected missing column error")
	}
}

func exportedProject() soil.Project {
	return soil.Project{
		Name: "Pier", Number: "PR-9", CoordinateSystem: soil.DefaultCoordinateSystem,
		Boreholes: []soil.Borehole{{
			BoreholeID: "B-7", X: 10, Y: 20, Elevation: 50,
			Samples: []soil.Sample{{
				SampleID: "S-1", DepthTop: 0, DepthBottom: 2, Classification: soil.SW,
				Tests: soil.TestData{Gradation: soil.Gradation{D10: soil.Num(0.3)}, Consolidation: soil.ConsolidationTests{CompressionIndex: soil.Num(0.2)}},
			}},
		}},
	}
}

func TestWorkbookRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := export.NewExporter().Workbook(&buf, exportedProject()); err != nil {
		t.Fatalf("Workbook: %v", err)
	}
	res, err := ReadWorkbook(&buf)
	if err != nil {
		t.Fatalf("ReadWorkbook: %v", err)
	}
	if res.Imported != 1 || len(res.Skipped) != 0 {
		t.Fatalf("unexpected result %+v", res)
	}
	s := res.Boreholes[0].Samples[0]
	if s.Classification != soil.SW || *s.Tests.Gradation.D10 != 0.3 || *s.Tests.Consolidation.CompressionIndex != 0.2 {
		t.Fatalf("sample lost data: %+v", s)
	}
}

func TestReadFileDispatch(t *testing.T) {
	dir := t.TempDir()

	var doc bytes.Buffer
	e := export.NewExporter()
	e.Now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	if err := e.Project(&doc, exportedProject(), export.Options{Compress: true}); err != nil {
		t.Fatal(err)
	}
	jsonPath := filepath.Join(dir, "pier.json.gz")
	csvPath := filepath.Join(dir, "lab.csv")
	txtPath := filepath.Join(dir, "notes.txt")
	for path, data := range map[string][]byte{jsonPath: doc.Bytes(), csvPath: []byte(labCSV), txtPath: []byte("x")} {
		if err := os.WriteFile(path, data, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	res, err := ReadFile(jsonPath, CSVOptions{})
	if err != nil || res.Imported != 1 || res.Boreholes[0].X != 10 {
		t.Fatalf("json import = %+v, %v", res, err)
	}
	if res, err := ReadFile(csvPath, CSVOptions{}); err != nil || res.Imported != 3 {
		t.Fatalf("csv import = %+v, %v", res, err)
	}
	if _, err := ReadFile(txtPath, CSVOptions{}); err == nil {
		t.Fatal("expected unsupported format")
	}
}

type memStore struct {
	project soil.Project
	created []string
	samples map[string][]string
}

func (m *memStore) GetProject(context.Context, string) (soil.Project, error) {
	return m.project, nil
}

func (m *memStore) SaveBorehole(_ context.Context, _ string, b *soil.Borehole) error {
	b.ID = "row-" + b.BoreholeID
	m.created = append(m.created, b.BoreholeID)
	return nil
}

func (m *memStore) SaveSample(_ context.Context, boreholeID string, s *soil.Sample) error {
	m.samples[boreholeID] = append(m.samples[boreholeID], s.SampleID)
	return nil
}

func TestSave(t *testing.T) {
	store := &memStore{
		project: soil.Project{Boreholes: []soil.Borehole{{ID: "existing-row", BoreholeID: "B-1", Elevation: 100}}},
		samples: map[string][]string{},
	}
	res, err := ReadCSV(strings.NewReader(labCSV), CSVOptions{})
	if err != nil {
		t.Fatal(err)
	}
	n, err := Save(context.Background(), store, "p1", res)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if n != 3 {
		t.Fatalf("saved %d samples, want 3", n)
	}
	if len(store.created) != 1 || store.created[0] != "B-2" {
		t.Fatalf("only the unknown borehole should be created, got %v", store.created)
	}
	if len(store.samples["existing-row"]) != 2 || len(store.samples["row-B-2"]) != 1 {
		t.Fatalf("unexpected sample targets %v", store.samples)
	}
}
