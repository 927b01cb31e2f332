package gradebook

import (
	"strings"
	"testing"

	"github.com/kevinhitt/canvas-grading/internal/model"
)

func testConfig(t *testing.T) model.Config {
	t.Helper()
	cfg := model.DefaultConfig()
	cfg.FrontColumns = []string{"name", "id", "section"}
	cfg.SummaryColumns = []string{"n correct", "n incorrect", "score"}
	return cfg
}

const sampleCSV = `name,id,section,101: What is H2O commonly called?,101,102: What is 2+2?,102,n correct,n incorrect,score
Ada Lovelace,123,Sec 1,Water,1,4,1,2,0,100
Alan Turing,124,Sec 1,Steam,0,4,1,1,1,50
`

func TestLoad(t *testing.T) {
	tbl, err := Load(strings.NewReader(sampleCSV), testConfig(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(tbl.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(tbl.Rows))
	}
	if len(tbl.Pairs) != 2 {
		t.Fatalf("expected 2 pairs, got %d", len(tbl.Pairs))
	}

	p := tbl.Pairs[0]
	if p.Header != "101: What is H2O commonly called?" {
		t.Errorf("pair 0 header = %q", p.Header)
	}
	if p.Text != "What is H2O commonly called?" {
		t.Errorf("pair 0 text = %q, want id prefix stripped", p.Text)
	}
	if p.Question != 3 || p.Flag != 4 {
		t.Errorf("pair 0 columns = (%d, %d), want (3, 4)", p.Question, p.Flag)
	}

	if tbl.Pairs[1].Text != "What is 2+2?" {
		t.Errorf("pair 1 text = %q", tbl.Pairs[1].Text)
	}
}

func TestLoadOddMiddleFailsLoudly(t *testing.T) {
	csv := "name,id,section,101: Q?,score\nAda,1,S,x,1\n"
	if _, err := Load(strings.NewReader(csv), testConfig(t)); err == nil {
		t.Fatal("expected shape mismatch error for unpaired question column")
	}
}

func TestLoadStrictRequiresIDPrefix(t *testing.T) {
	csv := "name,id,section,Question without prefix,101,score\nAda,1,S,x,1,100\n"

	cfg := testConfig(t)
	tbl, err := Load(strings.NewReader(csv), cfg)
	if err != nil {
		t.Fatalf("lenient Load: %v", err)
	}
	if tbl.Pairs[0].Text != "Question without prefix" {
		t.Errorf("lenient pair text = %q, want whole header", tbl.Pairs[0].Text)
	}

	cfg.Strict = true
	if _, err := Load(strings.NewReader(csv), cfg); err == nil {
		t.Fatal("expected strict Load to reject header without ':'")
	}
}

func TestLoadEmpty(t *testing.T) {
	if _, err := Load(strings.NewReader(""), testConfig(t)); err == nil {
		t.Fatal("expected error for empty gradebook")
	}
}

func TestValidateFlags(t *testing.T) {
	tests := []struct {
		name    string
		flag    string
		wantErr bool
	}{
		{"zero", "0", false},
		{"one", "1", false},
		{"float zero", "0.0", false},
		{"float one", "1.0", false},
		{"blank", "", false},
		{"two", "2", true},
		{"text", "yes", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			csv := "name,id,section,101: Q?,101,score\nAda,1,S,x," + tt.flag + ",100\n"
			tbl, err := Load(strings.NewReader(csv), testConfig(t))
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			err = tbl.ValidateFlags()
			if tt.wantErr && err == nil {
				t.Errorf("expected error for flag %q", tt.flag)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error for flag %q: %v", tt.flag, err)
			}
		})
	}
}

func TestColumn(t *testing.T) {
	tbl, err := Load(strings.NewReader(sampleCSV), testConfig(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	idx, err := tbl.Column("Name")
	if err != nil {
		t.Fatalf("Column: %v", err)
	}
	if idx != 0 {
		t.Errorf("Column(Name) = %d, want 0", idx)
	}
	if _, err := tbl.Column("missing"); err == nil {
		t.Error("expected error for unknown column")
	}
}

func TestWritePreservesShape(t *testing.T) {
	tbl, err := Load(strings.NewReader(sampleCSV), testConfig(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	var sb strings.Builder
	if err := tbl.Write(&sb); err != nil {
		t.Fatalf("Write: %v", err)
	}
	reloaded, err := Load(strings.NewReader(sb.String()), testConfig(t))
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(reloaded.Rows) != len(tbl.Rows) || len(reloaded.Pairs) != len(tbl.Pairs) {
		t.Errorf("shape changed after round trip: %d rows %d pairs",
			len(reloaded.Rows), len(reloaded.Pairs))
	}
}
