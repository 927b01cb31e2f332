package bank

import (
	"bytes"
	"strings"
	"testing"

	"github.com/kevinhitt/canvas-grading/internal/model"
)

func testItem(t *testing.T, qid, text string, choices ...model.Choice) model.Item {
	t.Helper()
	return model.Item{QuestionID: qid, QuestionText: text, Choices: choices}
}

func TestFlatRoundTrip(t *testing.T) {
	items := []model.Item{
		testItem(t, "q1", "<p>What is H2O commonly called?</p>",
			model.Choice{ResponseID: "r1", Text: "Ice"},
			model.Choice{ResponseID: "r2", Text: "Water", IsCorrect: true},
			model.Choice{ResponseID: "r3", Text: "Steam"},
			model.Choice{ResponseID: "r4", Text: "Gas"},
		),
		testItem(t, "q2", "What is 2+2?",
			model.Choice{ResponseID: "r5", Text: "3"},
			model.Choice{ResponseID: "r6", Text: "4", IsCorrect: true},
		),
	}

	var buf bytes.Buffer
	if err := WriteFlat(&buf, items); err != nil {
		t.Fatalf("WriteFlat: %v", err)
	}

	got, err := ReadFlat(&buf)
	if err != nil {
		t.Fatalf("ReadFlat: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 items, got %d", len(got))
	}
	for i := range items {
		if got[i].QuestionID != items[i].QuestionID {
			t.Errorf("item %d id = %q, want %q", i, got[i].QuestionID, items[i].QuestionID)
		}
		if got[i].QuestionText != items[i].QuestionText {
			t.Errorf("item %d text = %q, want %q", i, got[i].QuestionText, items[i].QuestionText)
		}
		if len(got[i].Choices) != len(items[i].Choices) {
			t.Fatalf("item %d choice count = %d, want %d", i, len(got[i].Choices), len(items[i].Choices))
		}
		for j := range items[i].Choices {
			if got[i].Choices[j] != items[i].Choices[j] {
				t.Errorf("item %d choice %d = %+v, want %+v", i, j, got[i].Choices[j], items[i].Choices[j])
			}
		}
	}
}

func TestFlatAtMostOneCorrectPerItem(t *testing.T) {
	items := []model.Item{
		testItem(t, "q1", "Q",
			model.Choice{ResponseID: "r1", Text: "a"},
			model.Choice{ResponseID: "r2", Text: "b", IsCorrect: true},
		),
	}
	var buf bytes.Buffer
	if err := WriteFlat(&buf, items); err != nil {
		t.Fatalf("WriteFlat: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	// header + question row + one row per choice
	if len(lines) != 1+1+2 {
		t.Fatalf("expected 4 lines, got %d: %q", len(lines), lines)
	}
	correct := 0
	for _, line := range lines[1:] {
		if strings.HasSuffix(line, ",1") {
			correct++
		}
	}
	if correct != 1 {
		t.Errorf("expected exactly one correct row, got %d", correct)
	}
}

func TestReadFlatDropsGroupWithoutQuestionRow(t *testing.T) {
	csv := "question_id,response_id,text,is_correct\n" +
		"q1,r1,Orphan choice,0\n" +
		"q2,,Real question,\n" +
		"q2,r2,Answer,1\n"
	items, err := ReadFlat(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("ReadFlat: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if items[0].QuestionID != "q2" {
		t.Errorf("expected q2 to survive, got %q", items[0].QuestionID)
	}
}

func TestReadFlatBadHeader(t *testing.T) {
	_, err := ReadFlat(strings.NewReader("a,b,c,d\n"))
	if err == nil {
		t.Fatal("expected error for unexpected header")
	}
}

func TestBuildWideRoundTrip(t *testing.T) {
	items := []model.Item{
		testItem(t, "q1", "Q1: What is 2+2?",
			model.Choice{ResponseID: "r1", Text: "3"},
			model.Choice{ResponseID: "r2", Text: "4", IsCorrect: true},
			model.Choice{ResponseID: "r3", Text: "5"},
			model.Choice{ResponseID: "r4", Text: "6"},
		),
	}
	rows := BuildWide(items)
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	row := rows[0]
	if row.CorrectLabel != "B" {
		t.Errorf("correct_label = %q, want B", row.CorrectLabel)
	}
	want := [4]string{"3", "4", "5", "6"}
	if row.Options != want {
		t.Errorf("options = %v, want %v", row.Options, want)
	}
}

func TestBuildWideStripsMarkup(t *testing.T) {
	items := []model.Item{
		testItem(t, "q1", "<p>What is H2O commonly called?</p>",
			model.Choice{ResponseID: "r1", Text: "Water", IsCorrect: true},
		),
	}
	rows := BuildWide(items)
	if rows[0].QuestionText != "What is H2O commonly called?" {
		t.Errorf("question text = %q, want markup stripped", rows[0].QuestionText)
	}
}

func TestBuildWideShortAndLongItems(t *testing.T) {
	items := []model.Item{
		testItem(t, "short", "Q",
			model.Choice{ResponseID: "r1", Text: "only"},
		),
		testItem(t, "long", "Q",
			model.Choice{ResponseID: "r1", Text: "a"},
			model.Choice{ResponseID: "r2", Text: "b"},
			model.Choice{ResponseID: "r3", Text: "c"},
			model.Choice{ResponseID: "r4", Text: "d"},
			model.Choice{ResponseID: "r5", Text: "e", IsCorrect: true},
		),
	}
	rows := BuildWide(items)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}

	short := rows[0]
	if short.Options != [4]string{"only", "", "", ""} {
		t.Errorf("short options = %v, want trailing columns empty", short.Options)
	}

	long := rows[1]
	if long.Options != [4]string{"a", "b", "c", "d"} {
		t.Errorf("long options = %v, want first four choices", long.Options)
	}
}

func TestBuildWideSkipsItemsWithoutChoices(t *testing.T) {
	items := []model.Item{
		testItem(t, "empty", "Question with no responses"),
		testItem(t, "q1", "Q", model.Choice{ResponseID: "r1", Text: "a"}),
	}
	rows := BuildWide(items)
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0].QuestionID != "q1" {
		t.Errorf("expected q1, got %q", rows[0].QuestionID)
	}
}

func TestWideRoundTrip(t *testing.T) {
	rows := []model.WideQuestion{
		{
			QuestionID:   "q1",
			QuestionText: "What is 2+2?",
			Options:      [4]string{"3", "4", "5", "6"},
			CorrectLabel: "B",
		},
		{
			QuestionID:   "q2",
			QuestionText: "No correct answer",
			Options:      [4]string{"x", "y", "", ""},
		},
	}
	var buf bytes.Buffer
	if err := WriteWide(&buf, rows); err != nil {
		t.Fatalf("WriteWide: %v", err)
	}
	got, err := ReadWide(&buf)
	if err != nil {
		t.Fatalf("ReadWide: %v", err)
	}
	if len(got) != len(rows) {
		t.Fatalf("expected %d rows, got %d", len(rows), len(got))
	}
	for i := range rows {
		if got[i] != rows[i] {
			t.Errorf("row %d = %+v, want %+v", i, got[i], rows[i])
		}
	}
}
