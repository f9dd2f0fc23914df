package loader

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pratee23389/Hack4Delhi/pkg/model"
)

func TestNormalizeHeader(t *testing.T) {
	tests := map[string]string{
		"Employee_ID":       "employee_id",
		" Bank Acc ":        "bank_acc",
		"bank-account":      "bank_account",
		"\ufeffemployee_id": "employee_id",
		"Mobile  Number":    "mobile_number",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeHeader(in), "NormalizeHeader(%q)", in)
	}
}

func TestCanonicalAppliesAliases(t *testing.T) {
	s := DefaultSchema()

	assert.Equal(t, "bank_account", s.Canonical("Bank_Acc"))
	assert.Equal(t, "mobile", s.Canonical("Phone"))

	s.IDField = "id"
	assert.Equal(t, "id", s.Canonical("ID"), "custom id field must not be aliased away")
}

func TestRequireAttributes(t *testing.T) {
	base := DefaultSchema()
	s := base.RequireAttributes([]string{"Email", "bank_account"})

	assert.Equal(t, []string{"email", "bank_account"}, s.Required)
	assert.Equal(t, []string{"mobile", "bank_account"}, base.Required, "the original schema is unchanged")
	assert.Equal(t, base.IDField, s.IDField)

	in := "employee_id,email\n1,a@example.com\n2,a@example.com\n"
	records, err := ParseCSV(context.Background(), "inline", strings.NewReader(in), base.RequireAttributes([]string{"email"}))
	require.NoError(t, err, "mobile and bank_account are no longer needed")
	assert.Len(t, records, 2)

	_, err = ParseCSV(context.Background(), "inline", strings.NewReader(in), base.RequireAttributes([]string{"mobile"}))
	require.ErrorIs(t, err, model.ErrInvalidInput)
	assert.Contains(t, err.Error(), "missing required column(s): mobile")
}

func TestLoadLegacyCSV(t *testing.T) {
	src := NewCSVSource(filepath.Join("testdata", "ghost_legacy.csv"), DefaultSchema())

	records, err := src.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 5)

	first := records[0]
	assert.Equal(t, "E001", first.ID)
	v, _ := first.Attr("bank_account")
	assert.Equal(t, "SBIN000111", v.Key(), "Bank_Acc should load as bank_account")
	_, ok := first.Attr("employee_id")
	assert.False(t, ok, "id column should not remain an attribute")
	assert.Equal(t, "Asha Verma", first.Display("name"))

	last := records[4]
	for _, attr := range []string{"mobile", "bank_account"} {
		v, ok := last.Attr(attr)
		assert.True(t, ok && v.IsBlank(), "%s of E005 should be present and blank, got %+v", attr, v)
	}
}

func TestLoadCSVSkipsBlankRows(t *testing.T) {
	records, err := NewCSVSource(filepath.Join("testdata", "payroll.csv"), DefaultSchema()).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 3)

	v, _ := records[1].Attr("address")
	assert.Equal(t, "12 MG Road", v.Key(), "extra columns should be kept")
}

func TestParseCSVSemicolon(t *testing.T) {
	records, err := NewCSVSource(filepath.Join("testdata", "semicolon.csv"), DefaultSchema()).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "S2", records[1].ID)

	v, _ := records[0].Attr("mobile")
	assert.Equal(t, "111", v.Key(), "phone should alias to mobile")
}

func TestParseCSVMissingColumns(t *testing.T) {
	_, err := NewCSVSource(filepath.Join("testdata", "missing_bank.csv"), DefaultSchema()).Load(context.Background())
	require.ErrorIs(t, err, model.ErrInvalidInput)
	assert.Contains(t, err.Error(), "bank_account", "error should name the missing column")

	_, err = ParseCSV(context.Background(), "inline", strings.NewReader("name,mobile,bank_account\nA,1,2\n"), DefaultSchema())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "employee_id", "missing id column should be reported")
}

func TestParseCSVShortRowsArePadded(t *testing.T) {
	in := "employee_id,mobile,bank_account\n1,555\n"
	records, err := ParseCSV(context.Background(), "inline", strings.NewReader(in), DefaultSchema())
	require.NoError(t, err)

	v, ok := records[0].Attr("bank_account")
	assert.True(t, ok && v.IsBlank(), "short row should pad bank_account with a blank, got %+v", v)
}

func TestParseCSVEmpty(t *testing.T) {
	_, err := ParseCSV(context.Background(), "empty", strings.NewReader(""), DefaultSchema())
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestLoadJSON(t *testing.T) {
	records, err := NewJSONSource(filepath.Join("testdata", "records.json"), DefaultSchema()).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "7", records[0].ID, "numeric ids load as text")
	assert.Equal(t, "8", records[1].ID)

	a, _ := records[0].Attr("mobile")
	b, _ := records[1].Attr("mobile")
	assert.True(t, a.IsNumber)
	assert.Equal(t, a.Key(), b.Key(), "numeric mobile should match text mobile")

	v, _ := records[1].Attr("bank_account")
	assert.True(t, v.IsBlank(), "null should load as a blank value")
	assert.Equal(t, "Om", records[1].Display("name"), "name key should be normalised")
}

func TestDecodeRowsRejectsOtherShapes(t *testing.T) {
	for _, doc := range []string{``, `{"rows": []}`, `"x"`, `[{"a": {"nested": 1}}]`} {
		_, err := DecodeRows([]byte(doc))
		assert.Error(t, err, "DecodeRows(%s)", doc)
	}
}

func TestFindRecordFiles(t *testing.T) {
	files, err := FindRecordFiles(filepath.Join("testdata", "batch"))
	require.NoError(t, err)
	require.Len(t, files, 2, "expected a.csv and b.json, got %v", files)
	assert.Equal(t, "a.csv", filepath.Base(files[0]))
	assert.Equal(t, "b.json", filepath.Base(files[1]))
}

func TestOpenPathDirectory(t *testing.T) {
	src, err := OpenPath(filepath.Join("testdata", "batch"), DefaultSchema())
	require.NoError(t, err)
	assert.Equal(t, "batch", src.Name())
	assert.Len(t, Paths(src), 2)

	records, err := src.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 4, "3 CSV records then 1 JSON record")
	assert.Equal(t, "201", records[3].ID)
}

func TestOpenPathErrors(t *testing.T) {
	_, err := OpenPath(filepath.Join("testdata", "nope.csv"), DefaultSchema())
	assert.Error(t, err, "missing file should fail")

	_, err = OpenPath(filepath.Join("testdata", "batch", "readme.txt"), DefaultSchema())
	assert.ErrorIs(t, err, model.ErrInvalidInput, "unsupported extension")
}

func TestPathSourceSeesNewFiles(t *testing.T) {
	dir := t.TempDir()
	first := "employee_id,mobile,bank_account\n1,m1,b1\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.csv"), []byte(first), 0o644))

	src, err := NewPathSource(dir, DefaultSchema())
	require.NoError(t, err)
	records, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 1)

	second := "employee_id,mobile,bank_account\n2,m1,b2\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.csv"), []byte(second), 0o644))
	records, err = src.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 2, "a file added after creation is loaded")
}

func TestNewPathSourceRejectsMissingInput(t *testing.T) {
	_, err := NewPathSource(filepath.Join(t.TempDir(), "none.csv"), DefaultSchema())
	assert.Error(t, err, "a missing input should fail up front")
}
