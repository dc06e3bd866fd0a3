package command

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fitCSV rises 0, 100, 250, 350, 400 psi a minute apart; the second
// derivative first turns negative on the third row.
const fitCSV = `Time,Pressure,Strokes
1/1/24 8:00:00 AM,0,0
1/1/24 8:01:00 AM,100,1
1/1/24 8:02:00 AM,250,2
1/1/24 8:03:00 AM,350,3
1/1/24 8:04:00 AM,400,4
`

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := NewRoot(&out, &errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fit.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestAnalyze_Text(t *testing.T) {
	out, err := run(t, "analyze", writeCSV(t, fitCSV), "--tvd", "10000", "--mud-weight", "9.5")
	require.NoError(t, err)

	assert.Contains(t, out, "Samples:      5\n")
	assert.Contains(t, out, "Status:       ok")
	assert.Contains(t, out, "Inflection:   row 3 at 1/1/24 8:02:00 AM")
	assert.Contains(t, out, "FIT pressure: 250\n")
	// 9.5 + 250 / (0.052 * 10000) = 9.98
	assert.Contains(t, out, "FIT EMW:      9.98\n")
}

func TestAnalyze_JSON(t *testing.T) {
	out, err := run(t, "analyze", writeCSV(t, fitCSV), "--tvd", "10000", "--mud-weight", "9.5", "--json")
	require.NoError(t, err)

	var r report
	require.NoError(t, json.Unmarshal([]byte(out), &r))
	assert.Equal(t, "ok", r.Status)
	assert.Equal(t, 5, r.Samples)
	require.NotNil(t, r.Inflection)
	assert.Equal(t, 2, r.Inflection.Index)
	assert.Equal(t, 250.0, r.Inflection.Pressure)
	assert.Equal(t, "250", r.FitPressure)
	assert.Equal(t, "value", r.EMW.Kind)
	require.NotNil(t, r.EMW.Value)
	assert.InDelta(t, 9.98, *r.EMW.Value, 1e-9)
}

func TestAnalyze_Incomplete(t *testing.T) {
	out, err := run(t, "analyze", writeCSV(t, fitCSV), "--json")
	require.NoError(t, err)

	var r report
	require.NoError(t, json.Unmarshal([]byte(out), &r))
	assert.Equal(t, "incomplete", r.EMW.Kind)
	assert.Nil(t, r.EMW.Value)
	assert.Equal(t, "Enter all values to calculate FIT EMW", r.EMW.Message)
}

func TestAnalyze_DuplicateTimestamps(t *testing.T) {
	csv := "1/1/24 8:00:00 AM,0\n1/1/24 8:00:00 AM,10\n1/1/24 8:01:00 AM,20\n"
	out, err := run(t, "analyze", writeCSV(t, csv))
	require.NoError(t, err)
	assert.Contains(t, out, "Status:       invalid")
	assert.Contains(t, out, "FIT pressure: No inflection point detected")
}

func TestAnalyze_DroppedRows(t *testing.T) {
	csv := fitCSV + "garbage,5,\n1/1/24 8:05:00 AM,,\n"
	out, err := run(t, "analyze", writeCSV(t, csv))
	require.NoError(t, err)
	assert.Contains(t, out, "Samples:      5 (2 rows dropped)")
}

func TestAnalyze_Export(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "derived.csv")
	_, err := run(t, "analyze", writeCSV(t, fitCSV), "--export", dest)
	require.NoError(t, err)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, "Time,Elapsed (s),Pressure,dP/dt,d2P/dt2", lines[0])
	assert.True(t, strings.HasPrefix(lines[3], "1/1/24 8:02:00 AM,120,250,"), lines[3])
}

func TestAnalyze_MissingFile(t *testing.T) {
	_, err := run(t, "analyze", filepath.Join(t.TempDir(), "none.csv"))
	assert.Error(t, err)
}

func TestEMW(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    string
		wantErr bool
	}{
		{"value", []string{"--pressure", "520", "--tvd", "10000", "--mud-weight", "10"}, "11.00", false},
		{"no pressure", []string{"--tvd", "10000", "--mud-weight", "10"}, "Enter all values to calculate FIT EMW", false},
		{"blank tvd", []string{"--pressure", "520", "--mud-weight", "10"}, "Enter all values to calculate FIT EMW", false},
		{"zero tvd", []string{"--pressure", "520", "--tvd", "0", "--mud-weight", "10"}, "Calculation error - check input values", true},
		{"bad mud weight", []string{"--pressure", "520", "--tvd", "100", "--mud-weight", "abc"}, "Calculation error - check input values", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out, err := run(t, append([]string{"emw"}, tc.args...)...)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tc.want+"\n", out)
		})
	}
}

func TestPush_CreatesSessionAndUploads(t *testing.T) {
	t.Setenv("TEST_FIT_KEY", "k")
	var gotCSV, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-api-key")
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/v1/sessions":
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id":"abc","name":"shoe"}`))
		case r.Method == http.MethodPut && r.URL.Path == "/api/v1/sessions/abc/csv":
			b, _ := io.ReadAll(r.Body)
			gotCSV = string(b)
			_, _ = w.Write([]byte(`{"id":"abc","version":2}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	out, err := run(t, "push", writeCSV(t, fitCSV), "--server", srv.URL, "--name", "shoe", "--key-env", "TEST_FIT_KEY")
	require.NoError(t, err)
	assert.Equal(t, "abc version 2\n", out)
	assert.Equal(t, fitCSV, gotCSV)
	assert.Equal(t, "k", gotKey)
}

func TestPush_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"session not found"}`))
	}))
	defer srv.Close()

	_, err := run(t, "push", writeCSV(t, fitCSV), "--server", srv.URL, "--session", "gone")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session not found")
}
