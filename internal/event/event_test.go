package event

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFields_Scalars(t *testing.T) {
	f := Fields{
		"run":   326500,
		"vz":    3.5,
		"hiBin": float64(41),
		"trig":  true,
		"f32":   float32(1.5),
		"name":  "x",
	}

	run, ok := f.Int("run")
	assert.True(t, ok)
	assert.Equal(t, 326500, run)

	vz, ok := f.Float("vz")
	assert.True(t, ok)
	assert.Equal(t, 3.5, vz)

	hb, ok := f.Int("hiBin")
	assert.True(t, ok)
	assert.Equal(t, 41, hb)

	trig, ok := f.Bool("trig")
	assert.True(t, ok)
	assert.True(t, trig)

	asFloat, ok := f.Float("trig")
	assert.True(t, ok)
	assert.Equal(t, 1.0, asFloat)

	v, _ := f.Float("f32")
	assert.Equal(t, 1.5, v)

	_, ok = f.Float("name")
	assert.False(t, ok)
	_, ok = f.Int("missing")
	assert.False(t, ok)
	_, ok = f.Bool("missing")
	assert.False(t, ok)
	assert.False(t, f.Has("missing"))
	assert.True(t, f.Has("name"))
}

func TestFields_Arrays(t *testing.T) {
	f := Fields{
		"pt":    []float64{1, 2},
		"ids":   []int{11, -13},
		"mixed": []any{1.0, "x", 3.0},
		"flags": []bool{true, false},
		"i64":   []int64{5},
	}

	assert.Equal(t, []float64{1, 2}, f.Floats("pt"))
	assert.Equal(t, []float64{11, -13}, f.Floats("ids"))
	assert.Equal(t, []int{11, -13}, f.Ints("ids"))
	assert.Equal(t, []int{1, 0}, f.Ints("flags"))
	assert.Equal(t, []int{5}, f.Ints("i64"))
	assert.Equal(t, []int{1, 2}, f.Ints("pt"))

	mixed := f.Floats("mixed")
	require.Len(t, mixed, 3)
	assert.True(t, math.IsNaN(mixed[1]))
	assert.Equal(t, []int{1, 0, 3}, f.Ints("mixed"))

	assert.Nil(t, f.Floats("missing"))
	assert.Nil(t, f.Ints("missing"))
}

func TestMinLen(t *testing.T) {
	assert.Equal(t, 0, MinLen())
	assert.Equal(t, 2, MinLen(3, 2, 5))
	assert.Equal(t, 0, MinLen(3, 0))
}

func TestMemorySource(t *testing.T) {
	s := NewMemorySource(
		Fields{"run": 1, "HLT_HIL3Mu12_v1": 1},
		Fields{"run": 2, "rho": []float64{0, 1}},
	)
	defer s.Close()

	assert.Equal(t, 2, s.Len())
	assert.True(t, s.HasField("rho"))
	assert.True(t, s.HasField("HLT_HIL3Mu12_v1"))
	assert.False(t, s.HasField("HLT_HIEle20Gsf_v1"))

	ev, err := s.Event(1)
	require.NoError(t, err)
	run, _ := ev.Int("run")
	assert.Equal(t, 2, run)

	_, err = s.Event(2)
	var re *RangeError
	assert.True(t, errors.As(err, &re))
}

func TestJSONL_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events"+FileExtension)
	f, err := os.Create(path)
	require.NoError(t, err)

	w := NewWriter(f)
	in := []Fields{
		{"run": 326500, "evt": 11, "muPt": []float64{25.5, 21}},
		{"run": 326500, "evt": 12, "muPt": []float64{}},
		{"run": 326501, "evt": 1, "muPt": []float64{40}, "extra": 1},
	}
	for _, e := range in {
		require.NoError(t, w.Write(e))
	}
	require.NoError(t, w.Flush())
	require.NoError(t, f.Close())
	assert.Equal(t, 3, w.Count())

	s, err := OpenJSONL(path)
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, 3, s.Len())
	assert.True(t, s.HasField("muPt"))
	assert.False(t, s.HasField("extra"), "schema comes from the first event")

	// random access, out of order
	for _, i := range []int{2, 0, 1} {
		ev, err := s.Event(i)
		require.NoError(t, err)
		evt, ok := ev.Int("evt")
		require.True(t, ok)
		want, _ := in[i].Int("evt")
		assert.Equal(t, want, evt)
		if diff := cmp.Diff(in[i].Floats("muPt"), ev.Floats("muPt")); diff != "" {
			t.Errorf("event %d muPt mismatch (-want +got):\n%s", i, diff)
		}
	}

	_, err = s.Event(-1)
	assert.Error(t, err)
}

func TestOpenJSONL_Errors(t *testing.T) {
	_, err := OpenJSONL(filepath.Join(t.TempDir(), "missing.jsonl"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.jsonl")
	require.NoError(t, os.WriteFile(bad, []byte("{not json\n"), 0644))
	_, err = OpenJSONL(bad)
	assert.Error(t, err)
}

func TestOpenJSONL_BlankLinesAndNoTrailingNewline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "e.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{\"evt\":1}\n\n{\"evt\":2}"), 0644))

	s, err := OpenJSONL(path)
	require.NoError(t, err)
	defer s.Close()
	require.Equal(t, 2, s.Len())

	ev, err := s.Event(1)
	require.NoError(t, err)
	evt, _ := ev.Int("evt")
	assert.Equal(t, 2, evt)
}
