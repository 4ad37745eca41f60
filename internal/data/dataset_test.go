package data_test

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/negvet/model-preparation-algorithm/internal/config"
	"github.com/negvet/model-preparation-algorithm/internal/data"
)

func TestSynthetic_Deterministic(t *testing.T) {
	a, err := data.Synthetic(12, 6, 3, 7)
	require.NoError(t, err)
	b, err := data.Synthetic(12, 6, 3, 7)
	require.NoError(t, err)

	assert.Equal(t, 12, a.Len())
	assert.Equal(t, 6, a.FeatureDim())
	assert.Equal(t, 3, a.NumClasses())

	for i := 0; i < a.Len(); i++ {
		assert.Equal(t, i%3, a.Record(i).Label, "labels should cycle through classes")

		sa, err := a.Sample(i)
		require.NoError(t, err)
		sb, err := b.Sample(i)
		require.NoError(t, err)
		assert.Equal(t, sa.AsFloat32(), sb.AsFloat32(), "same seed should reproduce sample %d", i)
		sa.Release()
		sb.Release()
	}

	c, err := data.Synthetic(12, 6, 3, 8)
	require.NoError(t, err)
	sa, err := a.Sample(0)
	require.NoError(t, err)
	sc, err := c.Sample(0)
	require.NoError(t, err)
	assert.NotEqual(t, sa.AsFloat32(), sc.AsFloat32(), "different seeds should differ")
	sa.Release()
	sc.Release()
}

func TestSynthetic_Validation(t *testing.T) {
	_, err := data.Synthetic(0, 6, 3, 1)
	assert.Error(t, err)
	_, err = data.Synthetic(10, 0, 3, 1)
	assert.Error(t, err)
	_, err = data.Synthetic(10, 6, 0, 1)
	assert.Error(t, err)
}

func TestNewInMemory_Validation(t *testing.T) {
	_, err := data.NewInMemory([][]float32{{1, 2}}, []int{0, 1}, 2)
	require.Error(t, err, "mismatched features and labels")

	_, err = data.NewInMemory([][]float32{{1, 2}, {3}}, []int{0, 1}, 2)
	require.Error(t, err, "ragged feature rows")

	_, err = data.NewInMemory([][]float32{{1, 2}}, []int{5}, 2)
	require.Error(t, err, "label out of range")
}

func TestInMemory_SampleIsACopy(t *testing.T) {
	ds, err := data.NewInMemory([][]float32{{1, 2, 3}}, []int{0}, 1)
	require.NoError(t, err)

	s1, err := ds.Sample(0)
	require.NoError(t, err)
	s1.AsFloat32()[0] = 99

	s2, err := ds.Sample(0)
	require.NoError(t, err)
	assert.Equal(t, float32(1), s2.AsFloat32()[0], "mutating one sample must not leak into the dataset")
	s1.Release()
	s2.Release()
}

func TestLoadCSV(t *testing.T) {
	doc := "label,pixel0,pixel1,pixel2\n" +
		"1,0,128,255\n" +
		"0,51,0,102\n"
	path := filepath.Join(t.TempDir(), "pixels.csv")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	ds, err := data.LoadCSV(path, 2)
	require.NoError(t, err)

	assert.Equal(t, 2, ds.Len())
	assert.Equal(t, 3, ds.FeatureDim())
	assert.Equal(t, 1, ds.Record(0).Label)
	assert.Equal(t, 0, ds.Record(1).Label)

	s, err := ds.Sample(0)
	require.NoError(t, err)
	values := s.AsFloat32()
	assert.InDelta(t, 0.0, values[0], 1e-6)
	assert.InDelta(t, 128.0/255.0, values[1], 1e-6)
	assert.InDelta(t, 1.0, values[2], 1e-6)
	s.Release()
}

func TestLoadCSV_NoHeader(t *testing.T) {
	doc := "1,10,20\n0,30,40\n"
	path := filepath.Join(t.TempDir(), "pixels.csv")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	ds, err := data.LoadCSV(path, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, ds.Len())
	assert.Equal(t, 2, ds.FeatureDim())
}

func TestLoadCSV_Errors(t *testing.T) {
	dir := t.TempDir()

	write := func(name, doc string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))
		return path
	}

	t.Run("label out of range", func(t *testing.T) {
		_, err := data.LoadCSV(write("range.csv", "7,1,2\n"), 2)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "label 7 outside")
	})

	t.Run("bad pixel", func(t *testing.T) {
		_, err := data.LoadCSV(write("pixel.csv", "1,abc,2\n"), 2)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid pixel")
	})

	t.Run("empty file", func(t *testing.T) {
		_, err := data.LoadCSV(write("empty.csv", ""), 2)
		require.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := data.LoadCSV(filepath.Join(dir, "nope.csv"), 2)
		require.Error(t, err)
	})
}

// stubTokenizer maps whitespace-separated words to fixed ids, so hashing
// results are predictable.
type stubTokenizer struct {
	ids map[string]int
}

func (s stubTokenizer) Encode(text string) ([]int, error) {
	words := strings.Fields(text)
	tokens := make([]int, 0, len(words))
	for _, w := range words {
		id, ok := s.ids[w]
		if !ok {
			return nil, fmt.Errorf("unknown word %q", w)
		}
		tokens = append(tokens, id)
	}
	return tokens, nil
}

func (s stubTokenizer) Name() string { return "stub" }

func TestLoadText(t *testing.T) {
	doc := "0\tfoo bar foo\n" +
		"\n" +
		"1\tbar\n"
	path := filepath.Join(t.TempDir(), "samples.tsv")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	tok := stubTokenizer{ids: map[string]int{"foo": 1, "bar": 6}}
	ds, err := data.LoadText(path, tok, 4, 2)
	require.NoError(t, err)

	assert.Equal(t, 2, ds.Len(), "empty lines should be skipped")
	assert.Equal(t, 4, ds.FeatureDim())

	s, err := ds.Sample(0)
	require.NoError(t, err)
	// foo -> id 1 twice, bar -> id 6 -> bucket 2 once.
	assert.Equal(t, []float32{0, 2, 1, 0}, s.AsFloat32())
	s.Release()

	assert.Equal(t, 1, ds.Record(1).Label)
}

func TestLoadText_Errors(t *testing.T) {
	dir := t.TempDir()
	tok := stubTokenizer{ids: map[string]int{"ok": 1}}

	write := func(name, doc string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))
		return path
	}

	t.Run("missing tab", func(t *testing.T) {
		_, err := data.LoadText(write("notab.tsv", "0 ok\n"), tok, 4, 2)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "tab")
	})

	t.Run("bad label", func(t *testing.T) {
		_, err := data.LoadText(write("label.tsv", "x\tok\n"), tok, 4, 2)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid label")
	})

	t.Run("tokenizer error", func(t *testing.T) {
		_, err := data.LoadText(write("unk.tsv", "0\tmystery\n"), tok, 4, 2)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "tokenize")
	})

	t.Run("no samples", func(t *testing.T) {
		_, err := data.LoadText(write("blank.tsv", "\n\n"), tok, 4, 2)
		require.Error(t, err)
	})
}

func TestBuild_Synthetic(t *testing.T) {
	ds, err := data.Build(config.SplitConfig{
		Type:       "synthetic",
		Samples:    8,
		FeatureDim: 4,
		NumClasses: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, 8, ds.Len())
}

func TestBuild_UnknownType(t *testing.T) {
	_, err := data.Build(config.SplitConfig{Type: "parquet"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dataset registry")
}

func TestBuild_AppliesPipeline(t *testing.T) {
	base := config.SplitConfig{
		Type:       "synthetic",
		Samples:    4,
		FeatureDim: 3,
		NumClasses: 2,
		Seed:       11,
	}

	plain, err := data.Build(base)
	require.NoError(t, err)

	normalized := base
	normalized.Pipeline = []config.TransformConfig{
		{Type: "normalize", Mean: []float32{0.5}, Std: []float32{2}},
	}
	piped, err := data.Build(normalized)
	require.NoError(t, err)

	raw, err := plain.Sample(0)
	require.NoError(t, err)
	cooked, err := piped.Sample(0)
	require.NoError(t, err)

	for i, v := range raw.AsFloat32() {
		assert.InDelta(t, (v-0.5)/2, cooked.AsFloat32()[i], 1e-6)
	}
	raw.Release()
	cooked.Release()
}

func TestBuild_BadPipeline(t *testing.T) {
	cfg := config.SplitConfig{
		Type:       "synthetic",
		Samples:    4,
		FeatureDim: 3,
		NumClasses: 2,
		Pipeline:   []config.TransformConfig{{Type: "resize"}},
	}
	_, err := data.Build(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown transform")
}

func TestNormalize_PerFeature(t *testing.T) {
	tr, err := data.NewNormalize([]float32{1, 2, 3}, []float32{1, 2, 4}, 3)
	require.NoError(t, err)

	ds, err := data.NewInMemory([][]float32{{2, 6, 11}}, []int{0}, 1)
	require.NoError(t, err)
	s, err := ds.Sample(0)
	require.NoError(t, err)

	out, err := tr.Apply(s)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 2}, out.AsFloat32())
	out.Release()
}

func TestNormalize_Validation(t *testing.T) {
	_, err := data.NewNormalize([]float32{1, 2}, []float32{1}, 3)
	require.Error(t, err, "mean width mismatch")

	_, err = data.NewNormalize([]float32{0}, []float32{0}, 3)
	require.Error(t, err, "zero std")
}

func TestL2Norm(t *testing.T) {
	ds, err := data.NewInMemory([][]float32{{3, 4}, {0, 0}}, []int{0, 0}, 1)
	require.NoError(t, err)

	s, err := ds.Sample(0)
	require.NoError(t, err)
	out, err := data.L2Norm{}.Apply(s)
	require.NoError(t, err)
	assert.InDelta(t, 0.6, out.AsFloat32()[0], 1e-6)
	assert.InDelta(t, 0.8, out.AsFloat32()[1], 1e-6)
	out.Release()

	z, err := ds.Sample(1)
	require.NoError(t, err)
	out, err = data.L2Norm{}.Apply(z)
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0}, out.AsFloat32(), "zero vectors pass through")
	out.Release()
}
