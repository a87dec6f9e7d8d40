package merge

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codemend/codemend/pkg/diagnostics"
)

const baseFile = "a\nb\nc\nd\ne\nf\ng\nh"

func versionAt(spanStart int, content string, lines ...int) Version {
	issues := make([]diagnostics.Issue, len(lines))
	for i, line := range lines {
		issues[i] = diagnostics.Issue{File: "app.py", Line: line, Code: "F821"}
	}
	return Version{Content: content, Issues: issues, SpanStart: spanStart}
}

type fakeOracleMerger struct {
	calls  int
	result string
	err    error
}

func (m *fakeOracleMerger) MergeFile(ctx context.Context, file, base string, versions []Version) (string, error) {
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	return m.result, nil
}

func TestMergeFileNoVersions(t *testing.T) {
	engine := NewEngine(StrategySequential, nil, nil)

	result, err := engine.MergeFile(context.Background(), "app.py", baseFile, nil)
	require.NoError(t, err)
	assert.Equal(t, baseFile, result.Content)
	assert.Zero(t, result.Merged)
}

func TestMergeFileSingleVersion(t *testing.T) {
	engine := NewEngine(StrategyOracle, nil, nil)

	fixed := "A\nb\nc\nd\ne\nf\ng\nh"
	result, err := engine.MergeFile(context.Background(), "app.py", baseFile, []Version{
		versionAt(1, fixed, 1),
	})
	require.NoError(t, err)
	assert.Equal(t, fixed, result.Content)
	assert.Equal(t, 1, result.Merged)
	assert.False(t, result.UsedOracle)
}

func TestSequentialMergesDisjointVersions(t *testing.T) {
	engine := NewEngine(StrategySequential, nil, nil)

	top := versionAt(1, "A\nb\nc\nd\ne\nf\ng\nh", 1)
	bottom := versionAt(8, "a\nb\nc\nd\ne\nf\ng\nH", 8)

	result, err := engine.MergeFile(context.Background(), "app.py", baseFile, []Version{bottom, top})
	require.NoError(t, err)
	assert.Equal(t, "A\nb\nc\nd\ne\nf\ng\nH", result.Content)
	assert.Equal(t, 2, result.Merged)
	assert.Empty(t, result.Unresolved)
	assert.False(t, result.UsedOracle)
}

func TestSequentialOrderIndependentForDisjoint(t *testing.T) {
	engine := NewEngine(StrategySequential, nil, nil)

	a := versionAt(1, "A\nb\nc\nd\ne\nf\ng\nh", 1)
	b := versionAt(4, "a\nb\nc\nD\ne\nf\ng\nh", 4)
	c := versionAt(8, "a\nb\nc\nd\ne\nf\ng\nH", 8)

	orders := [][]Version{
		{a, b, c}, {c, b, a}, {b, a, c}, {c, a, b},
	}
	for i, versions := range orders {
		result, err := engine.MergeFile(context.Background(), fmt.Sprintf("f%d.py", i), baseFile, versions)
		require.NoError(t, err)
		assert.Equal(t, "A\nb\nc\nD\ne\nf\ng\nH", result.Content)
	}
}

func TestSequentialFirstWinsOnConflict(t *testing.T) {
	engine := NewEngine(StrategySequential, nil, nil)

	early := versionAt(2, "a\nB-early\nc\nd\ne\nf\ng\nh", 2)
	late := versionAt(2, "a\nB-late\nc\nd\ne\nf\ng\nh", 2)
	late.SpanStart = 3

	result, err := engine.MergeFile(context.Background(), "app.py", baseFile, []Version{late, early})
	require.NoError(t, err)
	assert.Equal(t, "a\nB-early\nc\nd\ne\nf\ng\nh", result.Content)
	assert.Equal(t, 1, result.Merged)
	require.Len(t, result.Unresolved, 1)
	assert.Equal(t, 3, result.Unresolved[0].SpanStart)
}

func TestOctopusRejectsAllOverlappingVersions(t *testing.T) {
	engine := NewEngine(StrategyOctopus, nil, nil)

	first := versionAt(2, "a\nB1\nc\nd\ne\nf\ng\nh", 2)
	second := versionAt(2, "a\nB2\nc\nd\ne\nf\ng\nh", 2)
	disjoint := versionAt(8, "a\nb\nc\nd\ne\nf\ng\nH", 8)

	result, err := engine.MergeFile(context.Background(), "app.py", baseFile, []Version{first, second, disjoint})
	require.NoError(t, err)

	// Both overlapping versions are dropped; the disjoint one lands.
	assert.Equal(t, "a\nb\nc\nd\ne\nf\ng\nH", result.Content)
	assert.Equal(t, 1, result.Merged)
	assert.Len(t, result.Unresolved, 2)
}

func TestConflictEscalatesToOracle(t *testing.T) {
	oracle := &fakeOracleMerger{result: "merged by oracle"}
	engine := NewEngine(StrategySequential, oracle, nil)

	first := versionAt(2, "a\nB1\nc\nd\ne\nf\ng\nh", 2)
	second := versionAt(2, "a\nB2\nc\nd\ne\nf\ng\nh", 2)

	result, err := engine.MergeFile(context.Background(), "app.py", baseFile, []Version{first, second})
	require.NoError(t, err)
	assert.Equal(t, 1, oracle.calls)
	assert.Equal(t, "merged by oracle", result.Content)
	assert.Equal(t, 2, result.Merged)
	assert.True(t, result.UsedOracle)
	assert.Empty(t, result.Unresolved)
}

func TestDisjointVersionsNeverReachOracle(t *testing.T) {
	oracle := &fakeOracleMerger{result: "should not be used"}
	engine := NewEngine(StrategySequential, oracle, nil)

	a := versionAt(1, "A\nb\nc\nd\ne\nf\ng\nh", 1)
	b := versionAt(8, "a\nb\nc\nd\ne\nf\ng\nH", 8)

	result, err := engine.MergeFile(context.Background(), "app.py", baseFile, []Version{a, b})
	require.NoError(t, err)
	assert.Zero(t, oracle.calls)
	assert.False(t, result.UsedOracle)
}

func TestOracleStrategyAlwaysEscalates(t *testing.T) {
	oracle := &fakeOracleMerger{result: "oracle output"}
	engine := NewEngine(StrategyOracle, oracle, nil)

	a := versionAt(1, "A\nb\nc\nd\ne\nf\ng\nh", 1)
	b := versionAt(8, "a\nb\nc\nd\ne\nf\ng\nH", 8)

	result, err := engine.MergeFile(context.Background(), "app.py", baseFile, []Version{a, b})
	require.NoError(t, err)
	assert.Equal(t, 1, oracle.calls)
	assert.Equal(t, "oracle output", result.Content)
	assert.True(t, result.UsedOracle)
}

func TestOracleFailureKeepsPartialResult(t *testing.T) {
	oracle := &fakeOracleMerger{err: fmt.Errorf("oracle unavailable")}
	engine := NewEngine(StrategySequential, oracle, nil)

	early := versionAt(2, "a\nB-early\nc\nd\ne\nf\ng\nh", 2)
	late := versionAt(3, "a\nB-late\nc\nd\ne\nf\ng\nh", 2)

	result, err := engine.MergeFile(context.Background(), "app.py", baseFile, []Version{early, late})
	require.NoError(t, err)
	assert.Equal(t, "a\nB-early\nc\nd\ne\nf\ng\nh", result.Content)
	assert.Len(t, result.Unresolved, 1)
	assert.False(t, result.UsedOracle)
}

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		input    string
		expected Strategy
		wantErr  bool
	}{
		{"", StrategyOracle, false},
		{"oracle", StrategyOracle, false},
		{"sequential", StrategySequential, false},
		{"octopus", StrategyOctopus, false},
		{"recursive", StrategyOracle, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			strategy, err := ParseStrategy(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, strategy)
		})
	}
}
