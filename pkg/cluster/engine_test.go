package cluster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codemend/codemend/pkg/diagnostics"
)

func issuesAtLines(code string, lines ...int) []diagnostics.Issue {
	issues := make([]diagnostics.Issue, 0, len(lines))
	for _, line := range lines {
		issues = append(issues, diagnostics.Issue{File: "a.py", Line: line, Code: code})
	}
	return issues
}

func clusterLines(c Cluster) []int {
	lines := make([]int, 0, len(c.Issues))
	for _, issue := range c.Issues {
		lines = append(lines, issue.Line)
	}
	return lines
}

func TestProximityClustering(t *testing.T) {
	// Issues at {1,2,3,50,51,52,100} with distance 5 and max 3 must yield
	// exactly [{1,2,3}], [{50,51,52}], [{100}].
	engine := NewEngine(Config{Distance: 5, MaxIssues: 3, Strategy: StrategyProximity}, nil)

	issues := issuesAtLines("E501", 1, 2, 3, 50, 51, 52, 100)
	clusters := engine.Split("a.py", issues)

	require.Len(t, clusters, 3)
	assert.Equal(t, []int{1, 2, 3}, clusterLines(clusters[0]))
	assert.Equal(t, []int{50, 51, 52}, clusterLines(clusters[1]))
	assert.Equal(t, []int{100}, clusterLines(clusters[2]))

	assert.Equal(t, 1, clusters[0].StartLine)
	assert.Equal(t, 3, clusters[0].EndLine)
}

func TestProximityRespectsMaxIssues(t *testing.T) {
	engine := NewEngine(Config{Distance: 10, MaxIssues: 2, Strategy: StrategyProximity}, nil)

	clusters := engine.Split("a.py", issuesAtLines("E501", 1, 2, 3, 4, 5))

	require.Len(t, clusters, 3)
	for _, c := range clusters {
		assert.LessOrEqual(t, c.Size(), 2)
	}
}

func TestProximityChainInvariant(t *testing.T) {
	// Any two members of a proximity cluster are connected by a chain of
	// members each no more than Distance lines apart.
	engine := NewEngine(Config{Distance: 3, MaxIssues: 10, Strategy: StrategyProximity}, nil)

	clusters := engine.Split("a.py", issuesAtLines("E501", 1, 3, 6, 20, 22, 40))

	for _, c := range clusters {
		lines := clusterLines(c)
		for i := 1; i < len(lines); i++ {
			assert.LessOrEqual(t, lines[i]-lines[i-1], 3)
		}
	}
}

func TestSimilarityClusteringIgnoresDistance(t *testing.T) {
	engine := NewEngine(Config{Distance: 5, MaxIssues: 5, Strategy: StrategySimilarity}, nil)

	issues := []diagnostics.Issue{
		{File: "a.py", Line: 1, Code: "F401", Message: "unused import"},
		{File: "a.py", Line: 500, Code: "E402", Message: "import not at top"},
		{File: "a.py", Line: 250, Code: "F841", Message: "assigned but never used"},
	}

	clusters := engine.Split("a.py", issues)

	// F401 and E402 both land in the imports category despite being 499
	// lines apart; F841 is unused.
	require.Len(t, clusters, 2)
	assert.Equal(t, "similarity:imports", clusters[0].Reason)
	assert.Equal(t, 2, clusters[0].Size())
	assert.Equal(t, "similarity:unused", clusters[1].Reason)
}

func TestSimilaritySplitsOversizedGroups(t *testing.T) {
	engine := NewEngine(Config{Distance: 5, MaxIssues: 2, Strategy: StrategySimilarity}, nil)

	clusters := engine.Split("a.py", issuesAtLines("F401", 1, 10, 20, 30, 40))

	require.Len(t, clusters, 3)
	assert.Equal(t, []int{1, 10}, clusterLines(clusters[0]))
	assert.Equal(t, []int{20, 30}, clusterLines(clusters[1]))
	assert.Equal(t, []int{40}, clusterLines(clusters[2]))
}

func TestHybridClustering(t *testing.T) {
	engine := NewEngine(Config{Distance: 5, MaxIssues: 5, Strategy: StrategyHybrid}, nil)

	issues := []diagnostics.Issue{
		{File: "a.py", Line: 1, Code: "F401", Message: "unused import"},
		{File: "a.py", Line: 3, Code: "F401", Message: "unused import"},
		{File: "a.py", Line: 200, Code: "F401", Message: "unused import"},
		{File: "a.py", Line: 2, Code: "F841", Message: "assigned but never used"},
	}

	clusters := engine.Split("a.py", issues)

	// Imports split by proximity into near and far groups; unused stays on
	// its own.
	require.Len(t, clusters, 3)
	assert.Equal(t, "hybrid:imports", clusters[0].Reason)
	assert.Equal(t, []int{1, 3}, clusterLines(clusters[0]))
	assert.Equal(t, []int{200}, clusterLines(clusters[1]))
	assert.Equal(t, "hybrid:unused", clusters[2].Reason)
}

func TestCustomCategoriesWinOverBuiltins(t *testing.T) {
	engine := NewEngine(Config{
		Distance:  5,
		MaxIssues: 5,
		Strategy:  StrategySimilarity,
		Categories: map[string][]string{
			"project-imports": {"f401"},
		},
	}, nil)

	clusters := engine.Split("a.py", []diagnostics.Issue{
		{File: "a.py", Line: 1, Code: "F401", Message: "unused import"},
	})

	require.Len(t, clusters, 1)
	assert.Equal(t, "similarity:project-imports", clusters[0].Reason)
}

func TestCategoryFallback(t *testing.T) {
	engine := NewEngine(DefaultConfig(), nil)

	assert.Equal(t, "rule_x", engine.categorize(diagnostics.Issue{Code: "X999", Message: "mystery"}))
	assert.Equal(t, "other", engine.categorize(diagnostics.Issue{Message: "mystery"}))
}

func TestClusteringIsDeterministic(t *testing.T) {
	engine := NewEngine(Config{
		Distance:  5,
		MaxIssues: 3,
		Strategy:  StrategyHybrid,
		Categories: map[string][]string{
			"alpha": {"aaa"},
			"beta":  {"bbb"},
		},
	}, nil)

	issues := []diagnostics.Issue{
		{File: "a.py", Line: 1, Code: "F401"},
		{File: "a.py", Line: 2, Code: "AAA1", Message: "aaa problem"},
		{File: "a.py", Line: 3, Code: "BBB1", Message: "bbb problem"},
		{File: "a.py", Line: 90, Code: "F841"},
		{File: "a.py", Line: 91, Code: "AAA2", Message: "aaa problem"},
	}

	first := engine.Split("a.py", issues)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, engine.Split("a.py", issues))
	}
}

func TestFingerprintStable(t *testing.T) {
	issues := issuesAtLines("F821", 10, 12)

	a := New("a.py", "proximity", issues)
	b := New("a.py", "proximity", issues)

	assert.Equal(t, a.Fingerprint, b.Fingerprint)
	assert.Len(t, a.Fingerprint, 8)

	c := New("a.py", "proximity", issuesAtLines("F821", 10, 13))
	assert.NotEqual(t, a.Fingerprint, c.Fingerprint)
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	bad := DefaultConfig()
	bad.Distance = -1
	assert.Error(t, bad.Validate())

	bad = DefaultConfig()
	bad.MaxIssues = 0
	assert.Error(t, bad.Validate())
}
