package analytics

import (
	"math"
	"testing"

	"CVELens/internal/model"
)

func TestBinEdges(t *testing.T) {
	bins := BinEdges(0.1, 10)
	if len(bins) != 101 {
		t.Fatalf("期望101个分箱, 实际得到 %d", len(bins))
	}
	if bins[0] != 0 || bins[100] != 10 {
		t.Errorf("分箱首尾应为0与10, 实际得到 %v 与 %v", bins[0], bins[100])
	}
	if bins[73] != 7.3 {
		t.Errorf("期望bins[73]为7.3, 实际得到 %v", bins[73])
	}

	coarse := BinEdges(0.5, 10)
	if len(coarse) != 21 || coarse[3] != 1.5 {
		t.Errorf("步长0.5的分箱不正确: %v", coarse)
	}
}

func TestPrepareBinsCountsValidScores(t *testing.T) {
	scores := []model.Score{
		model.NewScore(7.5),
		model.NewScore(7.5),
		model.NewScore(0),
		model.NewScore(10),
		model.ParseScore(""),
		model.ParseScore("abc"),
		model.NewScore(math.NaN()),
		{},
	}
	hist := PrepareBins(scores, 0, 0)

	if hist.Counts[75] != 2 {
		t.Errorf("期望7.5分箱计数为2, 实际得到 %d", hist.Counts[75])
	}
	if hist.Counts[0] != 1 || hist.Counts[100] != 1 {
		t.Errorf("边界分箱计数错误: 0=%d 10=%d", hist.Counts[0], hist.Counts[100])
	}
	if hist.Total() != 4 {
		t.Errorf("期望总计数为4, 实际得到 %d", hist.Total())
	}
}

func TestPrepareBinsOutOfRangeIndexIgnored(t *testing.T) {
	// 手工构造的越界评分不应计入任何分箱
	scores := []model.Score{{Float64: 12, Valid: true}, {Float64: -1, Valid: true}, model.NewScore(4.96)}
	hist := PrepareBins(scores, 0.1, 10)
	if hist.Total() != 1 {
		t.Fatalf("期望只有1个评分被计数, 实际得到 %d", hist.Total())
	}
	if hist.Counts[50] != 1 {
		t.Errorf("4.96应四舍五入到5.0分箱")
	}
}

func TestBinStrings(t *testing.T) {
	hist := BinStrings([]string{"9.8", " 5.0 ", "", "n/a", "11"}, 0.1, 10)
	if hist.Total() != 2 {
		t.Errorf("期望2个有效评分, 实际得到 %d", hist.Total())
	}
	pairs := hist.Pairs()
	if pairs[98].Bin != 9.8 || pairs[98].Count != 1 {
		t.Errorf("9.8分箱不正确: %+v", pairs[98])
	}
}

func TestPrepareBinsEmpty(t *testing.T) {
	hist := PrepareBins(nil, 0.1, 10)
	if len(hist.Bins) != 101 || hist.Total() != 0 {
		t.Errorf("空输入应返回全零直方图, 实际得到 %d 个分箱, 总计 %d", len(hist.Bins), hist.Total())
	}
}

func TestPrepareBinsIdempotent(t *testing.T) {
	scores := []model.Score{model.NewScore(3.3), model.NewScore(8.1), model.NewScore(3.3)}
	a := PrepareBins(scores, 0.1, 10)
	b := PrepareBins(scores, 0.1, 10)
	for i := range a.Counts {
		if a.Counts[i] != b.Counts[i] {
			t.Fatalf("两次分箱结果不一致: 索引 %d", i)
		}
	}
}
