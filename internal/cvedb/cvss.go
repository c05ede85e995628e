package cvedb

import (
	"math"
	"strings"

	gocvss20 "github.com/pandatix/go-cvss/20"
	gocvss30 "github.com/pandatix/go-cvss/30"

	"CVELens/internal/model"
)

// resolveScore 使用NVD给出的基础分；缺失时根据向量串计算
func resolveScore(baseScore *float64, vector string) model.Score {
	if baseScore != nil {
		return model.NewScore(*baseScore)
	}
	if score, ok := ScoreFromVector(vector); ok {
		return model.NewScore(score)
	}
	return model.Score{}
}

// ScoreFromVector 计算CVSS向量串的基础分，支持v2与v3.x
func ScoreFromVector(vector string) (float64, bool) {
	vector = strings.TrimSpace(vector)
	if vector == "" {
		return 0, false
	}

	if strings.HasPrefix(vector, "CVSS:3.") {
		cvss, err := gocvss30.ParseVector(vector)
		if err != nil {
			return 0, false
		}
		return roundScore(cvss.BaseScore()), true
	}

	// v2向量有时带括号
	vector = strings.TrimSuffix(strings.TrimPrefix(vector, "("), ")")
	cvss, err := gocvss20.ParseVector(vector)
	if err != nil {
		return 0, false
	}
	return roundScore(cvss.BaseScore()), true
}

func roundScore(v float64) float64 {
	return math.Round(v*10) / 10
}
