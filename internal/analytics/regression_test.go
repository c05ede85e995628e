package analytics

import (
	"encoding/json"
	"errors"
	"math"
	"math/rand/v2"
	"testing"
)

func TestLinearRegressionKnownLine(t *testing.T) {
	reg, err := LinearRegression([]float64{0, 1, 2, 3}, []float64{0, 2, 4, 6})
	if err != nil {
		t.Fatalf("LinearRegression() 返回错误: %v", err)
	}
	if reg.Slope != 2 || reg.Intercept != 0 {
		t.Errorf("期望 m=2 b=0, 实际得到 m=%v b=%v", reg.Slope, reg.Intercept)
	}
	if reg.XRange != [2]float64{0, 3} {
		t.Errorf("XRange错误: %v", reg.XRange)
	}
	if reg.YRange != [2]float64{0, 6} {
		t.Errorf("YRange错误: %v", reg.YRange)
	}
	if math.Abs(reg.RSquared-1) > 1e-12 {
		t.Errorf("完美拟合的R²应为1, 实际得到 %v", reg.RSquared)
	}
	if !reg.Defined() {
		t.Error("拟合结果应为有限值")
	}
}

func TestLinearRegressionOffsetLine(t *testing.T) {
	reg, err := LinearRegression([]float64{1, 2, 3, 4}, []float64{3.5, 4, 4.5, 5})
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(reg.Slope-0.5) > 1e-12 || math.Abs(reg.Intercept-3) > 1e-12 {
		t.Errorf("期望 m=0.5 b=3, 实际得到 m=%v b=%v", reg.Slope, reg.Intercept)
	}
}

func TestLinearRegressionConstantY(t *testing.T) {
	reg, err := LinearRegression([]float64{9.8, 7.5, 5.3, 8.8}, []float64{7.5, 7.5, 7.5, 7.5})
	if err != nil {
		t.Fatal(err)
	}
	if !reg.Defined() {
		t.Fatalf("x有方差时拟合应有定义: %+v", reg)
	}
	if reg.RSquared != 1 {
		t.Errorf("y无方差时R²应为1, 实际得到 %v", reg.RSquared)
	}
	if math.Abs(reg.Slope) > 1e-9 || math.Abs(reg.Intercept-7.5) > 1e-9 {
		t.Errorf("期望 m≈0 b≈7.5, 实际得到 m=%v b=%v", reg.Slope, reg.Intercept)
	}
	if _, err := json.Marshal(reg); err != nil {
		t.Errorf("拟合结果应可序列化为JSON: %v", err)
	}
}

func TestJitterZeroKeepsValues(t *testing.T) {
	values := []float64{1.5, 7.5}
	out := Jitter(values, 0, nil)
	if out[0] != 1.5 || out[1] != 7.5 {
		t.Errorf("amount=0时不应抖动, 实际得到 %v", out)
	}
	out[0] = 3
	if values[0] != 1.5 {
		t.Error("Jitter应返回新切片")
	}
}

func TestLinearRegressionZeroVariance(t *testing.T) {
	reg, err := LinearRegression([]float64{5, 5, 5}, []float64{1, 2, 3})
	if err != nil {
		t.Fatalf("零方差不应返回错误: %v", err)
	}
	if reg.Defined() {
		t.Errorf("零方差时斜率应为非有限值, 实际得到 %v", reg.Slope)
	}
	if reg.XRange != [2]float64{5, 5} {
		t.Errorf("XRange错误: %v", reg.XRange)
	}
}

func TestLinearRegressionEmptyAndMismatch(t *testing.T) {
	reg, err := LinearRegression(nil, nil)
	if err != nil {
		t.Fatalf("空输入不应返回错误: %v", err)
	}
	if reg.Defined() || reg.N != 0 {
		t.Errorf("空输入的拟合应未定义: %+v", reg)
	}

	if _, err := LinearRegression([]float64{1, 2}, []float64{1}); !errors.Is(err, ErrLengthMismatch) {
		t.Errorf("期望 ErrLengthMismatch, 实际得到 %v", err)
	}
}

func TestJitterBounded(t *testing.T) {
	values := []float64{0, 2.5, 7.5, 10}
	rng := rand.New(rand.NewPCG(1, 2))
	for _, amount := range []float64{-1, 0, 0.05, 0.5} {
		limit := amount / 2
		if amount < 0 {
			limit = DefaultJitter / 2
		}
		out := Jitter(values, amount, rng)
		if len(out) != len(values) {
			t.Fatalf("长度不一致: %d != %d", len(out), len(values))
		}
		for i := range values {
			if math.Abs(out[i]-values[i]) > limit {
				t.Errorf("amount=%v: 抖动 %v 超出 ±%v", amount, out[i]-values[i], limit)
			}
		}
	}
	if values[1] != 2.5 {
		t.Error("Jitter不应修改输入切片")
	}
}

func TestJitterDeterministicWithSeed(t *testing.T) {
	a := Jitter([]float64{1, 2, 3}, 0.05, rand.New(rand.NewPCG(7, 7)))
	b := Jitter([]float64{1, 2, 3}, 0.05, rand.New(rand.NewPCG(7, 7)))
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("相同种子应得到相同结果: %v vs %v", a, b)
		}
	}
}
