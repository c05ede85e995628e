package analytics

import (
	"errors"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DefaultJitter 散点图默认抖动幅度
const DefaultJitter = 0.05

// ErrLengthMismatch x与y序列长度不一致
var ErrLengthMismatch = errors.New("analytics: x and y must have the same length")

// Regression 最小二乘拟合结果。
// 当x方差为零或输入为空时Slope/Intercept为非有限值，Defined返回false，
// 调用方此时不应绘制回归线。
type Regression struct {
	Slope     float64    `json:"slope" yaml:"slope"`
	Intercept float64    `json:"intercept" yaml:"intercept"`
	XRange    [2]float64 `json:"x_range" yaml:"x_range"`
	YRange    [2]float64 `json:"y_range" yaml:"y_range"`
	RSquared  float64    `json:"r_squared" yaml:"r_squared"`
	N         int        `json:"n" yaml:"n"`
}

// Defined 拟合结果是否为有限值
func (r Regression) Defined() bool {
	return isFinite(r.Slope) && isFinite(r.Intercept)
}

// At 计算拟合直线在x处的取值
func (r Regression) At(x float64) float64 {
	return r.Slope*x + r.Intercept
}

// LinearRegression 普通最小二乘：
//
//	m = (nΣxy − ΣxΣy) / (nΣx² − (Σx)²)
//	b = (Σy − mΣx) / n
//
// x、y须已过滤为成对的有效值，且不应带抖动。
func LinearRegression(x, y []float64) (Regression, error) {
	if len(x) != len(y) {
		return Regression{}, ErrLengthMismatch
	}
	n := float64(len(x))
	var sumX, sumY, sumXY, sumX2 float64
	for i := range x {
		sumX += x[i]
		sumY += y[i]
		sumXY += x[i] * y[i]
		sumX2 += x[i] * x[i]
	}

	m := (n*sumXY - sumX*sumY) / (n*sumX2 - sumX*sumX)
	b := (sumY - m*sumX) / n
	reg := Regression{Slope: m, Intercept: b, N: len(x)}
	if len(x) == 0 {
		reg.XRange = [2]float64{math.NaN(), math.NaN()}
		reg.YRange = reg.XRange
		reg.RSquared = math.NaN()
		return reg, nil
	}

	reg.XRange = [2]float64{floats.Min(x), floats.Max(x)}
	reg.YRange = [2]float64{reg.At(reg.XRange[0]), reg.At(reg.XRange[1])}
	if !reg.Defined() {
		reg.RSquared = math.NaN()
		return reg, nil
	}
	switch {
	case floats.Min(y) == floats.Max(y):
		// y无方差时拟合直线即y的均值，与数据完全重合
		reg.RSquared = 1
	default:
		reg.RSquared = stat.RSquared(x, y, nil, b, m)
		if !isFinite(reg.RSquared) {
			reg.RSquared = 0
		}
	}
	return reg, nil
}

// Jitter 为每个值加上[-amount/2, +amount/2]内的均匀噪声，返回新切片。
// amount为0时原样复制，为负或非有限值时使用DefaultJitter；rng为nil时使用全局随机源。
func Jitter(values []float64, amount float64, rng *rand.Rand) []float64 {
	if amount < 0 || !isFinite(amount) {
		amount = DefaultJitter
	}
	out := make([]float64, len(values))
	if amount == 0 {
		copy(out, values)
		return out
	}
	next := rand.Float64
	if rng != nil {
		next = rng.Float64
	}
	for i, v := range values {
		out[i] = v + (next()-0.5)*amount
	}
	return out
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
