package cli

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"CVELens/internal/analytics"
	"CVELens/internal/cvedb"
	"CVELens/internal/model"
	"CVELens/internal/table"
)

// 直方图条形的最大宽度
const barWidth = 40

var severityColors = map[model.Severity]*color.Color{
	model.SeverityCritical: color.New(color.FgRed, color.Bold),
	model.SeverityHigh:     color.New(color.FgRed),
	model.SeverityMedium:   color.New(color.FgYellow),
	model.SeverityLow:      color.New(color.FgGreen),
}

var bucketColors = map[analytics.Color]*color.Color{
	analytics.ColorTeal:      color.New(color.FgCyan),
	analytics.ColorLightBlue: color.New(color.FgHiBlue),
	analytics.ColorBlue:      color.New(color.FgBlue),
	analytics.ColorGreen:     color.New(color.FgGreen),
	analytics.ColorOrange:    color.New(color.FgHiYellow),
	analytics.ColorYellow:    color.New(color.FgYellow),
	analytics.ColorRed:       color.New(color.FgRed),
	analytics.ColorDarkRed:   color.New(color.FgRed, color.Bold),
}

type OutputFormatter struct {
	format string
	stdout io.Writer
}

func NewOutputFormatter(format string) *OutputFormatter {
	return &OutputFormatter{format: strings.ToLower(format), stdout: os.Stdout}
}

// SetOutput 替换标准输出，测试时使用
func (of *OutputFormatter) SetOutput(w io.Writer) {
	of.stdout = w
}

// write 写到outputFile；为空时写到标准输出
func (of *OutputFormatter) write(output, outputFile string) error {
	if outputFile != "" {
		return os.WriteFile(outputFile, []byte(output), 0644)
	}
	_, err := io.WriteString(of.stdout, output)
	return err
}

// painter 写文件时不输出颜色控制码
func painter(outputFile string) func(c *color.Color, s string) string {
	return func(c *color.Color, s string) string {
		if outputFile != "" || c == nil {
			return s
		}
		return c.Sprint(s)
	}
}

func (of *OutputFormatter) encode(v interface{}) (string, bool, error) {
	switch of.format {
	case "json":
		data, err := json.MarshalIndent(v, "", "  ")
		return string(data) + "\n", true, err
	case "yaml":
		data, err := yaml.Marshal(v)
		return string(data), true, err
	}
	return "", false, nil
}

// PrintReport 输出图表聚合报表
func (of *OutputFormatter) PrintReport(report analytics.Report, outputFile string) error {
	output, done, err := of.encode(report)
	if err != nil {
		return err
	}
	if !done {
		if of.format == "csv" {
			output, err = formatReportCSV(report)
			if err != nil {
				return err
			}
		} else {
			output = formatReportText(report, painter(outputFile))
		}
	}
	return of.write(output, outputFile)
}

func formatReportText(report analytics.Report, paint func(*color.Color, string) string) string {
	var builder strings.Builder

	builder.WriteString("\n📊 CVE统计报表\n")
	builder.WriteString(strings.Repeat("═", 60) + "\n")
	builder.WriteString(fmt.Sprintf("记录总数: %d\n", report.Records))
	if report.Records == 0 {
		builder.WriteString("❌ 暂无数据，请先运行 fetch、import 或 seed\n")
		return builder.String()
	}

	// 严重性分布
	builder.WriteString("\n🔸 严重性分布:\n")
	builder.WriteString(strings.Repeat("─", 40) + "\n")
	w := tabwriter.NewWriter(&builder, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "严重性\tv3\tv2")
	for i, sc := range report.V3Severity {
		v2 := 0
		if i < len(report.V2Severity) {
			v2 = report.V2Severity[i].Count
		}
		label := fmt.Sprintf("%-8s", sc.Severity)
		fmt.Fprintf(w, "%s\t%d\t%d\n", paint(severityColors[sc.Severity], label), sc.Count, v2)
	}
	w.Flush()

	// 评分分布，只列出非空分箱
	builder.WriteString("\n🔸 评分分布 (v3 █ / v2 ░):\n")
	builder.WriteString(strings.Repeat("─", 40) + "\n")
	peak := 1
	for i := range report.Bins {
		peak = max(peak, report.V3Histogram[i], report.V2Histogram[i])
	}
	for i, bin := range report.Bins {
		v3, v2 := report.V3Histogram[i], report.V2Histogram[i]
		if v3 == 0 && v2 == 0 {
			continue
		}
		builder.WriteString(fmt.Sprintf("%4.1f  %-*s %d\n", bin, barWidth, strings.Repeat("█", scaleBar(v3, peak)), v3))
		builder.WriteString(fmt.Sprintf("      %-*s %d\n", barWidth, strings.Repeat("░", scaleBar(v2, peak)), v2))
	}

	// 散点与回归
	builder.WriteString("\n🔸 v3/v2评分散点:\n")
	builder.WriteString(strings.Repeat("─", 40) + "\n")
	builder.WriteString(fmt.Sprintf("同时具有两种评分的记录: %d\n", len(report.Scatter.Points)))
	if reg := report.Scatter.Regression; reg != nil {
		builder.WriteString(fmt.Sprintf("回归线: v2 = %.3f × v3 %+.3f (R² = %.3f)\n", reg.Slope, reg.Intercept, reg.RSquared))
		builder.WriteString(fmt.Sprintf("线段: (%.1f, %.2f) → (%.1f, %.2f)\n",
			reg.XRange[0], reg.YRange[0], reg.XRange[1], reg.YRange[1]))
	} else if len(report.Scatter.Points) > 0 {
		builder.WriteString("回归线: 无法拟合 (v3评分全部相同)\n")
	}
	buckets := make(map[analytics.Color]int)
	for _, p := range report.Scatter.Points {
		buckets[p.Color]++
	}
	for _, c := range analytics.Colors {
		if n := buckets[c]; n > 0 {
			builder.WriteString(fmt.Sprintf("  %s %d\n", paint(bucketColors[c], fmt.Sprintf("%-10s", c)), n))
		}
	}

	// 高频词
	if len(report.Words) > 0 {
		builder.WriteString("\n🔸 描述高频词:\n")
		builder.WriteString(strings.Repeat("─", 40) + "\n")
		w = tabwriter.NewWriter(&builder, 0, 0, 3, ' ', 0)
		for i, wc := range report.Words {
			fmt.Fprintf(w, "%d.\t%s\t%d\n", i+1, wc.Word, wc.Count)
		}
		w.Flush()
	}

	builder.WriteString("\n" + strings.Repeat("═", 60) + "\n")
	return builder.String()
}

func scaleBar(n, peak int) int {
	if n == 0 {
		return 0
	}
	return max(1, n*barWidth/peak)
}

// formatReportCSV 每行一个(区块, 标签, 值)，便于导入表格工具
func formatReportCSV(report analytics.Report) (string, error) {
	var builder strings.Builder
	writer := csv.NewWriter(&builder)

	writer.Write([]string{"section", "label", "v3", "v2"})
	writer.Write([]string{"records", "", strconv.Itoa(report.Records), ""})
	for i, bin := range report.Bins {
		writer.Write([]string{"histogram", strconv.FormatFloat(bin, 'f', 1, 64),
			strconv.Itoa(report.V3Histogram[i]), strconv.Itoa(report.V2Histogram[i])})
	}
	for i, sc := range report.V3Severity {
		v2 := ""
		if i < len(report.V2Severity) {
			v2 = strconv.Itoa(report.V2Severity[i].Count)
		}
		writer.Write([]string{"severity", string(sc.Severity), strconv.Itoa(sc.Count), v2})
	}
	for _, p := range report.Scatter.Points {
		writer.Write([]string{"scatter:" + string(p.Color), p.ID, formatFloat(p.V3), formatFloat(p.V2)})
	}
	if reg := report.Scatter.Regression; reg != nil {
		writer.Write([]string{"regression", "slope/intercept", formatFloat(reg.Slope), formatFloat(reg.Intercept)})
	}
	for _, wc := range report.Words {
		writer.Write([]string{"word", wc.Word, strconv.Itoa(wc.Count), ""})
	}

	writer.Flush()
	return builder.String(), writer.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// PrintRows 输出记录表格
func (of *OutputFormatter) PrintRows(rows []table.Row, total int, outputFile string) error {
	output, done, err := of.encode(rows)
	if err != nil {
		return err
	}
	if !done {
		if of.format == "csv" {
			output, err = formatRowsCSV(rows)
			if err != nil {
				return err
			}
		} else {
			output = formatRowsText(rows, total, painter(outputFile))
		}
	}
	return of.write(output, outputFile)
}

func formatRowsText(rows []table.Row, total int, paint func(*color.Color, string) string) string {
	var builder strings.Builder
	if len(rows) == 0 {
		builder.WriteString("❌ 暂无记录\n")
		return builder.String()
	}

	w := tabwriter.NewWriter(&builder, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CVE编号\t发布\t修改\tv3\tv3严重性\tv2\tv2严重性\t链接\t描述")
	for _, row := range rows {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			row.ID,
			orDash(row.Published),
			orDash(row.LastModified),
			orDash(row.CVSSV3Score),
			paint(severityColors[row.CVSSV3Severity], fmt.Sprintf("%-8s", orDash(string(row.CVSSV3Severity)))),
			orDash(row.CVSSV2Score),
			paint(severityColors[row.CVSSV2Severity], fmt.Sprintf("%-8s", orDash(string(row.CVSSV2Severity)))),
			row.References,
			row.Summary,
		)
	}
	w.Flush()

	if total > len(rows) {
		builder.WriteString(fmt.Sprintf("\n显示 %d / %d 条\n", len(rows), total))
	}
	return builder.String()
}

var rowsHeader = []string{
	"id", "published", "last_modified", "summary",
	"cvss_v3_score", "cvss_v3_severity", "cvss_v2_score", "cvss_v2_severity",
	"references",
}

func formatRowsCSV(rows []table.Row) (string, error) {
	var builder strings.Builder
	writer := csv.NewWriter(&builder)

	writer.Write(rowsHeader)

	for _, row := range rows {
		writer.Write([]string{
			row.ID,
			row.Published,
			row.LastModified,
			row.Summary,
			row.CVSSV3Score,
			string(row.CVSSV3Severity),
			row.CVSSV2Score,
			string(row.CVSSV2Severity),
			strconv.Itoa(row.References),
		})
	}

	writer.Flush()
	return builder.String(), writer.Error()
}

// PrintDetail 输出单条记录的完整描述与参考链接
func (of *OutputFormatter) PrintDetail(detail table.Detail, outputFile string) error {
	output, done, err := of.encode(detail)
	if err != nil {
		return err
	}
	if !done {
		if of.format == "csv" {
			output, err = formatDetailCSV(detail)
			if err != nil {
				return err
			}
		} else {
			output = formatDetailText(detail, painter(outputFile))
		}
	}
	return of.write(output, outputFile)
}

func formatDetailCSV(d table.Detail) (string, error) {
	var builder strings.Builder
	writer := csv.NewWriter(&builder)
	r := d.Record
	writer.Write([]string{"id", "published", "last_modified", "description",
		"cvss_v3_score", "cvss_v3_severity", "cvss_v2_score", "cvss_v2_severity", "reference_urls"})
	writer.Write([]string{r.ID, r.Published, r.LastModified, d.Description,
		r.CVSSV3Score.String(), string(r.CVSSV3Severity), r.CVSSV2Score.String(), string(r.CVSSV2Severity),
		strings.Join(d.References, ",")})
	writer.Flush()
	return builder.String(), writer.Error()
}

func formatDetailText(d table.Detail, paint func(*color.Color, string) string) string {
	var builder strings.Builder
	r := d.Record

	builder.WriteString(fmt.Sprintf("\n🔍 %s\n", d.ID))
	builder.WriteString(strings.Repeat("═", 60) + "\n")
	builder.WriteString(fmt.Sprintf("发布: %s    修改: %s\n", orDash(table.FormatDate(r.Published)), orDash(table.FormatDate(r.LastModified))))
	builder.WriteString(fmt.Sprintf("CVSS v3: %s %s\n", orDash(r.CVSSV3Score.String()), paint(severityColors[r.CVSSV3Severity], string(r.CVSSV3Severity))))
	builder.WriteString(fmt.Sprintf("CVSS v2: %s %s\n", orDash(r.CVSSV2Score.String()), paint(severityColors[r.CVSSV2Severity], string(r.CVSSV2Severity))))
	if avg, ok := analytics.AverageScore(r); ok {
		c := analytics.ColorFor(avg)
		builder.WriteString(fmt.Sprintf("平均分: %.2f (%s)\n", avg, paint(bucketColors[c], string(c))))
	}

	builder.WriteString("\n📝 描述:\n")
	builder.WriteString(d.Description + "\n")

	builder.WriteString("\n🔗 参考链接:\n")
	if len(d.References) == 0 {
		builder.WriteString(table.NoReferences + "\n")
	}
	for _, ref := range d.References {
		builder.WriteString("  - " + ref + "\n")
	}
	return builder.String()
}

// PrintHistory 输出数据更新历史
func (of *OutputFormatter) PrintHistory(history []cvedb.UpdateRecord, outputFile string) error {
	output, done, err := of.encode(history)
	if err != nil {
		return err
	}
	if !done {
		var builder strings.Builder
		if of.format == "csv" {
			writer := csv.NewWriter(&builder)
			writer.Write([]string{"id", "last_update", "source", "records_added"})
			for _, h := range history {
				writer.Write([]string{strconv.Itoa(h.ID), h.LastUpdate, h.Source, strconv.Itoa(h.RecordsAdded)})
			}
			writer.Flush()
			if err := writer.Error(); err != nil {
				return err
			}
		} else if len(history) == 0 {
			builder.WriteString("暂无更新记录\n")
		} else {
			w := tabwriter.NewWriter(&builder, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "时间\t来源\t新增记录")
			for _, h := range history {
				fmt.Fprintf(w, "%s\t%s\t%d\n", h.LastUpdate, h.Source, h.RecordsAdded)
			}
			w.Flush()
		}
		output = builder.String()
	}
	return of.write(output, outputFile)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
