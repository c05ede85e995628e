package cvedb

import (
	"strings"

	"CVELens/internal/model"
)

// NVDResponse NVD API 2.0响应，2.0版数据源文件也使用相同的vulnerabilities结构
type NVDResponse struct {
	ResultsPerPage  int                `json:"resultsPerPage"`
	StartIndex      int                `json:"startIndex"`
	TotalResults    int                `json:"totalResults"`
	Format          string             `json:"format"`
	Version         string             `json:"version"`
	Timestamp       string             `json:"timestamp"`
	Vulnerabilities []NVDVulnerability `json:"vulnerabilities"`
}

// NVDVulnerability NVD漏洞条目
type NVDVulnerability struct {
	CVE NVDCVE `json:"cve"`
}

type NVDCVE struct {
	ID               string           `json:"id"`
	SourceIdentifier string           `json:"sourceIdentifier"`
	Published        string           `json:"published"`
	LastModified     string           `json:"lastModified"`
	VulnStatus       string           `json:"vulnStatus"`
	Descriptions     []NVDDescription `json:"descriptions"`
	Metrics          NVDMetrics       `json:"metrics"`
	References       []NVDReference   `json:"references"`
}

type NVDDescription struct {
	Lang  string `json:"lang"`
	Value string `json:"value"`
}

type NVDReference struct {
	URL    string `json:"url"`
	Source string `json:"source"`
}

type NVDMetrics struct {
	CvssMetricV31 []NVDMetricV3 `json:"cvssMetricV31"`
	CvssMetricV30 []NVDMetricV3 `json:"cvssMetricV30"`
	CvssMetricV2  []NVDMetricV2 `json:"cvssMetricV2"`
}

type NVDMetricV3 struct {
	Source   string `json:"source"`
	Type     string `json:"type"`
	CvssData struct {
		Version      string   `json:"version"`
		Vector       string   `json:"vectorString"`
		BaseScore    *float64 `json:"baseScore"`
		BaseSeverity string   `json:"baseSeverity"`
	} `json:"cvssData"`
}

type NVDMetricV2 struct {
	Source   string `json:"source"`
	Type     string `json:"type"`
	CvssData struct {
		Version   string   `json:"version"`
		Vector    string   `json:"vectorString"`
		BaseScore *float64 `json:"baseScore"`
	} `json:"cvssData"`
	BaseSeverity string `json:"baseSeverity"`
}

// ConvertVulnerability 将NVD条目转换为内部记录
func ConvertVulnerability(vuln NVDVulnerability) model.Record {
	cve := vuln.CVE
	record := model.Record{
		ID:           strings.TrimSpace(cve.ID),
		Published:    cve.Published,
		LastModified: cve.LastModified,
		Description:  pickDescription(cve.Descriptions),
	}

	// v3.1优先，其次v3.0
	v3 := cve.Metrics.CvssMetricV31
	if len(v3) == 0 {
		v3 = cve.Metrics.CvssMetricV30
	}
	if len(v3) > 0 {
		data := v3[0].CvssData
		record.CVSSV3Score = resolveScore(data.BaseScore, data.Vector)
		record.CVSSV3Severity = model.ParseSeverity(data.BaseSeverity)
	}

	if len(cve.Metrics.CvssMetricV2) > 0 {
		metric := cve.Metrics.CvssMetricV2[0]
		record.CVSSV2Score = resolveScore(metric.CvssData.BaseScore, metric.CvssData.Vector)
		record.CVSSV2Severity = model.ParseSeverity(metric.BaseSeverity)
	}

	urls := make([]string, 0, len(cve.References))
	for _, ref := range cve.References {
		if u := strings.TrimSpace(ref.URL); u != "" {
			urls = append(urls, u)
		}
	}
	record.ReferenceURLs = strings.Join(urls, ",")

	return record
}

// 优先英文描述，否则取第一条
func pickDescription(descs []NVDDescription) string {
	for _, desc := range descs {
		if desc.Lang == "en" {
			return desc.Value
		}
	}
	if len(descs) > 0 {
		return descs[0].Value
	}
	return ""
}
