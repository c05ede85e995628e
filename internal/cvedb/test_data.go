package cvedb

import (
	"context"

	"CVELens/internal/model"
)

// SampleRecords 演示用CVE数据
func SampleRecords() []model.Record {
	return []model.Record{
		{
			ID:             "CVE-2021-23017",
			Published:      "2021-06-01T13:15:07.853",
			LastModified:   "2021-06-15T08:15:07.000",
			Description:    "A security issue in nginx resolver was identified, which might allow an attacker who is able to forge UDP packets from the DNS server to cause 1-byte memory overwrite, resulting in worker process crash or potential other impact.",
			CVSSV3Score:    model.NewScore(7.7),
			CVSSV3Severity: model.SeverityHigh,
			CVSSV2Score:    model.NewScore(6.8),
			CVSSV2Severity: model.SeverityMedium,
			ReferenceURLs:  "http://mailman.nginx.org/pipermail/nginx-announce/2021/000300.html,https://support.f5.com/csp/article/K12331123",
		},
		{
			ID:             "CVE-2021-40438",
			Published:      "2021-09-16T15:15:07.420",
			LastModified:   "2021-09-24T12:00:00.000",
			Description:    "A crafted request uri-path can cause mod_proxy to forward the request to an origin server choosen by the remote user. This issue affects Apache HTTP Server 2.4.48 and earlier.",
			CVSSV3Score:    model.NewScore(9.0),
			CVSSV3Severity: model.SeverityCritical,
			CVSSV2Score:    model.NewScore(6.8),
			CVSSV2Severity: model.SeverityMedium,
			ReferenceURLs:  "https://httpd.apache.org/security/vulnerabilities_24.html",
		},
		{
			ID:             "CVE-2022-3602",
			Published:      "2022-11-01T18:15:11.403",
			LastModified:   "2022-11-08T10:00:00.000",
			Description:    "A buffer overrun can be triggered in X.509 certificate verification, specifically in name constraint checking. An attacker can craft a malicious email address to overflow four attacker-controlled bytes on the stack.",
			CVSSV3Score:    model.NewScore(7.5),
			CVSSV3Severity: model.SeverityHigh,
			ReferenceURLs:  "https://www.openssl.org/news/secadv/20221101.txt",
		},
		{
			ID:             "CVE-2014-0160",
			Published:      "2014-04-07T22:55:03.893",
			LastModified:   "2014-04-10T00:00:00.000",
			Description:    "The TLS and DTLS implementations in OpenSSL 1.0.1 before 1.0.1g do not properly handle Heartbeat Extension packets, which allows remote attackers to obtain sensitive information from process memory via crafted packets that trigger a buffer over-read.",
			CVSSV3Score:    model.NewScore(7.5),
			CVSSV3Severity: model.SeverityHigh,
			CVSSV2Score:    model.NewScore(5.0),
			CVSSV2Severity: model.SeverityMedium,
			ReferenceURLs:  "http://heartbleed.com/,https://www.openssl.org/news/secadv_20140407.txt",
		},
		{
			ID:             "CVE-2019-0001",
			Published:      "2019-01-15T21:29:00.390",
			LastModified:   "2019-01-20T00:00:00.000",
			Description:    "Receipt of a malformed packet on MX Series devices with dynamic vlan configuration can trigger an uncontrolled recursion loop in the Broadband Edge subscriber management daemon.",
			CVSSV2Score:    model.NewScore(5.0),
			CVSSV2Severity: model.SeverityMedium,
		},
	}
}

// InitTestData 写入演示数据
func (cd *CVEDatabase) InitTestData(ctx context.Context) (int, error) {
	cd.logger.Info("初始化演示CVE数据...")

	saved, err := cd.SaveBatch(ctx, SampleRecords())
	if err != nil {
		cd.logger.Error("写入演示数据失败: %v", err)
		return 0, err
	}

	cd.logger.Info("演示CVE数据初始化完成，成功写入 %d 个CVE记录", saved)
	return saved, nil
}
