package parser

import "logsight-backend/internal/model"

// CollectKeys returns the distinct enrichment keys across the extracted
// records. A key is a src_ip value that is present, non-empty, and not the
// "-" placeholder. Order is unspecified.
func CollectKeys(records []*model.Record) []string {
	seen := make(map[string]struct{})
	var keys []string
	for _, record := range records {
		ip, ok := record.Get(FieldSrcIP)
		if !ok || ip == "" || ip == "-" {
			continue
		}
		if _, dup := seen[ip]; dup {
			continue
		}
		seen[ip] = struct{}{}
		keys = append(keys, ip)
	}
	return keys
}
