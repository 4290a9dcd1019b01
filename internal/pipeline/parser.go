package pipeline

import (
	"strings"

	"github.com/mr1hm/go-radar-alerts/internal/models"
)

const (
	recordSeparator = ","
	fieldSeparator  = "/"
)

// ParseFacts splits a raw oracle answer into records and each record into
// SEVERITY/REGION/HAZARD. Line breaks and commas both end a record. Records
// without exactly three fields are returned as malformed; empty records are
// skipped. Field values are not validated here.
func ParseFacts(answer string) (facts []models.Fact, malformed []string) {
	answer = strings.ReplaceAll(answer, "\r\n", recordSeparator)
	answer = strings.ReplaceAll(answer, "\n", recordSeparator)

	for _, record := range strings.Split(answer, recordSeparator) {
		record = strings.TrimSpace(record)
		if record == "" {
			continue
		}

		fields := strings.Split(record, fieldSeparator)
		if len(fields) != 3 {
			malformed = append(malformed, record)
			continue
		}

		facts = append(facts, models.Fact{
			Severity: strings.TrimSpace(fields[0]),
			Region:   strings.TrimSpace(fields[1]),
			Hazard:   strings.TrimSpace(fields[2]),
		})
	}
	return facts, malformed
}
