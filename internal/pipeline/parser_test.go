package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mr1hm/go-radar-alerts/internal/models"
)

func TestParseFacts(t *testing.T) {
	tests := []struct {
		name      string
		answer    string
		want      []models.Fact
		malformed []string
	}{
		{
			name:   "comma separated",
			answer: "MD/Рязанская область/UAV,HD/Республика Мордовия/UAV",
			want: []models.Fact{
				{Severity: "MD", Region: "Рязанская область", Hazard: "UAV"},
				{Severity: "HD", Region: "Республика Мордовия", Hazard: "UAV"},
			},
		},
		{
			name:   "line breaks and padding",
			answer: " HD / Курская область / ROCKET \r\nAC/Россия/ALL\n",
			want: []models.Fact{
				{Severity: "HD", Region: "Курская область", Hazard: "ROCKET"},
				{Severity: "AC", Region: "Россия", Hazard: "ALL"},
			},
		},
		{
			name:      "malformed records are discarded, siblings kept",
			answer:    "HD/Курская область,MD/Брянская область/AIR,too/many/fields/here",
			want:      []models.Fact{{Severity: "MD", Region: "Брянская область", Hazard: "AIR"}},
			malformed: []string{"HD/Курская область", "too/many/fields/here"},
		},
		{
			name:      "prose",
			answer:    "Извините, не могу определить регион",
			malformed: []string{"Извините", "не могу определить регион"},
		},
		{
			name:   "empty",
			answer: " , \n ",
		},
		{
			name:   "fields are not validated",
			answer: "XX/Атлантида/LASER",
			want:   []models.Fact{{Severity: "XX", Region: "Атлантида", Hazard: "LASER"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			facts, malformed := ParseFacts(tt.answer)
			assert.Equal(t, tt.want, facts)
			assert.Equal(t, tt.malformed, malformed)
		})
	}
}
