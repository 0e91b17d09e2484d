package booking

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/wolfman30/clinic-assistant/internal/clinicapi"
)

var serviceNames = map[string]string{
	"kham-phu-khoa": "Khám phụ khoa",
	"kham-thai":     "Khám thai",
	"sieu-am":       "Siêu âm",
	"sieu-am-5d":    "Siêu âm dị tật thai 5D",
	"tu-van":        "Tư vấn sức khỏe sinh sản",
}

// ServiceName returns the display name of a form service value, or the value itself.
func ServiceName(value string) string {
	if name, ok := serviceNames[value]; ok {
		return name
	}
	return value
}

// FormatVND renders an amount with Vietnamese digit grouping, e.g. "350.000đ".
func FormatVND(amount int64) string {
	return message.NewPrinter(language.Vietnamese).Sprintf("%d", amount) + "đ"
}

// ServiceLabel is the option text shown for a backend service.
func ServiceLabel(s clinicapi.Service) string {
	return s.Name + " - " + FormatVND(s.Price)
}

// BillTotal sums service prices.
func BillTotal(services []clinicapi.Service) int64 {
	var total int64
	for _, s := range services {
		total += s.Price
	}
	return total
}
