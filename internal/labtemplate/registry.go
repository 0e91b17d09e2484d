// Package labtemplate fills the printable lab forms and keeps their field values.
package labtemplate

import (
	"errors"
	"fmt"
	"maps"
	"slices"
)

// ErrUnknownTemplate is returned for template types not in the registry.
var ErrUnknownTemplate = errors.New("labtemplate: unknown template")

// Template describes one printable form.
type Template struct {
	Type       string `json:"type"`
	Name       string `json:"name"`
	Stylesheet string `json:"stylesheet"`
	Document   string `json:"document"`
	sample     Values
}

// Sample returns a copy of the demo values for the template.
func (t Template) Sample() Values {
	return maps.Clone(t.sample)
}

var registry = map[string]Template{
	"lab-result": {
		Type:       "lab-result",
		Name:       "Phiếu Kết Quả Cận Lâm Sàng",
		Stylesheet: "lab-result-template.css",
		Document:   "improved-lab-result-template.html",
		sample: Values{
			"patient_name":      "Nguyễn Thị Minh Anh",
			"patient_age":       "28",
			"patient_address":   "123 Đường ABC, Quận 1, TP.HCM",
			"patient_phone":     "0901234567",
			"patient_dob":       "15/03/1995",
			"diagnosis":         "Khám phụ khoa định kỳ - Nghi ngờ rối loạn kinh nguyệt",
			"ultrasound_result": "Tử cung kích thước bình thường, niêm mạc tử cung dày 8mm",
			"ultrasound_note":   "Không có khối u, không có dịch ổ bụng",
			"blood_test_result": "Hb: 12.5 g/dL, Hct: 37.5%, WBC: 6.2 x 10³/μL",
			"blood_test_note":   "Tất cả chỉ số trong giới hạn bình thường",
			"urine_test_result": "Protein: (-), Glucose: (-), Ketone: (-)",
			"urine_test_note":   "Không có bất thường",
			"doctor_name":       "BS. Nguyễn Văn A",
			"test_date":         "15/01/2024",
		},
	},
	"lab-request": {
		Type:       "lab-request",
		Name:       "Phiếu Chỉ Định Cận Lâm Sàng",
		Stylesheet: "lab-request-template.css",
		Document:   "improved-lab-request-template.html",
		sample: Values{
			"patient_name":      "Nguyễn Thị Minh Anh",
			"patient_age":       "28",
			"patient_address":   "123 Đường ABC, Quận 1, TP.HCM",
			"patient_phone":     "0901234567",
			"patient_dob":       "15/03/1995",
			"diagnosis":         "Khám phụ khoa định kỳ\nNghi ngờ rối loạn kinh nguyệt",
			"ultrasound_pelvis": true,
			"blood_test":        true,
			"urine_test":        true,
			"doctor_name":       "BS. Nguyễn Văn A",
			"request_date":      "15/01/2024",
		},
	},
}

// Lookup returns the registered template of type typ.
func Lookup(typ string) (Template, error) {
	t, ok := registry[typ]
	if !ok {
		return Template{}, fmt.Errorf("%w: %q", ErrUnknownTemplate, typ)
	}
	return t, nil
}

// Types lists registered template types in order.
func Types() []string {
	return slices.Sorted(maps.Keys(registry))
}
